package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sharkmark",
	Short: "Annotation and validation server for shark photo identification",
	Long: `Sharkmark is the backend of a shark photo identification catalog.
It serves the annotation and validation API, ranks identity candidates
from stored embeddings, and manages the shark identity catalog.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
