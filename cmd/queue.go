package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reefwatch/sharkmark/internal/catalog"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show the validation queue of a running server",
	Long: `Lists photos awaiting validation on a running sharkmark server.

The server address comes from --api-url or the SHARKMARK_API_URL
environment variable; API_TOKEN is used for authentication when set.`,
	RunE: runQueue,
}

func init() {
	rootCmd.AddCommand(queueCmd)

	queueCmd.Flags().String("api-url", "", "Base URL of the sharkmark server (default $SHARKMARK_API_URL or http://localhost:8080)")
	queueCmd.Flags().Bool("count", false, "Print only the queue size")
}

func resolveAPIURL(cmd *cobra.Command) string {
	apiURL := mustGetString(cmd, "api-url")
	if apiURL == "" {
		apiURL = os.Getenv("SHARKMARK_API_URL")
	}
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}
	return apiURL
}

func runQueue(cmd *cobra.Command, args []string) error {
	countOnly := mustGetBool(cmd, "count")

	client, err := catalog.NewClient(resolveAPIURL(cmd), os.Getenv("API_TOKEN"))
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	ctx := context.Background()

	if countOnly {
		count, err := client.ValidationQueueCount(ctx)
		if err != nil {
			return fmt.Errorf("failed to get queue count: %w", err)
		}
		fmt.Println(count)
		return nil
	}

	photos, err := client.ValidationQueue(ctx)
	if err != nil {
		return fmt.Errorf("failed to get validation queue: %w", err)
	}

	if len(photos) == 0 {
		fmt.Println("Validation queue is empty.")
		return nil
	}

	fmt.Printf("%d photo(s) awaiting validation:\n\n", len(photos))
	for _, photo := range photos {
		fmt.Printf("  %s  uploaded %s", photo.ID, photo.UploadedAt.Format("2006-01-02 15:04"))
		if photo.AutoDetected {
			fmt.Printf("  (auto-detected)")
		}
		fmt.Println()
		if len(photo.Top5Candidates) == 0 {
			fmt.Println("    no candidates")
			continue
		}
		for i, c := range photo.Top5Candidates {
			fmt.Printf("    %d. %s (%.2f)\n", i+1, c.DisplayName, c.Score)
		}
	}
	return nil
}
