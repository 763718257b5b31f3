package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/reefwatch/sharkmark/internal/config"
	"github.com/reefwatch/sharkmark/internal/database/postgres"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the in-memory embedding index from PostgreSQL",
	Long: `Rebuilds the HNSW embedding index from the stored embeddings and
reports build time and size. Useful for checking index health after a
bulk import or an embedding backfill.`,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pool.Close()

	embeddingRepo := postgres.NewEmbeddingRepository(pool)
	ctx := context.Background()

	count, err := embeddingRepo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count embeddings: %w", err)
	}
	fmt.Printf("Building HNSW index from %d embedding(s)...\n", count)

	start := time.Now()
	if err := embeddingRepo.RebuildHNSW(ctx); err != nil {
		return fmt.Errorf("failed to rebuild index: %w", err)
	}

	fmt.Printf("Index built with %d embedding(s) in %s\n",
		embeddingRepo.HNSWCount(), time.Since(start).Round(time.Millisecond))
	return nil
}
