package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/reefwatch/sharkmark/internal/config"
	"github.com/reefwatch/sharkmark/internal/database"
	"github.com/reefwatch/sharkmark/internal/database/postgres"
	"github.com/reefwatch/sharkmark/internal/ml"
	"github.com/reefwatch/sharkmark/internal/storage"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill-embeddings",
	Short: "Compute missing reference embeddings for profile photos",
	Long: `Computes reference embeddings for profile photos that do not have one
stored yet. Embeddings are normally pushed when a photo is validated as
a profile photo; this command fills the gaps after an ML model change
or a restored database.

Examples:
  # Preview what would be embedded
  sharkmark backfill-embeddings --dry-run

  # Backfill missing embeddings
  sharkmark backfill-embeddings

  # Recompute every profile photo embedding
  sharkmark backfill-embeddings --force`,
	RunE: runBackfill,
}

func init() {
	rootCmd.AddCommand(backfillCmd)

	backfillCmd.Flags().Bool("dry-run", false, "List photos without computing embeddings")
	backfillCmd.Flags().Bool("force", false, "Recompute embeddings that already exist")
}

func runBackfill(cmd *cobra.Command, args []string) error {
	dryRun := mustGetBool(cmd, "dry-run")
	force := mustGetBool(cmd, "force")

	cfg := config.Load()
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	if cfg.Storage.URL == "" {
		return errors.New("STORAGE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pool.Close()

	photoRepo := postgres.NewPhotoRepository(pool)
	sharkRepo := postgres.NewSharkRepository(pool)
	embeddingRepo := postgres.NewEmbeddingRepository(pool)

	mlClient, err := ml.NewClient(cfg.ML.URL, cfg.ML.Dim)
	if err != nil {
		return fmt.Errorf("failed to create ML client: %w", err)
	}
	store, err := storage.NewHTTPStore(cfg.Storage.URL)
	if err != nil {
		return fmt.Errorf("failed to create photo store: %w", err)
	}

	ctx := context.Background()

	photos, err := photoRepo.ProfilePhotos(ctx)
	if err != nil {
		return fmt.Errorf("failed to list profile photos: %w", err)
	}

	// Skip photos that already have a stored embedding.
	embedded := make(map[string]bool)
	if !force {
		existing, err := embeddingRepo.All(ctx)
		if err != nil {
			return fmt.Errorf("failed to list embeddings: %w", err)
		}
		for _, emb := range existing {
			embedded[emb.PhotoID] = true
		}
	}

	var pending []database.Photo
	for _, photo := range photos {
		if !embedded[photo.ID] {
			pending = append(pending, photo)
		}
	}

	if len(pending) == 0 {
		fmt.Println("All profile photos have embeddings.")
		return nil
	}

	if dryRun {
		fmt.Printf("Would embed %d profile photo(s):\n", len(pending))
		for _, photo := range pending {
			fmt.Printf("  %s (shark %s)\n", photo.ID, photo.SharkID)
		}
		return nil
	}

	bar := progressbar.NewOptions(len(pending),
		progressbar.OptionSetDescription("Computing embeddings"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	stored := 0
	failed := 0

	for i := range pending {
		photo := &pending[i]

		if err := backfillPhoto(ctx, photo, sharkRepo, embeddingRepo, mlClient, store); err != nil {
			fmt.Printf("\n  %s: %v\n", photo.ID, err)
			failed++
		} else {
			stored++
		}
		bar.Add(1)
	}
	fmt.Println()

	fmt.Println("\nBackfill complete!")
	fmt.Printf("  Embeddings stored: %d\n", stored)
	if failed > 0 {
		fmt.Printf("  Failures:          %d\n", failed)
	}
	return nil
}

func backfillPhoto(
	ctx context.Context,
	photo *database.Photo,
	sharkRepo *postgres.SharkRepository,
	embeddingRepo *postgres.EmbeddingRepository,
	mlClient *ml.Client,
	store storage.Store,
) error {
	shark, err := sharkRepo.Get(ctx, photo.SharkID)
	if err != nil {
		return fmt.Errorf("load shark: %w", err)
	}

	image, err := store.Fetch(ctx, photo.ObjectKey)
	if err != nil {
		return fmt.Errorf("fetch image: %w", err)
	}

	embedding, err := mlClient.Embed(ctx, image, photo.ContentType, photo.SharkBBox, photo.ZoneBBox)
	if err != nil {
		return fmt.Errorf("compute embedding: %w", err)
	}

	emb := database.StoredEmbedding{
		SharkID:     shark.ID,
		DisplayName: shark.DisplayName,
		PhotoID:     photo.ID,
		Orientation: photo.Orientation,
		Embedding:   embedding,
	}
	if err := embeddingRepo.Upsert(ctx, &emb); err != nil {
		return fmt.Errorf("store embedding: %w", err)
	}
	return nil
}
