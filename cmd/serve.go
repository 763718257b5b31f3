package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/reefwatch/sharkmark/internal/config"
	"github.com/reefwatch/sharkmark/internal/database/postgres"
	"github.com/reefwatch/sharkmark/internal/ml"
	"github.com/reefwatch/sharkmark/internal/naming"
	"github.com/reefwatch/sharkmark/internal/storage"
	"github.com/reefwatch/sharkmark/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the sharkmark API server.
The server exposes the annotation and validation API used by the
catalog frontend: the validation queue, photo annotation, identity
resolution and the shark catalog.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// initEmbeddingHNSW builds the in-memory HNSW index for candidate ranking.
func initEmbeddingHNSW(ctx context.Context, embeddingRepo *postgres.EmbeddingRepository) {
	fmt.Println("Building in-memory HNSW index for embedding search...")
	if err := embeddingRepo.EnableHNSW(ctx); err != nil {
		fmt.Printf("Warning: Failed to build HNSW index: %v\n", err)
		fmt.Println("Candidate ranking will use PostgreSQL queries (slower)")
		return
	}
	fmt.Printf("HNSW index built with %d embeddings\n", embeddingRepo.HNSWCount())
}

// buildNamingProvider picks the AI naming backend from configuration.
// Returns nil when no provider is configured; the suggester then uses
// its embedded fallback list only.
func buildNamingProvider(ctx context.Context, cfg *config.Config) naming.Provider {
	if cfg.OpenAI.Token != "" {
		fmt.Println("Name suggestions: OpenAI")
		return naming.NewOpenAIProvider(cfg.OpenAI.Token)
	}
	if cfg.Gemini.APIKey != "" {
		provider, err := naming.NewGeminiProvider(ctx, cfg.Gemini.APIKey)
		if err != nil {
			fmt.Printf("Warning: Failed to create Gemini provider: %v\n", err)
			return nil
		}
		fmt.Println("Name suggestions: Gemini")
		return provider
	}
	fmt.Println("Name suggestions: fallback list only")
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	if cfg.Storage.URL == "" {
		return errors.New("STORAGE_URL environment variable is required")
	}

	fmt.Println("Connecting to PostgreSQL database...")
	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pool.Close()

	ctx := context.Background()
	if err := pool.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	photoRepo := postgres.NewPhotoRepository(pool)
	sharkRepo := postgres.NewSharkRepository(pool)
	embeddingRepo := postgres.NewEmbeddingRepository(pool)

	initEmbeddingHNSW(ctx, embeddingRepo)

	mlClient, err := ml.NewClient(cfg.ML.URL, cfg.ML.Dim)
	if err != nil {
		return fmt.Errorf("failed to create ML client: %w", err)
	}
	if !mlClient.Healthy(ctx) {
		fmt.Printf("Warning: ML service at %s is not responding\n", cfg.ML.URL)
	}

	store, err := storage.NewHTTPStore(cfg.Storage.URL)
	if err != nil {
		return fmt.Errorf("failed to create photo store: %w", err)
	}

	suggester := naming.NewSuggester(buildNamingProvider(ctx, cfg))

	server := web.NewServer(cfg, photoRepo, sharkRepo, embeddingRepo, mlClient, store, suggester)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting sharkmark API on %s\n", cfg.Server.Addr)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
