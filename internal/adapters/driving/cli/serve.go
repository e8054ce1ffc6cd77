package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/documind/internal/adapters/driven/blob/fs"
	"github.com/custodia-labs/documind/internal/adapters/driven/embedding"
	"github.com/custodia-labs/documind/internal/adapters/driven/embedding/nomic"
	"github.com/custodia-labs/documind/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/documind/internal/adapters/driven/llm/openrouter"
	"github.com/custodia-labs/documind/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/documind/internal/adapters/driven/vector/qdrant"
	"github.com/custodia-labs/documind/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/documind/internal/config"
	"github.com/custodia-labs/documind/internal/core/ports/driven"
	"github.com/custodia-labs/documind/internal/core/services"
	"github.com/custodia-labs/documind/internal/extractors/pdf"
	"github.com/custodia-labs/documind/internal/logger"
	"github.com/custodia-labs/documind/internal/postprocessors/chunker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the documind server",
	Long: `Starts the HTTP server: accepts PDF uploads, processes them in the
background, and answers chat queries against indexed documents.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

//nolint:gocyclo // wiring function with necessary sequential steps
func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metadata store
	store, err := sqlite.NewStore(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("open metadata store: %w", err)
	}
	defer store.Close()

	// Upload store
	blobs, err := fs.NewStore(cfg.Storage.UploadDir)
	if err != nil {
		return fmt.Errorf("open upload store: %w", err)
	}

	// Embedding provider behind the batching decorator
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	defer embedder.Close()
	batched := embedding.NewBatcher(embedder,
		embedding.WithRateLimit(cfg.Embedding.RequestsPerSecond))

	// Vector index
	index, err := qdrant.NewIndex(qdrant.Config{
		URL:        cfg.Qdrant.URL,
		APIKey:     cfg.Qdrant.APIKey,
		Collection: cfg.Qdrant.Collection,
	})
	if err != nil {
		return fmt.Errorf("create vector index: %w", err)
	}
	defer index.Close()

	if err := index.EnsureReady(ctx, embedder.Dimensions()); err != nil {
		return fmt.Errorf("prepare vector index: %w", err)
	}

	// Answer generation
	llm, err := openrouter.NewLLMService(openrouter.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
	})
	if err != nil {
		return fmt.Errorf("create llm service: %w", err)
	}
	defer llm.Close()

	// Services
	ingestion := services.NewIngestionCoordinator(
		store, blobs, pdf.New(), chunker.New(), batched, index,
		services.WithWorkers(cfg.Ingestion.Workers),
		services.WithMaxUploadSize(int64(cfg.Ingestion.MaxUploadMiB)<<20),
	)
	ingestion.Start(ctx)
	defer ingestion.Close()

	chat := services.NewChatEngine(store, batched, index, llm,
		services.WithTopK(cfg.Ingestion.TopK))

	logger.Info("documind %s starting (embedder %s, model %s)",
		version, embedder.ModelName(), llm.ModelName())

	server := httpapi.New(ingestion, chat, blobs,
		httpapi.WithMaxUploadSize(int64(cfg.Ingestion.MaxUploadMiB)<<20),
		httpapi.WithHealthCheck("embeddings", batched),
		httpapi.WithHealthCheck("llm", llm),
		httpapi.WithHealthCheck("vector_store", index))
	return server.Start(ctx, cfg.Server.ListenAddr)
}

// newEmbedder builds the configured embedding provider.
func newEmbedder(cfg *config.Config) (driven.EmbeddingService, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		svc, err := openai.NewEmbeddingService(openai.Config{
			APIKey:  cfg.Embedding.APIKey,
			BaseURL: cfg.Embedding.BaseURL,
			Model:   cfg.Embedding.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("create openai embedder: %w", err)
		}
		return svc, nil
	default:
		svc, err := nomic.NewEmbeddingService(nomic.Config{
			APIKey:  cfg.Embedding.APIKey,
			BaseURL: cfg.Embedding.BaseURL,
			Model:   cfg.Embedding.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("create nomic embedder: %w", err)
		}
		return svc, nil
	}
}
