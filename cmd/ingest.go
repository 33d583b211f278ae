package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/chunker"
	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/config"
	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/corpus"
	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/embed"
	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/ingest"
	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/observability"
	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/sefaria"
)

var (
	ingestSource  string
	ingestFile    string
	ingestSave    string
	ingestRebuild bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Build the vector index from the Breslov corpus",
	Long: `Fetches the corpus (from the Sefaria API or a local JSON file),
chunks it, embeds the chunks and loads them into the configured storage
backend. Use --save to cache a fetched corpus for later offline runs.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSource, "source", "sefaria", "corpus source: sefaria or file")
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "corpus JSON file (required with --source file)")
	ingestCmd.Flags().StringVar(&ingestSave, "save", "", "write the fetched corpus to this JSON file")
	ingestCmd.Flags().BoolVar(&ingestRebuild, "rebuild", false, "clear the index before ingesting")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	shutdown, err := observability.Setup(ctx, cfg.Otel, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("trace shutdown failed", "error", err)
		}
	}()

	docs, err := loadCorpus(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d documents.\n", len(docs))

	if ingestSave != "" {
		if err := corpus.WriteFile(ingestSave, docs); err != nil {
			return fmt.Errorf("saving corpus: %w", err)
		}
		fmt.Printf("Corpus saved to %s.\n", ingestSave)
	}

	be, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer be.close()

	if ingestRebuild {
		if err := be.clear(ctx); err != nil {
			return fmt.Errorf("clearing index: %w", err)
		}
		fmt.Println("Cleared existing index.")
	}

	embedder, err := embed.NewGemini(ctx, cfg.GeminiAPIKey, cfg.Embedding.Model, cfg.Embedding.Dimensions)
	if err != nil {
		return err
	}
	batcher := embed.NewBatcher(embedder, batchPolicy(cfg), logger.With("component", "embed"))

	ch := chunker.New(chunker.Config{
		MaxChunkSize: cfg.Chunking.MaxChunkSize,
		MinChunkSize: cfg.Chunking.MinChunkSize,
		OverlapSize:  cfg.Chunking.OverlapSize,
	})

	pipeline := ingest.New(ch, batcher, be.add, logger.With("component", "ingest"))
	summary, err := pipeline.Run(ctx, docs)
	if err != nil {
		return err
	}

	fmt.Printf("Ingested %d chunks from %d documents (%d dropped).\n",
		summary.Indexed, summary.Documents, summary.Dropped)
	return nil
}

func loadCorpus(ctx context.Context, cfg *config.Config) ([]corpus.Document, error) {
	switch ingestSource {
	case "sefaria":
		client := sefaria.NewClient(logger.With("component", "sefaria"),
			sefaria.WithBaseURL(cfg.Sefaria.BaseURL))
		fmt.Println("Fetching corpus from Sefaria...")
		return client.FetchAll(ctx, nil)

	case "file":
		if ingestFile == "" {
			return nil, fmt.Errorf("--file is required with --source file")
		}
		return corpus.ReadFile(ingestFile)

	default:
		return nil, fmt.Errorf("unknown source %q (expected sefaria or file)", ingestSource)
	}
}
