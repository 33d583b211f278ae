package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/config"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	be, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer be.close()

	n, err := be.count(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Backend:    %s\n", cfg.Storage.Backend)
	fmt.Printf("Collection: %s\n", cfg.Storage.Collection)
	fmt.Printf("Dimensions: %d\n", cfg.Embedding.Dimensions)
	fmt.Printf("Chunks:     %d\n", n)
	return nil
}
