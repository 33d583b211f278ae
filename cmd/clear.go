package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/config"
)

var clearForce bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all indexed chunks",
	Args:  cobra.NoArgs,
	RunE:  runClear,
}

func init() {
	clearCmd.Flags().BoolVar(&clearForce, "force", false, "confirm deletion of the index")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, _ []string) error {
	if !clearForce {
		return errors.New("refusing to clear the index without --force")
	}

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

	if err := be.clear(ctx); err != nil {
		return fmt.Errorf("clearing index: %w", err)
	}

	fmt.Println("Index cleared.")
	return nil
}
