package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/corpus"
)

var searchTopK int

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the corpus without generating an answer",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top", "k", 0, "number of passages to return")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	k := searchTopK
	if k <= 0 {
		k = a.cfg.Retrieval.TopK
	}

	query := strings.Join(args, " ")
	results, err := a.retriever.Search(ctx, query, k)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No passages found.")
		return nil
	}

	for i, r := range results {
		if i > 0 {
			fmt.Println(strings.Repeat("-", 60))
		}
		fmt.Printf("[%d] %s (%s, relevance %.2f)\n", i+1, r.Ref, r.MatchType, r.Relevance)
		fmt.Println(corpus.Truncate(r.Text, 400))
	}
	return nil
}
