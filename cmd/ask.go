package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askLang string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a one-shot question about the teachings",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askLang, "lang", "l", "", "answer language (en, he, fr)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	lang := askLang
	if lang == "" {
		lang = a.cfg.Language
	}

	question := strings.Join(args, " ")
	answer, err := a.engine.Ask(ctx, nil, question, lang)
	if err != nil {
		return err
	}

	fmt.Println(answer.Text)
	printSources(answer.Sources)
	return nil
}
