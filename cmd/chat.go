package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/engine"
)

var chatLang string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatLang, "lang", "l", "", "answer language (en, he, fr)")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	lang := chatLang
	if lang == "" {
		lang = a.cfg.Language
	}

	session := engine.NewSession()
	fmt.Println(a.engine.Greeting(lang))
	fmt.Println(`Type "exit" to leave.`)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			break
		}

		answer, err := a.engine.Ask(ctx, session, question, lang)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		fmt.Println()
		fmt.Println(answer.Text)
		printSources(answer.Sources)
	}

	return scanner.Err()
}
