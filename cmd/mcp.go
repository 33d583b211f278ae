package cmd

import (
	"os/signal"
	"syscall"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server over stdio",
	Long: `Exposes the retrieval layer as Model Context Protocol tools so external
agents can search the indexed texts and fetch passages by reference.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	server, err := mcp.NewServer(mcp.Config{
		Name:    "guezi",
		Version: AppVersion,
	}, a.retriever, a.backend.search, logger)
	if err != nil {
		return err
	}

	logger.Info("mcp server listening on stdio")
	return server.Run(ctx, &sdk.StdioTransport{})
}
