// Package mcp exposes corpus retrieval as Model Context Protocol tools, so
// external agents can search the Breslov texts over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/log"
	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/retrieval"
)

const defaultSearchLimit = 7

// Searcher is the hybrid search surface. *retrieval.Retriever satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]retrieval.Result, error)
}

// Server wraps the MCP SDK server around corpus retrieval.
type Server struct {
	mcpServer *mcp.Server
	searcher  Searcher
	index     retrieval.Index
	logger    log.Logger
}

// Config holds server identity.
type Config struct {
	Name    string
	Version string
}

// NewServer creates an MCP server exposing the retrieval tools.
func NewServer(cfg Config, searcher Searcher, index retrieval.Index, logger log.Logger) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("mcp: server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("mcp: server version is required")
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: cfg.Name, Version: cfg.Version}, nil),
		searcher:  searcher,
		index:     index,
		logger:    logger,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("mcp: register tools: %w", err)
	}
	return s, nil
}

// Run serves the MCP protocol on transport until ctx ends.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}

func (s *Server) registerTools() error {
	if err := s.registerSearchTexts(); err != nil {
		return err
	}
	return s.registerGetPassage()
}

// SearchTextsInput is the input schema of the searchTexts tool.
type SearchTextsInput struct {
	Query string `json:"query" jsonschema:"The question or topic to search the Breslov corpus for. Citations like 'Likutei Moharan 7' are resolved exactly."`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of passages to return (default 7)."`
}

// GetPassageInput is the input schema of the getPassage tool.
type GetPassageInput struct {
	Ref string `json:"ref" jsonschema:"Canonical reference of the passage, e.g. 'Likutei Moharan 282' or 'Sippurei Maasiyot 13'."`
}

func (s *Server) registerSearchTexts() error {
	schema, err := jsonschema.For[SearchTextsInput](nil)
	if err != nil {
		return fmt.Errorf("searchTexts schema: %w", err)
	}

	tool := &mcp.Tool{
		Name:        "searchTexts",
		Description: "Search Rabbi Nachman of Breslov's teachings. Combines exact citation lookup with semantic similarity search and returns passages with source references.",
		InputSchema: schema,
	}

	mcp.AddTool(s.mcpServer, tool, func(ctx context.Context, _ *mcp.CallToolRequest, in SearchTextsInput) (*mcp.CallToolResult, any, error) {
		limit := in.Limit
		if limit <= 0 {
			limit = defaultSearchLimit
		}

		results, err := s.searcher.Search(ctx, in.Query, limit)
		if err != nil {
			s.logger.Warn("searchTexts failed", "query", in.Query, "error", err)
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("search failed: %v", err)}},
				IsError: true,
			}, nil, nil
		}

		payload, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return nil, nil, fmt.Errorf("marshal results: %w", err)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(payload)}},
		}, nil, nil
	})
	return nil
}

func (s *Server) registerGetPassage() error {
	schema, err := jsonschema.For[GetPassageInput](nil)
	if err != nil {
		return fmt.Errorf("getPassage schema: %w", err)
	}

	tool := &mcp.Tool{
		Name:        "getPassage",
		Description: "Fetch every stored chunk of one passage by its canonical reference.",
		InputSchema: schema,
	}

	mcp.AddTool(s.mcpServer, tool, func(ctx context.Context, _ *mcp.CallToolRequest, in GetPassageInput) (*mcp.CallToolResult, any, error) {
		passages, err := s.index.ByRef(ctx, in.Ref)
		if err != nil {
			s.logger.Warn("getPassage failed", "ref", in.Ref, "error", err)
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("lookup failed: %v", err)}},
				IsError: true,
			}, nil, nil
		}
		if len(passages) == 0 {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("no passage found for %q", in.Ref)}},
				IsError: true,
			}, nil, nil
		}

		payload, err := json.MarshalIndent(passages, "", "  ")
		if err != nil {
			return nil, nil, fmt.Errorf("marshal passages: %w", err)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(payload)}},
		}, nil, nil
	})
	return nil
}
