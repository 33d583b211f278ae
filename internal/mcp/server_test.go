package mcp

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/corpus"
	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/log"
	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/retrieval"
)

type stubSearcher struct {
	results []retrieval.Result
	err     error
}

func (s *stubSearcher) Search(context.Context, string, int) ([]retrieval.Result, error) {
	return s.results, s.err
}

type stubIndex struct {
	passages map[string][]corpus.Passage
	err      error
}

func (s *stubIndex) Search(context.Context, []float32, int) ([]corpus.Passage, error) {
	return nil, nil
}

func (s *stubIndex) ByRef(_ context.Context, ref string) ([]corpus.Passage, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.passages[ref], nil
}

// connectServer builds a server over the given stubs and returns a client
// session wired through in-memory transports.
func connectServer(t *testing.T, searcher Searcher, index retrieval.Index) *mcp.ClientSession {
	t.Helper()

	server, err := NewServer(Config{Name: "guezi", Version: "test"}, searcher, index, log.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	serverSession, err := server.mcpServer.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = clientSession.Close() })

	return clientSession
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content")
	return tc.Text
}

func TestNewServerRequiresIdentity(t *testing.T) {
	_, err := NewServer(Config{}, &stubSearcher{}, &stubIndex{}, log.NewNop())
	assert.Error(t, err)

	_, err = NewServer(Config{Name: "guezi"}, &stubSearcher{}, &stubIndex{}, log.NewNop())
	assert.Error(t, err)
}

func TestListTools(t *testing.T) {
	session := connectServer(t, &stubSearcher{}, &stubIndex{})

	result, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"getPassage", "searchTexts"}, names)
}

func TestSearchTexts(t *testing.T) {
	searcher := &stubSearcher{results: []retrieval.Result{{
		Text:      "Gevalt! Never give up hope.",
		Title:     "Likutei Moharan, Part II",
		Ref:       "Likutei Moharan, Part II 78",
		Relevance: 0.88,
		MatchType: retrieval.MatchSemantic,
	}}}
	session := connectServer(t, searcher, &stubIndex{})

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "searchTexts",
		Arguments: map[string]any{"query": "never give up"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	text := textOf(t, res)
	assert.Contains(t, text, "Likutei Moharan, Part II 78")
	assert.Contains(t, text, "Gevalt")
}

func TestSearchTextsError(t *testing.T) {
	session := connectServer(t, &stubSearcher{err: errors.New("backend down")}, &stubIndex{})

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "searchTexts",
		Arguments: map[string]any{"query": "anything"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "search failed")
}

func TestGetPassage(t *testing.T) {
	index := &stubIndex{passages: map[string][]corpus.Passage{
		"Likutei Moharan 282": {{
			Text: "Azamra passage text",
			Meta: corpus.ChunkMeta{Title: "Likutei Moharan", Ref: "Likutei Moharan 282"},
		}},
	}}
	session := connectServer(t, &stubSearcher{}, index)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "getPassage",
		Arguments: map[string]any{"ref": "Likutei Moharan 282"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, textOf(t, res), "Azamra passage text")
}

func TestGetPassageNotFound(t *testing.T) {
	session := connectServer(t, &stubSearcher{}, &stubIndex{})

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "getPassage",
		Arguments: map[string]any{"ref": "Likutei Moharan 9999"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "no passage found")
}
