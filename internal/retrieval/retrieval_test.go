package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/corpus"
	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/log"
)

type mockIndex struct {
	byRef      map[string][]corpus.Passage
	searchHits []corpus.Passage
	byRefErr   error
	searchErr  error
}

func (m *mockIndex) Search(_ context.Context, _ []float32, k int) ([]corpus.Passage, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if k > len(m.searchHits) {
		k = len(m.searchHits)
	}
	return m.searchHits[:k], nil
}

func (m *mockIndex) ByRef(_ context.Context, ref string) ([]corpus.Passage, error) {
	if m.byRefErr != nil {
		return nil, m.byRefErr
	}
	return m.byRef[ref], nil
}

type mockEmbedder struct {
	err error
}

func (m *mockEmbedder) Embed(context.Context, string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []float32{1, 0, 0}, nil
}

func passage(ref, text string, relevance float64) corpus.Passage {
	return corpus.Passage{
		Text:      text,
		Meta:      corpus.ChunkMeta{Title: "Likutei Moharan", Ref: ref},
		Relevance: relevance,
	}
}

func TestSearchSemanticOnly(t *testing.T) {
	idx := &mockIndex{
		searchHits: []corpus.Passage{
			passage("Likutei Moharan 282", "azamra text", 0.9),
			passage("Likutei Moharan 8", "breath text", 0.7),
		},
	}
	r := New(idx, &mockEmbedder{}, log.NewNop())

	got, err := r.Search(context.Background(), "finding the good points", 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, MatchSemantic, got[0].MatchType)
	assert.Equal(t, "Likutei Moharan 282", got[0].Ref)
	assert.Equal(t, 0.9, got[0].Relevance)
}

func TestSearchExactReferenceFirst(t *testing.T) {
	idx := &mockIndex{
		byRef: map[string][]corpus.Passage{
			"Likutei Moharan 7": {passage("Likutei Moharan 7", "cited chunk", 0)},
		},
		searchHits: []corpus.Passage{
			passage("Likutei Moharan 282", "very similar text", 0.99),
		},
	}
	r := New(idx, &mockEmbedder{}, log.NewNop())

	got, err := r.Search(context.Background(), "explain Torah 7", 5)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// The cited section outranks a semantically closer passage.
	assert.Equal(t, MatchExactReference, got[0].MatchType)
	assert.Equal(t, "Likutei Moharan 7", got[0].Ref)
	assert.Equal(t, 1.0, got[0].Relevance)
	assert.Equal(t, MatchSemantic, got[1].MatchType)
}

func TestSearchExactReferenceCap(t *testing.T) {
	chunks := []corpus.Passage{
		passage("Likutei Moharan 7", "chunk 0", 0),
		passage("Likutei Moharan 7", "chunk 1", 0),
		passage("Likutei Moharan 7", "chunk 2", 0),
		passage("Likutei Moharan 7", "chunk 3", 0),
	}
	idx := &mockIndex{byRef: map[string][]corpus.Passage{"Likutei Moharan 7": chunks}}
	r := New(idx, &mockEmbedder{}, log.NewNop())

	got, err := r.Search(context.Background(), "Torah 7", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, res := range got {
		assert.Equal(t, MatchExactReference, res.MatchType)
	}
}

func TestSearchDeduplicatesByRef(t *testing.T) {
	idx := &mockIndex{
		byRef: map[string][]corpus.Passage{
			"Likutei Moharan 7": {passage("Likutei Moharan 7", "cited", 0)},
		},
		searchHits: []corpus.Passage{
			passage("Likutei Moharan 7", "same section again", 0.95),
			passage("Sichot HaRan 52", "other section", 0.8),
			passage("Sichot HaRan 52", "other section bis", 0.75),
		},
	}
	r := New(idx, &mockEmbedder{}, log.NewNop())

	got, err := r.Search(context.Background(), "teaching 7", 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Likutei Moharan 7", got[0].Ref)
	assert.Equal(t, "Sichot HaRan 52", got[1].Ref)
}

func TestSearchRespectsLimit(t *testing.T) {
	idx := &mockIndex{
		searchHits: []corpus.Passage{
			passage("Likutei Moharan 1", "a", 0.9),
			passage("Likutei Moharan 2", "b", 0.8),
			passage("Likutei Moharan 3", "c", 0.7),
		},
	}
	r := New(idx, &mockEmbedder{}, log.NewNop())

	got, err := r.Search(context.Background(), "joy", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSearchEmptyIndex(t *testing.T) {
	r := New(&mockIndex{}, &mockEmbedder{}, log.NewNop())

	got, err := r.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchEmbedderFailureWithoutCitation(t *testing.T) {
	r := New(&mockIndex{}, &mockEmbedder{err: errors.New("quota")}, log.NewNop())

	_, err := r.Search(context.Background(), "what is joy", 5)
	assert.Error(t, err)
}

func TestSearchEmbedderFailureWithCitation(t *testing.T) {
	idx := &mockIndex{
		byRef: map[string][]corpus.Passage{
			"Likutei Moharan 7": {passage("Likutei Moharan 7", "cited chunk", 0)},
		},
	}
	r := New(idx, &mockEmbedder{err: errors.New("quota")}, log.NewNop())

	// The citation leg still answers when embedding is down.
	got, err := r.Search(context.Background(), "Torah 7", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, MatchExactReference, got[0].MatchType)
}

func TestSearchCitationLookupFailureDegrades(t *testing.T) {
	idx := &mockIndex{
		byRefErr: errors.New("backend down"),
		searchHits: []corpus.Passage{
			passage("Likutei Moharan 7", "semantic hit", 0.9),
		},
	}
	r := New(idx, &mockEmbedder{}, log.NewNop())

	got, err := r.Search(context.Background(), "Torah 7", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, MatchSemantic, got[0].MatchType)
}

func TestSearchKeywordBoost(t *testing.T) {
	idx := &mockIndex{
		searchHits: []corpus.Passage{
			passage("Likutei Moharan 1", "nothing relevant here", 0.80),
			passage("Likutei Moharan 2", "hitbodedut means secluded prayer", 0.78),
		},
	}

	plain := New(idx, &mockEmbedder{}, log.NewNop())
	got, err := plain.Search(context.Background(), "hitbodedut prayer", 5)
	require.NoError(t, err)
	assert.Equal(t, "Likutei Moharan 1", got[0].Ref)

	boosted := New(idx, &mockEmbedder{}, log.NewNop(), WithKeywordBoost())
	got, err = boosted.Search(context.Background(), "hitbodedut prayer", 5)
	require.NoError(t, err)

	// Two term matches lift 0.78 past 0.80.
	assert.Equal(t, "Likutei Moharan 2", got[0].Ref)
	assert.InDelta(t, 0.78*1.2, got[0].Relevance, 1e-9)
}

func TestSearchZeroK(t *testing.T) {
	r := New(&mockIndex{}, &mockEmbedder{}, log.NewNop())

	got, err := r.Search(context.Background(), "Torah 7", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}
