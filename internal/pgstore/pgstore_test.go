package pgstore

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodeNoLimits/guezi-rag-chatbot/db"
	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/corpus"
	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/log"
)

const testDim = 3072

// setupStore connects to the database named by GUEZI_TEST_DATABASE_URL,
// runs migrations and starts from an empty table. Tests are skipped when
// the variable is unset so the suite runs without infrastructure.
func setupStore(t *testing.T) *Store {
	t.Helper()

	url := os.Getenv("GUEZI_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("GUEZI_TEST_DATABASE_URL not set")
	}

	require.NoError(t, db.Migrate(url))

	ctx := context.Background()
	pool, err := Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := New(pool, 0.1, log.NewNop())
	require.NoError(t, store.Clear(ctx))
	return store
}

// basisVector returns a unit vector along axis i, so cosine similarity
// between different chunks is exactly 0 and self-similarity exactly 1.
func basisVector(i int) []float32 {
	v := make([]float32, testDim)
	v[i%testDim] = 1
	return v
}

func testChunks(n int) ([]corpus.Chunk, [][]float32) {
	chunks := make([]corpus.Chunk, n)
	vectors := make([][]float32, n)
	for i := range chunks {
		chunks[i] = corpus.Chunk{
			Title:       "Likutei Moharan",
			Ref:         fmt.Sprintf("Likutei Moharan %d", i+1),
			ChunkID:     fmt.Sprintf("Likutei Moharan %d_0", i+1),
			Text:        fmt.Sprintf("passage %d", i+1),
			ChunkIndex:  0,
			TotalChunks: 1,
		}
		vectors[i] = basisVector(i)
	}
	return chunks, vectors
}

func TestStoreRoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	chunks, vectors := testChunks(3)
	require.NoError(t, store.AddChunks(ctx, chunks, vectors))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	got, err := store.Search(ctx, basisVector(1), 2)
	require.NoError(t, err)
	require.Len(t, got, 1, "orthogonal chunks fall below the threshold")
	assert.Equal(t, "passage 2", got[0].Text)
	assert.InDelta(t, 1.0, got[0].Relevance, 1e-6)
}

func TestStoreUpsertReplaces(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	chunks, vectors := testChunks(1)
	require.NoError(t, store.AddChunks(ctx, chunks, vectors))

	chunks[0].Text = "revised passage"
	require.NoError(t, store.AddChunks(ctx, chunks, vectors))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := store.Search(ctx, vectors[0], 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "revised passage", got[0].Text)
}

func TestStoreByRef(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	chunks, vectors := testChunks(2)
	require.NoError(t, store.AddChunks(ctx, chunks, vectors))

	got, err := store.ByRef(ctx, "likutei moharan 2")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Likutei Moharan 2", got[0].Meta.Ref)
	assert.Equal(t, 1.0, got[0].Relevance)

	none, err := store.ByRef(ctx, "Sichot HaRan 1")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStoreRejectsMissingVector(t *testing.T) {
	store := setupStore(t)

	chunks, vectors := testChunks(2)
	vectors[1] = nil
	err := store.AddChunks(context.Background(), chunks, vectors)
	assert.Error(t, err)
}

func TestStoreClear(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	chunks, vectors := testChunks(2)
	require.NoError(t, store.AddChunks(ctx, chunks, vectors))
	require.NoError(t, store.Clear(ctx))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
