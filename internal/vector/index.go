// Package vector implements a local flat vector index with exhaustive L2
// search. It is the zero-infrastructure storage backend: vectors live in a
// binary file next to a JSON metadata sidecar, guarded by a file lock so
// only one process writes a collection at a time.
package vector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/corpus"
	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/log"
)

// Index is an in-memory flat index persisted to disk after every mutation.
// All methods are safe for concurrent use within a process; cross-process
// exclusion is the file lock's job.
type Index struct {
	mu         sync.RWMutex
	dir        string
	collection string
	dim        int

	vectors   [][]float32
	documents []string
	metas     []corpus.ChunkMeta

	lock   *flock.Flock
	logger log.Logger
}

// Stats describes the index contents.
type Stats struct {
	Collection string `json:"collection"`
	Count      int    `json:"count"`
	Dimensions int    `json:"dimensions"`
}

// Open loads (or creates) the collection under dir. It takes an exclusive
// file lock for the lifetime of the Index; a second writer on the same
// collection fails fast instead of corrupting the files. A corrupt or
// incompatible on-disk state loads as an empty index so a rebuild can
// proceed.
func Open(dir, collection string, dim int, logger log.Logger) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("vector: dimensions must be positive, got %d", dim)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("vector: create data dir: %w", err)
	}

	lock := flock.New(filepath.Join(dir, collection+".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("vector: lock collection %q: %w", collection, err)
	}
	if !locked {
		return nil, fmt.Errorf("vector: collection %q is locked by another process", collection)
	}

	idx := &Index{
		dir:        dir,
		collection: collection,
		dim:        dim,
		lock:       lock,
		logger:     logger,
	}
	idx.load()
	return idx, nil
}

// Close releases the collection lock.
func (idx *Index) Close() error {
	return idx.lock.Unlock()
}

// Add appends vectors with their documents and metadata and persists the
// index before returning, so a crash after Add never loses accepted data.
func (idx *Index) Add(ctx context.Context, vectors [][]float32, documents []string, metas []corpus.ChunkMeta) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(vectors) != len(documents) || len(vectors) != len(metas) {
		return fmt.Errorf("vector: mismatched lengths: %d vectors, %d documents, %d metadatas",
			len(vectors), len(documents), len(metas))
	}
	for i, v := range vectors {
		if len(v) != idx.dim {
			return fmt.Errorf("vector: vector %d has %d dimensions, index uses %d", i, len(v), idx.dim)
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.vectors = append(idx.vectors, vectors...)
	idx.documents = append(idx.documents, documents...)
	idx.metas = append(idx.metas, metas...)

	if err := idx.persist(); err != nil {
		return fmt.Errorf("vector: persist after add: %w", err)
	}
	return nil
}

// AddChunks indexes chunks with their vectors. vectors must be parallel to
// chunks with no nil entries.
func (idx *Index) AddChunks(ctx context.Context, chunks []corpus.Chunk, vectors [][]float32) error {
	documents := make([]string, len(chunks))
	metas := make([]corpus.ChunkMeta, len(chunks))
	for i, c := range chunks {
		documents[i] = c.Text
		metas[i] = c.Metadata()
	}
	return idx.Add(ctx, vectors, documents, metas)
}

// Search returns the k nearest passages by squared L2 distance, closest
// first. Relevance is 1/(1+distance). An empty index yields no results and
// no error.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]corpus.Passage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(query) != idx.dim {
		return nil, fmt.Errorf("vector: query has %d dimensions, index uses %d", len(query), idx.dim)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.vectors) == 0 || k <= 0 {
		return nil, nil
	}

	type scored struct {
		i int
		d float64
	}
	scores := make([]scored, len(idx.vectors))
	for i, v := range idx.vectors {
		scores[i] = scored{i: i, d: sqDistance(query, v)}
	}
	sort.Slice(scores, func(a, b int) bool { return scores[a].d < scores[b].d })

	if k > len(scores) {
		k = len(scores)
	}
	out := make([]corpus.Passage, k)
	for j := range out {
		s := scores[j]
		out[j] = corpus.Passage{
			Text:      idx.documents[s.i],
			Meta:      idx.metas[s.i],
			Distance:  s.d,
			Relevance: 1 / (1 + s.d),
		}
	}
	return out, nil
}

// ByRef returns every passage whose reference equals ref, ignoring case,
// in insertion order.
func (idx *Index) ByRef(ctx context.Context, ref string) ([]corpus.Passage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []corpus.Passage
	for i, m := range idx.metas {
		if strings.EqualFold(m.Ref, ref) {
			out = append(out, corpus.Passage{
				Text:      idx.documents[i],
				Meta:      m,
				Relevance: 1,
			})
		}
	}
	return out, nil
}

// Clear removes every entry and persists the empty state.
func (idx *Index) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.vectors = nil
	idx.documents = nil
	idx.metas = nil

	if err := idx.persist(); err != nil {
		return fmt.Errorf("vector: persist after clear: %w", err)
	}
	return nil
}

// Count returns the number of stored passages.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// Stats returns a summary of the index.
func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return Stats{
		Collection: idx.collection,
		Count:      len(idx.vectors),
		Dimensions: idx.dim,
	}
}

func sqDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
