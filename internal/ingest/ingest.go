// Package ingest runs the corpus build: chunk every document, embed the
// chunks in batches, and load them into a storage backend.
package ingest

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/chunker"
	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/corpus"
	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/log"
)

// maxEmbedRunes caps the text sent to the embedding API per chunk. Chunks
// are far smaller than this in practice; the cap only guards against a
// pathological document that defeated splitting.
const maxEmbedRunes = 8000

// Index receives the finished chunks. Both storage backends satisfy it.
type Index interface {
	AddChunks(ctx context.Context, chunks []corpus.Chunk, vectors [][]float32) error
}

// Embedder embeds many texts, returning a parallel slice where entries of
// failed batches are nil.
type Embedder interface {
	EmbedAll(ctx context.Context, texts []string) ([][]float32, error)
}

// Summary reports what an ingestion run did.
type Summary struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
	Indexed   int `json:"indexed"`
	Dropped   int `json:"dropped"`
}

// Pipeline wires the chunker, embedder and index together.
type Pipeline struct {
	chunker  *chunker.Chunker
	embedder Embedder
	index    Index
	logger   log.Logger
}

// New creates a Pipeline.
func New(ch *chunker.Chunker, embedder Embedder, index Index, logger log.Logger) *Pipeline {
	return &Pipeline{chunker: ch, embedder: embedder, index: index, logger: logger}
}

// Run ingests docs. Chunks whose embedding batch failed are dropped and
// counted in the summary; the run only fails when nothing can proceed.
func (p *Pipeline) Run(ctx context.Context, docs []corpus.Document) (Summary, error) {
	ctx, span := otel.Tracer("ingest").Start(ctx, "ingest.Run")
	defer span.End()
	span.SetAttributes(attribute.Int("ingest.documents", len(docs)))

	summary := Summary{Documents: len(docs)}

	var chunks []corpus.Chunk
	for _, doc := range docs {
		chunks = append(chunks, p.chunker.Chunk(doc)...)
	}
	summary.Chunks = len(chunks)
	if len(chunks) == 0 {
		p.logger.Warn("nothing to ingest", "documents", len(docs))
		return summary, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = corpus.Truncate(c.Text, maxEmbedRunes)
	}

	vectors, err := p.embedder.EmbedAll(ctx, texts)
	if err != nil {
		return summary, fmt.Errorf("ingest: embed corpus: %w", err)
	}

	kept := make([]corpus.Chunk, 0, len(chunks))
	keptVecs := make([][]float32, 0, len(chunks))
	for i, v := range vectors {
		if v == nil {
			summary.Dropped++
			continue
		}
		kept = append(kept, chunks[i])
		keptVecs = append(keptVecs, v)
	}
	if summary.Dropped > 0 {
		p.logger.Warn("dropped chunks with failed embeddings", "dropped", summary.Dropped)
	}
	if len(kept) == 0 {
		return summary, fmt.Errorf("ingest: every embedding batch failed")
	}

	if err := p.index.AddChunks(ctx, kept, keptVecs); err != nil {
		return summary, fmt.Errorf("ingest: index chunks: %w", err)
	}
	summary.Indexed = len(kept)

	p.logger.Info("ingestion complete",
		"documents", summary.Documents,
		"chunks", summary.Chunks,
		"indexed", summary.Indexed,
		"dropped", summary.Dropped)
	span.SetAttributes(attribute.Int("ingest.indexed", summary.Indexed))
	return summary, nil
}
