// Package retrieval implements hybrid passage retrieval: direct citation
// lookup combined with semantic vector search. A query that names a section
// ("Likutei Moharan 7") returns that section first, whatever the embedding
// distance says; everything else is filled by nearest-neighbor search.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/corpus"
	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/log"
	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/reference"
)

// Match type values reported on each result.
const (
	MatchExactReference = "exact_reference"
	MatchSemantic       = "semantic"
)

const (
	// maxExactResults caps how many chunks of a cited section are returned,
	// leaving room for semantic context around the citation.
	maxExactResults = 3

	// oversample widens the vector search so deduplication by reference
	// still leaves enough distinct results.
	oversample = 2
)

// Index is the search surface of a storage backend. Both the local flat
// index and the Postgres store satisfy it.
type Index interface {
	Search(ctx context.Context, query []float32, k int) ([]corpus.Passage, error)
	ByRef(ctx context.Context, ref string) ([]corpus.Passage, error)
}

// Embedder turns a query into a vector in the corpus embedding space.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Result is one retrieved passage.
type Result struct {
	Text      string  `json:"text"`
	Title     string  `json:"title"`
	Ref       string  `json:"ref"`
	Relevance float64 `json:"relevance"`
	MatchType string  `json:"match_type"`
}

// Retriever answers free-text queries against an index.
type Retriever struct {
	index        Index
	embedder     Embedder
	keywordBoost bool
	logger       log.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithKeywordBoost reranks semantic results by query-term overlap. Off by
// default: the boost helps keyword-heavy queries but can demote good
// paraphrase matches.
func WithKeywordBoost() Option {
	return func(r *Retriever) { r.keywordBoost = true }
}

// New creates a Retriever over index and embedder.
func New(index Index, embedder Embedder, logger log.Logger, opts ...Option) *Retriever {
	r := &Retriever{index: index, embedder: embedder, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Search returns up to k passages for the query. Exact citation hits come
// first with relevance 1.0; the rest is filled semantically, deduplicated
// by reference. When the query cites a section and the semantic leg fails,
// the citation hits are still returned.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]Result, error) {
	ctx, span := otel.Tracer("retrieval").Start(ctx, "retrieval.Search")
	defer span.End()
	span.SetAttributes(attribute.Int("retrieval.k", k))

	if k <= 0 {
		return nil, nil
	}

	exact := r.exactMatches(ctx, query, k)
	span.SetAttributes(attribute.Int("retrieval.exact_hits", len(exact)))

	seen := make(map[string]bool, k)
	out := make([]Result, 0, k)
	for _, res := range exact {
		out = append(out, res)
		seen[strings.ToLower(res.Ref)] = true
	}

	semantic, err := r.semanticMatches(ctx, query, k)
	if err != nil {
		if len(out) > 0 {
			r.logger.Warn("semantic search failed, returning citation hits only",
				"query", query, "error", err)
			return out, nil
		}
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return nil, err
	}

	for _, res := range semantic {
		if len(out) >= k {
			break
		}
		key := strings.ToLower(res.Ref)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, res)
	}

	span.SetAttributes(attribute.Int("retrieval.results", len(out)))
	return out, nil
}

// exactMatches resolves a citation in the query and looks its chunks up.
// Lookup failures degrade to pure semantic search rather than failing the
// whole query.
func (r *Retriever) exactMatches(ctx context.Context, query string, k int) []Result {
	ref, ok := reference.Resolve(query)
	if !ok {
		return nil
	}

	passages, err := r.index.ByRef(ctx, ref)
	if err != nil {
		r.logger.Warn("citation lookup failed", "ref", ref, "error", err)
		return nil
	}

	limit := min(maxExactResults, k)
	if len(passages) > limit {
		passages = passages[:limit]
	}

	out := make([]Result, len(passages))
	for i, p := range passages {
		out[i] = Result{
			Text:      p.Text,
			Title:     p.Meta.Title,
			Ref:       p.Meta.Ref,
			Relevance: 1.0,
			MatchType: MatchExactReference,
		}
	}
	return out
}

func (r *Retriever) semanticMatches(ctx context.Context, query string, k int) ([]Result, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	passages, err := r.index.Search(ctx, vec, k*oversample)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	out := make([]Result, len(passages))
	for i, p := range passages {
		out[i] = Result{
			Text:      p.Text,
			Title:     p.Meta.Title,
			Ref:       p.Meta.Ref,
			Relevance: p.Relevance,
			MatchType: MatchSemantic,
		}
	}

	if r.keywordBoost {
		boostByKeywords(query, out)
	}
	return out, nil
}

// boostByKeywords multiplies each relevance by 1 + 0.1 per distinct query
// term found in the passage, then re-sorts. Terms of three characters or
// fewer are ignored.
func boostByKeywords(query string, results []Result) {
	var terms []string
	for _, t := range strings.Fields(strings.ToLower(query)) {
		if len(t) > 3 {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return
	}

	for i := range results {
		text := strings.ToLower(results[i].Text)
		matches := 0
		for _, t := range terms {
			if strings.Contains(text, t) {
				matches++
			}
		}
		results[i].Relevance *= 1 + 0.1*float64(matches)
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Relevance > results[b].Relevance
	})
}
