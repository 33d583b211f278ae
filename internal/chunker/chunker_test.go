package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/corpus"
)

// repeatSentences builds a paragraph of n short sentences.
func repeatSentences(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "Sentence number %d speaks about joy and simplicity. ", i)
	}
	return strings.TrimSpace(b.String())
}

func TestChunkShortDocument(t *testing.T) {
	t.Parallel()

	c := New(Config{MaxChunkSize: 1000})
	doc := corpus.Document{
		Title:   "Likutei Moharan",
		Ref:     "Likutei Moharan 1",
		Hebrew:  "אשרי תמימי דרך",
		English: strings.Repeat("Torah 1 text about joy. ", 14), // ~340 runes combined
	}

	chunks := c.Chunk(doc)
	require.Len(t, chunks, 1)

	got := chunks[0]
	assert.Equal(t, 0, got.ChunkIndex)
	assert.Equal(t, 1, got.TotalChunks)
	assert.Equal(t, "Likutei Moharan 1_0", got.ChunkID)
	assert.Equal(t, "Likutei Moharan 1", got.Ref)
	assert.True(t, strings.HasPrefix(got.Text, "[Likutei Moharan - Likutei Moharan 1]"),
		"chunk text should lead with the searchable reference tag")
	assert.Contains(t, got.Text, "Torah 1 text about joy.")
	assert.Contains(t, got.Text, "אשרי תמימי דרך")
}

func TestChunkEmptyDocument(t *testing.T) {
	t.Parallel()

	c := New(Config{})

	tests := []struct {
		name string
		doc  corpus.Document
	}{
		{"all empty", corpus.Document{Title: "Book", Ref: "Book 1"}},
		{"whitespace only", corpus.Document{Title: "Book", Ref: "Book 1", English: "   \n\n  "}},
		{"markup only", corpus.Document{Title: "Book", Ref: "Book 1", Hebrew: "<i></i>"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, c.Chunk(tt.doc))
		})
	}
}

func TestChunkLongDocumentBounds(t *testing.T) {
	t.Parallel()

	cfg := Config{MaxChunkSize: 300, MinChunkSize: 60, OverlapSize: 50}
	c := New(cfg)

	doc := corpus.Document{
		Title:   "Sichot HaRan",
		Ref:     "Sichot HaRan 12",
		English: repeatSentences(40),
	}

	chunks := c.Chunk(doc)
	require.Greater(t, len(chunks), 1, "document should be split")

	for i, ch := range chunks {
		assert.LessOrEqual(t, corpus.RuneLen(ch.Text), cfg.MaxChunkSize,
			"chunk %d exceeds ceiling", i)
		assert.Equal(t, i, ch.ChunkIndex)
		assert.Equal(t, len(chunks), ch.TotalChunks)
		assert.Equal(t, fmt.Sprintf("Sichot HaRan 12_%d", i), ch.ChunkID)
	}
}

func TestChunkOverlap(t *testing.T) {
	t.Parallel()

	cfg := Config{MaxChunkSize: 300, MinChunkSize: 60, OverlapSize: 50}
	c := New(cfg)

	chunks := c.Chunk(corpus.Document{
		Title:   "Sichot HaRan",
		Ref:     "Sichot HaRan 12",
		English: repeatSentences(40),
	})
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1].Text, chunks[i].Text

		// The successor opens with a word-boundary suffix of its
		// predecessor, bounded by the configured overlap.
		overlap := longestSharedBoundary(prev, cur)
		assert.NotEmpty(t, overlap, "chunk %d shares no overlap with predecessor", i)
		assert.LessOrEqual(t, corpus.RuneLen(overlap), cfg.OverlapSize)
	}
}

// longestSharedBoundary returns the longest suffix of prev that is a prefix
// of cur.
func longestSharedBoundary(prev, cur string) string {
	for i := 0; i < len(prev); i++ {
		if strings.HasPrefix(cur, prev[i:]) {
			return prev[i:]
		}
	}
	return ""
}

func TestChunkDeterminism(t *testing.T) {
	t.Parallel()

	c := New(Config{MaxChunkSize: 250, MinChunkSize: 50, OverlapSize: 40})
	doc := corpus.Document{
		Title:   "Likutei Moharan",
		Ref:     "Likutei Moharan 7",
		English: repeatSentences(30),
		Hebrew:  strings.Repeat("עבודת השם בשמחה ובטוב לבב׃ ", 20),
	}

	first := c.Chunk(doc)
	second := c.Chunk(doc)
	require.Equal(t, len(first), len(second))

	for i := range first {
		assert.Equal(t, first[i].ChunkID, second[i].ChunkID)
		assert.Equal(t, first[i].Text, second[i].Text)
	}
}

func TestChunkNoTinyTrailer(t *testing.T) {
	t.Parallel()

	cfg := Config{MaxChunkSize: 300, MinChunkSize: 100, OverlapSize: 40}
	c := New(cfg)

	chunks := c.Chunk(corpus.Document{
		Title:   "Chayei Moharan",
		Ref:     "Chayei Moharan 3",
		English: repeatSentences(25),
	})
	require.NotEmpty(t, chunks)

	last := chunks[len(chunks)-1]
	if len(chunks) > 1 && corpus.RuneLen(last.Text) < cfg.MinChunkSize {
		// A sub-minimum trailer is only allowed when merging it back
		// would have pushed the predecessor over the ceiling.
		prev := chunks[len(chunks)-2]
		merged := corpus.RuneLen(prev.Text) + 1 + corpus.RuneLen(last.Text)
		assert.Greater(t, merged, cfg.MaxChunkSize)
	}
}

func TestChunkHebrewSentenceSplit(t *testing.T) {
	t.Parallel()

	c := New(Config{MaxChunkSize: 200, MinChunkSize: 40, OverlapSize: 30})

	// Hebrew text punctuated only with sof pasuq must still find
	// sentence boundaries instead of hard-cutting mid-phrase.
	doc := corpus.Document{
		Title:  "Likutei Tefilot",
		Ref:    "Likutei Tefilot, Volume I 2",
		Hebrew: strings.Repeat("רבונו של עולם זכני לשמחה תמידית׃ ", 25),
	}

	chunks := c.Chunk(doc)
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.LessOrEqual(t, corpus.RuneLen(ch.Text), 200)
	}
}

func TestChunkStripsMarkup(t *testing.T) {
	t.Parallel()

	c := New(Config{})
	chunks := c.Chunk(corpus.Document{
		Title:   "Sippurei Maasiyot",
		Ref:     "Sippurei Maasiyot 13",
		English: `Once there was a <b>king</b> who had <i>six sons</i> and one daughter.`,
	})
	require.Len(t, chunks, 1)
	assert.NotContains(t, chunks[0].Text, "<b>")
	assert.Contains(t, chunks[0].Text, "king")
	assert.Contains(t, chunks[0].Text, "six sons")
}

func TestChunkFallsBackToCombined(t *testing.T) {
	t.Parallel()

	c := New(Config{})
	chunks := c.Chunk(corpus.Document{
		Title:    "Tikkun HaKlali",
		Ref:      "Tikkun HaKlali 1",
		Combined: "Psalm sixteen, a michtam of David.",
	})
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Text, "michtam of David")
}
