// Package chunker splits bilingual source documents into semantically
// coherent, size-bounded, overlapping text segments suitable for embedding.
//
// Chunking is deterministic: the same document and configuration always
// produce identical chunk boundaries and chunk IDs, so a re-run of corpus
// ingestion is idempotent at the chunk level.
package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/corpus"
)

// Default sizes, in runes. The overlap is roughly 15% of the target size
// used when the corpus was originally tuned.
const (
	DefaultMaxChunkSize = 1500
	DefaultMinChunkSize = 200
	DefaultOverlapSize  = 150

	// displayLimit bounds the truncated Hebrew/English copies carried on
	// each chunk for display purposes.
	displayLimit = 4000
)

// Config controls chunk sizing. The zero value selects the defaults.
type Config struct {
	// MaxChunkSize is the ceiling for a chunk's text length in runes.
	MaxChunkSize int

	// MinChunkSize is the floor below which a trailing chunk is merged
	// backward into its predecessor instead of being emitted standalone.
	MinChunkSize int

	// OverlapSize bounds the text carried over from one chunk into the
	// next to preserve context across the cut.
	OverlapSize int
}

func (c Config) withDefaults() Config {
	if c.MaxChunkSize <= 0 {
		c.MaxChunkSize = DefaultMaxChunkSize
	}
	if c.MinChunkSize <= 0 {
		c.MinChunkSize = DefaultMinChunkSize
	}
	if c.OverlapSize <= 0 {
		c.OverlapSize = DefaultOverlapSize
	}
	return c
}

// Chunker splits documents according to a fixed configuration.
// A Chunker is stateless and safe for concurrent use.
type Chunker struct {
	cfg Config
}

// New creates a Chunker. Zero-valued config fields fall back to defaults.
func New(cfg Config) *Chunker {
	return &Chunker{cfg: cfg.withDefaults()}
}

// Chunk splits one document into embedding-ready chunks.
//
// The document text is normalized first: markup stripped, the Hebrew and
// English fields concatenated under a leading "[Title - Ref]" tag (so the
// citation itself is searchable by the embedding model), and whitespace
// collapsed. Empty or whitespace-only documents yield no chunks.
func (c *Chunker) Chunk(doc corpus.Document) []corpus.Chunk {
	combined := c.combine(doc)
	if combined == "" {
		return nil
	}

	// Short documents become exactly one chunk, no splitting overhead.
	if corpus.RuneLen(combined) <= c.cfg.MaxChunkSize {
		return []corpus.Chunk{c.newChunk(doc, combined, 0, 1)}
	}

	texts := c.pack(c.segments(combined))

	chunks := make([]corpus.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = c.newChunk(doc, text, i, len(texts))
	}
	return chunks
}

// combine builds the normalized bilingual text that gets chunked.
func (c *Chunker) combine(doc corpus.Document) string {
	parts := []string{fmt.Sprintf("[%s - %s]", doc.Title, doc.Ref)}

	if doc.English != "" {
		parts = append(parts, doc.English)
	}
	if doc.Hebrew != "" {
		parts = append(parts, doc.Hebrew)
	}
	// Fall back to the pre-combined text when the source had no separate
	// language fields.
	if len(parts) == 1 {
		if doc.Combined == "" {
			return ""
		}
		parts = append(parts, doc.Combined)
	}

	return corpus.Normalize(strings.Join(parts, "\n\n"))
}

func (c *Chunker) newChunk(doc corpus.Document, text string, index, total int) corpus.Chunk {
	return corpus.Chunk{
		Title:       doc.Title,
		Ref:         doc.Ref,
		ChunkID:     fmt.Sprintf("%s_%d", doc.Ref, index),
		Hebrew:      corpus.Truncate(doc.Hebrew, displayLimit),
		English:     corpus.Truncate(doc.English, displayLimit),
		Text:        text,
		ChunkIndex:  index,
		TotalChunks: total,
	}
}

// segments splits normalized text into packable units: paragraphs first,
// then sentences for any paragraph over the ceiling, then hard splits for
// the rare sentence that is itself oversized.
func (c *Chunker) segments(text string) []string {
	// Oversized sentences are hard-split below the ceiling minus the
	// overlap so a seeded chunk always has room for its first segment.
	hardLimit := c.cfg.MaxChunkSize - c.cfg.OverlapSize - 1
	if hardLimit <= 0 {
		hardLimit = c.cfg.MaxChunkSize
	}

	var segments []string
	for _, para := range strings.Split(text, "\n\n") {
		if corpus.RuneLen(para) <= c.cfg.MaxChunkSize {
			segments = append(segments, para)
			continue
		}
		for _, sentence := range splitSentences(para) {
			if corpus.RuneLen(sentence) <= hardLimit {
				segments = append(segments, sentence)
				continue
			}
			segments = append(segments, hardSplit(sentence, hardLimit)...)
		}
	}
	return segments
}

// pack greedily fills chunks with segments up to MaxChunkSize. When a chunk
// closes, the next one is seeded with the tail of the previous chunk's text
// (bounded by OverlapSize) so context survives the cut. A trailing chunk
// under MinChunkSize is merged backward when the merge still fits under the
// ceiling; otherwise it is kept standalone rather than violating the ceiling.
func (c *Chunker) pack(segments []string) []string {
	var chunks []string
	var cur []string
	curLen := 0

	for _, seg := range segments {
		segLen := corpus.RuneLen(seg)

		if curLen > 0 && curLen+1+segLen > c.cfg.MaxChunkSize {
			text := strings.Join(cur, " ")
			chunks = append(chunks, text)

			seed := overlapTail(text, c.cfg.OverlapSize, c.cfg.MaxChunkSize-1-segLen)
			if seed != "" {
				cur = []string{seed}
				curLen = corpus.RuneLen(seed)
			} else {
				cur = nil
				curLen = 0
			}
		}

		cur = append(cur, seg)
		if curLen == 0 {
			curLen = segLen
		} else {
			curLen += 1 + segLen
		}
	}

	if len(cur) == 0 {
		return chunks
	}

	text := strings.Join(cur, " ")
	if corpus.RuneLen(text) >= c.cfg.MinChunkSize || len(chunks) == 0 {
		return append(chunks, text)
	}

	merged := chunks[len(chunks)-1] + " " + text
	if corpus.RuneLen(merged) <= c.cfg.MaxChunkSize {
		chunks[len(chunks)-1] = merged
		return chunks
	}
	return append(chunks, text)
}

// overlapTail returns the longest word-boundary suffix of text whose rune
// length fits within both the overlap bound and the remaining capacity of
// the next chunk. Returns "" when nothing fits.
func overlapTail(text string, overlap, capacity int) string {
	limit := overlap
	if capacity < limit {
		limit = capacity
	}
	if limit <= 0 {
		return ""
	}

	words := strings.Fields(text)
	total := 0
	start := len(words)
	for i := len(words) - 1; i >= 0; i-- {
		wl := corpus.RuneLen(words[i])
		if total > 0 {
			wl++ // joining space
		}
		if total+wl > limit {
			break
		}
		total += wl
		start = i
	}
	if start == len(words) {
		return ""
	}
	return strings.Join(words[start:], " ")
}

// sentenceTerminators covers Latin punctuation and Hebrew sentence-final
// marks (sof pasuq) found in the corpus, plus the ideographic full stop
// which appears in some imported translations.
func isTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', ':', '׃', '。':
		return true
	}
	return false
}

// splitSentences splits a paragraph after each terminator that is followed
// by whitespace (or ends the paragraph).
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)

	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) {
			continue
		}
		end := i + 1
		if end < len(runes) && !unicode.IsSpace(runes[end]) {
			continue // e.g. "1:3" or an abbreviation, not a boundary
		}
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			sentences = append(sentences, s)
		}
		for end < len(runes) && unicode.IsSpace(runes[end]) {
			end++
		}
		start = end
		i = end - 1
	}

	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// hardSplit cuts an oversized sentence into rune-bounded pieces, preferring
// word boundaries when one exists inside the window.
func hardSplit(text string, limit int) []string {
	var pieces []string
	runes := []rune(text)

	for len(runes) > 0 {
		if len(runes) <= limit {
			pieces = append(pieces, strings.TrimSpace(string(runes)))
			break
		}

		cut := limit
		for i := limit; i > limit/2; i-- {
			if unicode.IsSpace(runes[i]) {
				cut = i
				break
			}
		}

		if piece := strings.TrimSpace(string(runes[:cut])); piece != "" {
			pieces = append(pieces, piece)
		}
		runes = runes[cut:]
		for len(runes) > 0 && unicode.IsSpace(runes[0]) {
			runes = runes[1:]
		}
	}
	return pieces
}
