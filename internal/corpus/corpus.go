// Package corpus defines the record types shared across the retrieval
// pipeline: source documents fetched from Sefaria, the chunks derived from
// them, and the index entries returned by vector search.
package corpus

// Document is a raw source unit as supplied by the text-source collaborator.
// Documents are immutable inputs to chunking; they are produced once per
// corpus fetch and never mutated afterwards.
type Document struct {
	// Title is the book name, e.g. "Likutei Moharan".
	Title string `json:"title"`

	// Ref is the hierarchical citation string, e.g. "Likutei Moharan 1:3".
	Ref string `json:"ref"`

	// Hebrew holds the original-language text. May contain HTML markup
	// as delivered by the Sefaria API.
	Hebrew string `json:"hebrew"`

	// English holds the translation text. Empty when no translation exists.
	English string `json:"english"`

	// Combined is the derived bilingual text. It is a fallback used when
	// Hebrew and English are not separately available.
	Combined string `json:"combined,omitempty"`
}

// Chunk is a unit of retrievable text derived from one Document.
// Chunks are created once at corpus-build time and are read-only after
// indexing; a corpus rebuild replaces them wholesale.
type Chunk struct {
	Title string `json:"title"`

	// Ref is the owning Document's citation.
	Ref string `json:"ref"`

	// ChunkID uniquely identifies the chunk as "{ref}_{index}".
	ChunkID string `json:"chunk_id"`

	// Hebrew and English are truncated copies kept for display.
	Hebrew  string `json:"hebrew"`
	English string `json:"english"`

	// Text is the bounded-length content that is actually embedded.
	Text string `json:"combined"`

	ChunkIndex  int `json:"chunk_index"`
	TotalChunks int `json:"total_chunks"`
}

// ChunkMeta is the per-entry metadata record persisted alongside each
// embedding vector. The sidecar metadata sequence and the vector sequence
// must never diverge in length.
type ChunkMeta struct {
	Title   string `json:"title"`
	Ref     string `json:"ref"`
	Hebrew  string `json:"hebrew"`
	English string `json:"english"`
}

// Passage is an index entry surfaced by a vector search or an exact
// reference lookup. Passages are ephemeral, produced per query, and are
// never persisted.
type Passage struct {
	Text string
	Meta ChunkMeta

	// Distance is the raw distance reported by the index backend
	// (Euclidean for the local index, 1-cosine for the hosted one).
	Distance float64

	// Relevance is the bounded score 1/(1+distance), uniform across
	// backends so callers can threshold without knowing the distance scale.
	Relevance float64
}

// Meta extracts the metadata record for a chunk.
func (c Chunk) Metadata() ChunkMeta {
	return ChunkMeta{
		Title:   c.Title,
		Ref:     c.Ref,
		Hebrew:  Truncate(c.Hebrew, 1000),
		English: Truncate(c.English, 1000),
	}
}
