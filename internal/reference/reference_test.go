package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"book with number", "Likutei Moharan 1", "Likutei Moharan 1"},
		{"book inside question", "What does Likutei Moharan 6 say about prayer?", "Likutei Moharan 6"},
		{"abbreviation", "explain LM 12 please", "Likutei Moharan 12"},
		{"torah keyword", "What is Torah 1 in Likutei Moharan?", "Likutei Moharan 1"},
		{"teaching keyword", "Teaching 7", "Likutei Moharan 7"},
		{"lesson keyword", "lesson 282", "Likutei Moharan 282"},
		{"part two", "Likutei Moharan Part II 7", "Likutei Moharan, Part II 7"},
		{"part two digits", "likutei moharan 2 7", "Likutei Moharan, Part II 7"},
		{"stories", "tell me story 3", "Sippurei Maasiyot 3"},
		{"tale", "the tale 13", "Sippurei Maasiyot 13"},
		{"seven beggars alias", "the story of the Seven Beggars", "Sippurei Maasiyot 13"},
		{"conversations", "Sichot HaRan 52", "Sichot HaRan 52"},
		{"conversation keyword", "conversation 2", "Sichot HaRan 2"},
		{"chayei", "Chayei Moharan 40", "Chayei Moharan 40"},
		{"prayers", "prayer 10", "Likutei Tefilot, Volume I 10"},
		{"tikkun", "what is the Tikkun HaKlali", "Tikkun HaKlali"},
		{"french enseignement", "explique l'enseignement 4", "Likutei Moharan 4"},
		{"french seven beggars", "les sept mendiants", "Sippurei Maasiyot 13"},
		{"hebrew torah", "מה כתוב בתורה 3", "Likutei Moharan 3"},
		{"hebrew stories", "סיפורי מעשיות 5", "Sippurei Maasiyot 5"},
		{"hebrew tikkun", "תיקון הכללי", "Tikkun HaKlali"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.query)
			assert.True(t, ok, "expected a reference for %q", tt.query)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveNumberWords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query string
		want  string
	}{
		{"the first teaching", "Likutei Moharan 1"},
		{"the seventh teaching", "Likutei Moharan 7"},
		{"second lesson", "Likutei Moharan 2"},
		{"the third tale", "Sippurei Maasiyot 3"},
		{"le premier enseignement", "Likutei Moharan 1"},
		{"the first Likutei Moharan", "Likutei Moharan 1"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, ok := Resolve(tt.query)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveSameCanonicalRef(t *testing.T) {
	t.Parallel()

	// Spelled-out and digit citations must land on the same ref.
	a, okA := Resolve("Teaching 7")
	b, okB := Resolve("the seventh teaching")
	assert.True(t, okA)
	assert.True(t, okB)
	assert.Equal(t, a, b)
}

func TestResolveNoMatch(t *testing.T) {
	t.Parallel()

	queries := []string{
		"",
		"tell me about hitbodedut",
		"what is joy",
		"is despair forbidden?",
		"likutei moharan", // book name without a section number
	}

	for _, q := range queries {
		ref, ok := Resolve(q)
		assert.False(t, ok, "unexpected reference %q for %q", ref, q)
		assert.Empty(t, ref)
	}
}

func TestResolvePartTwoPriority(t *testing.T) {
	t.Parallel()

	// The Part II rule must win over the generic Likutei Moharan rule;
	// a generic-first ordering would misread the part marker.
	got, ok := Resolve("likutei moharan part 2 48")
	assert.True(t, ok)
	assert.Equal(t, "Likutei Moharan, Part II 48", got)
}
