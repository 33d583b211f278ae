package corpus

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

var blankLines = regexp.MustCompile(`\n\s*\n`)

// StripMarkup removes HTML-like markup from Sefaria texts, keeping only the
// text content. Tags are replaced with a single space so that adjacent words
// do not fuse, and entities are unescaped.
func StripMarkup(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			b.WriteByte(' ')
		}
	}
}

// Normalize strips markup and collapses whitespace while preserving
// paragraph boundaries: runs of blank lines become exactly "\n\n", and all
// other whitespace runs become a single space. Normalization is a pure
// function; the chunker relies on that for deterministic chunk boundaries.
func Normalize(s string) string {
	s = StripMarkup(s)

	paragraphs := blankLines.Split(s, -1)
	kept := paragraphs[:0]
	for _, p := range paragraphs {
		p = strings.Join(strings.Fields(p), " ")
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}

// Truncate shortens s to at most n runes. Sefaria passages mix Hebrew and
// Latin script, so byte-based slicing would cut multi-byte runes in half.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// RuneLen reports the length of s in runes, the unit used for all chunk
// size accounting.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}
