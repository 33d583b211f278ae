// Package reference recognizes canonical citations in free-text queries.
//
// Queries like "Torah 7", "the first teaching" or "enseignement 3" all map
// into the same canonical reference space used by the corpus metadata
// ("Likutei Moharan 7", ...), so the hybrid retriever can surface the cited
// passage even when it is semantically dissimilar to the query wording.
package reference

import (
	"fmt"
	"regexp"
	"strings"
)

// rule pairs a citation pattern with the canonical reference template it
// normalizes to. %s receives the captured section number, if any.
type rule struct {
	re       *regexp.Regexp
	template string
}

// rules are evaluated in order and the first match wins. The order is a
// deliberate priority: the "Part II" forms must be tried before the generic
// Likutei Moharan form, and the generic section words ("teaching N") come
// after every explicit book name so they only catch uncited numbers.
var rules = []rule{
	// Likutei Moharan, Part II before Part I.
	{regexp.MustCompile(`likute?[iy]?\s*moharan,?\s*(?:part\s*)?(?:ii|2)\s+(\d+)`), "Likutei Moharan, Part II %s"},
	{regexp.MustCompile(`likute?[iy]?\s*moharan\s*(\d+)`), "Likutei Moharan %s"},
	{regexp.MustCompile(`\blm\s*(\d+)`), "Likutei Moharan %s"},

	// Other books by name.
	{regexp.MustCompile(`sippure?[iy]?\s*maasiy?ot\s*(\d+)`), "Sippurei Maasiyot %s"},
	{regexp.MustCompile(`sichot\s*ha?ran\s*(\d+)`), "Sichot HaRan %s"},
	{regexp.MustCompile(`chaye?[iy]?\s*moharan\s*(\d+)`), "Chayei Moharan %s"},
	{regexp.MustCompile(`shivche?[iy]?\s*ha?ran\s*(\d+)`), "Shivchei HaRan %s"},
	{regexp.MustCompile(`likute?[iy]?\s*tefilot\s*(\d+)`), "Likutei Tefilot, Volume I %s"},
	{regexp.MustCompile(`tikkun\s*ha?klali`), "Tikkun HaKlali"},

	// Hebrew-script citations.
	{regexp.MustCompile(`ליקוטי\s*מוהר"?ן\s*תנינא\s*(\d+)`), "Likutei Moharan, Part II %s"},
	{regexp.MustCompile(`ליקוטי\s*מוהר"?ן\s*(\d+)`), "Likutei Moharan %s"},
	{regexp.MustCompile(`תורה\s*(\d+)`), "Likutei Moharan %s"},
	{regexp.MustCompile(`סיפורי\s*מעשיות\s*(\d+)`), "Sippurei Maasiyot %s"},
	{regexp.MustCompile(`שיחות\s*הר"?ן\s*(\d+)`), "Sichot HaRan %s"},
	{regexp.MustCompile(`תיקון\s*הכללי`), "Tikkun HaKlali"},

	// Generic section words, English and French.
	{regexp.MustCompile(`torah\s*(\d+)`), "Likutei Moharan %s"},
	{regexp.MustCompile(`teaching\s*(\d+)`), "Likutei Moharan %s"},
	{regexp.MustCompile(`lesson\s*(\d+)`), "Likutei Moharan %s"},
	{regexp.MustCompile(`enseignement\s*(\d+)`), "Likutei Moharan %s"},
	{regexp.MustCompile(`tale\s*(\d+)`), "Sippurei Maasiyot %s"},
	{regexp.MustCompile(`story\s*(\d+)`), "Sippurei Maasiyot %s"},
	{regexp.MustCompile(`conte\s*(\d+)`), "Sippurei Maasiyot %s"},
	{regexp.MustCompile(`conversation\s*(\d+)`), "Sichot HaRan %s"},
	{regexp.MustCompile(`prayer\s*(\d+)`), "Likutei Tefilot, Volume I %s"},
	{regexp.MustCompile(`pri[eè]re\s*(\d+)`), "Likutei Tefilot, Volume I %s"},

	// Well-known aliases.
	{regexp.MustCompile(`seven\s*beggars`), "Sippurei Maasiyot 13"},
	{regexp.MustCompile(`sept\s*mendiants`), "Sippurei Maasiyot 13"},
}

// Resolve extracts a canonical reference from a free-text query.
// The second return value is false when the query contains no recognizable
// citation; that is a normal outcome, not an error.
func Resolve(query string) (string, bool) {
	q := rewriteNumberWords(strings.ToLower(query))

	for _, r := range rules {
		m := r.re.FindStringSubmatch(q)
		if m == nil {
			continue
		}
		if len(m) > 1 {
			return fmt.Sprintf(r.template, m[1]), true
		}
		return r.template, true
	}
	return "", false
}
