package reference

import "regexp"

// numberWords maps spelled-out ordinals and cardinals to digits. English
// and French, matching the languages the corpus is queried in.
var numberWords = []struct {
	word  string
	digit string
}{
	{"first", "1"}, {"second", "2"}, {"third", "3"}, {"fourth", "4"},
	{"fifth", "5"}, {"sixth", "6"}, {"seventh", "7"}, {"eighth", "8"},
	{"ninth", "9"}, {"tenth", "10"},
	{"one", "1"}, {"two", "2"}, {"three", "3"}, {"four", "4"}, {"five", "5"},
	{"premier", "1"}, {"première", "1"}, {"deuxième", "2"}, {"troisième", "3"},
	{"quatrième", "4"}, {"cinquième", "5"},
}

const (
	sectionAlt = `(teaching|lesson|torah|tale|story|prayer|conversation|enseignement|conte|prière)`
	bookAlt    = `(likute?[iy]?\s*moharan|sippure?[iy]?\s*maasiy?ot|sichot\s*ha?ran|chaye?[iy]?\s*moharan|likute?[iy]?\s*tefilot)`
)

// rewriteRule turns "<word> <keyword>" into "<keyword> <digit>" so the
// citation rules only ever see digit forms.
type rewriteRule struct {
	re          *regexp.Regexp
	replacement string
}

var rewriteRules = buildRewriteRules()

func buildRewriteRules() []rewriteRule {
	rules := make([]rewriteRule, 0, len(numberWords)*2)
	for _, nw := range numberWords {
		// "the first teaching" -> "teaching 1"
		rules = append(rules, rewriteRule{
			re:          regexp.MustCompile(`\b` + nw.word + `\s+` + sectionAlt + `\b`),
			replacement: "$1 " + nw.digit,
		})
		// "the first likutei moharan" -> "likutei moharan 1"
		rules = append(rules, rewriteRule{
			re:          regexp.MustCompile(`\b` + nw.word + `\s+` + bookAlt + `\b`),
			replacement: "$1 " + nw.digit,
		})
	}
	return rules
}

// rewriteNumberWords is the pre-pass applied before pattern matching,
// so "the seventh teaching" resolves exactly like "teaching 7".
// The input must already be lowercased.
func rewriteNumberWords(q string) string {
	for _, r := range rewriteRules {
		q = r.re.ReplaceAllString(q, r.replacement)
	}
	return q
}
