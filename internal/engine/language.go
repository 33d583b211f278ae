package engine

// Language bundles the per-language strings used around generation. The
// model writes the answer; the greeting and the decline are fixed text so
// they never drift between runs.
type Language struct {
	Code        string
	Name        string
	Instruction string
	Greeting    string
	Decline     string
}

// DefaultLanguage is used when a request names no language or an unknown one.
const DefaultLanguage = "en"

var languages = map[string]Language{
	"en": {
		Code:        "en",
		Name:        "English",
		Instruction: "Respond in English.",
		Greeting:    "How can I help you with Rabbi Nachman's teachings?",
		Decline:     "I don't have specific information about that in my sources.",
	},
	"he": {
		Code:        "he",
		Name:        "Hebrew",
		Instruction: "Respond in Hebrew (עברית). Use Hebrew script.",
		Greeting:    "במה אוכל לעזור לך בתורת רבי נחמן?",
		Decline:     "אין לי מידע ספציפי על כך במקורות שלי.",
	},
	"fr": {
		Code:        "fr",
		Name:        "French",
		Instruction: "Respond in French (Français).",
		Greeting:    "Comment puis-je vous aider avec les enseignements de Rabbi Nachman?",
		Decline:     "Je n'ai pas d'information spécifique à ce sujet dans mes sources.",
	},
}

// LanguageFor returns the configuration for code, falling back to English.
func LanguageFor(code string) Language {
	if l, ok := languages[code]; ok {
		return l
	}
	return languages[DefaultLanguage]
}
