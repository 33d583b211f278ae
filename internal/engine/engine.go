// Package engine generates grounded answers about Rabbi Nachman's
// teachings. Every answer is built strictly from retrieved passages; when
// retrieval finds nothing, the engine declines with fixed text instead of
// letting the model improvise.
package engine

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/corpus"
	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/log"
	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/retrieval"
)

const systemPrompt = `You are GUEZI (גואזי), a knowledgeable AI assistant for Rabbi Nachman of Breslov's teachings.

CRITICAL RULES:
1. ONLY use information from the retrieved passages below
2. NEVER invent teachings, stories, or quotes
3. Always cite the exact source (e.g., "Likutei Moharan 1", "Sippurei Maasiyot 3")
4. Be warm and encouraging - reflect Rabbi Nachman's spirit of hope

Available sources include:
- Likutei Moharan (Part I and II) - Main teachings
- Sippurei Maasiyot - Stories/Tales
- Sichot HaRan - Conversations
- Chayei Moharan - Life of Rabbi Nachman
- Likutei Tefilot - Prayers
- Shivchei HaRan - Praises
- Tikkun HaKlali - Ten Psalms

Remember: "There is no despair in the world at all!" (אין שום יאוש בעולם כלל)`

const (
	// defaultTopK is how many passages ground an answer.
	defaultTopK = 7

	// Prompt size guards, in runes.
	maxPassageRunes = 1500
	maxHistoryRunes = 300

	// historyTurnsInPrompt is how many recent turns the prompt carries.
	historyTurnsInPrompt = 4
)

// Searcher retrieves grounding passages. *retrieval.Retriever satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]retrieval.Result, error)
}

// TextGenerator produces the answer text from a fully built prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Source identifies one passage an answer is grounded on.
type Source struct {
	Title     string  `json:"title"`
	Ref       string  `json:"ref"`
	Relevance float64 `json:"relevance"`
	MatchType string  `json:"match_type"`
}

// Answer is a generated response with its grounding.
type Answer struct {
	Text     string   `json:"response"`
	Sources  []Source `json:"sources"`
	Language string   `json:"language"`
	Grounded bool     `json:"context_found"`
}

// Engine answers questions over the corpus.
type Engine struct {
	searcher  Searcher
	generator TextGenerator
	topK      int
	logger    log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTopK sets how many passages ground each answer.
func WithTopK(k int) Option {
	return func(e *Engine) {
		if k > 0 {
			e.topK = k
		}
	}
}

// New creates an Engine.
func New(searcher Searcher, generator TextGenerator, logger log.Logger, opts ...Option) *Engine {
	e := &Engine{
		searcher:  searcher,
		generator: generator,
		topK:      defaultTopK,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Greeting returns the fixed opening line for a language.
func (e *Engine) Greeting(langCode string) string {
	return LanguageFor(langCode).Greeting
}

// Ask answers query in the given language, grounding the response on
// retrieved passages. session may be nil for one-shot questions. When
// nothing relevant is retrieved, Ask returns the language's decline text
// without calling the model.
func (e *Engine) Ask(ctx context.Context, session *Session, query, langCode string) (Answer, error) {
	ctx, span := otel.Tracer("engine").Start(ctx, "engine.Ask")
	defer span.End()

	lang := LanguageFor(langCode)

	results, err := e.searcher.Search(ctx, query, e.topK)
	if err != nil {
		return Answer{}, fmt.Errorf("engine: retrieve context: %w", err)
	}
	span.SetAttributes(attribute.Int("engine.passages", len(results)))

	if len(results) == 0 {
		e.logger.Info("no grounding found, declining", "query", query)
		return Answer{Text: lang.Decline, Language: lang.Code}, nil
	}

	prompt := e.buildPrompt(session, query, lang, results)
	text, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		return Answer{}, fmt.Errorf("engine: generate answer: %w", err)
	}

	if session != nil {
		session.remember(query, text)
	}

	sources := make([]Source, len(results))
	for i, r := range results {
		sources[i] = Source{
			Title:     r.Title,
			Ref:       r.Ref,
			Relevance: r.Relevance,
			MatchType: r.MatchType,
		}
	}

	return Answer{
		Text:     text,
		Sources:  sources,
		Language: lang.Code,
		Grounded: true,
	}, nil
}

func (e *Engine) buildPrompt(session *Session, query string, lang Language, results []retrieval.Result) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nIMPORTANT: ")
	b.WriteString(lang.Instruction)

	b.WriteString("\n\nRetrieved passages (USE ONLY THESE):\n")
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		fmt.Fprintf(&b, "[Source %d: %s - %s]\nContent: %s\n",
			i+1, r.Title, r.Ref, corpus.Truncate(r.Text, maxPassageRunes))
	}

	if session != nil && len(session.history) > 0 {
		b.WriteString("\nPrevious conversation:\n")
		start := len(session.history) - historyTurnsInPrompt
		if start < 0 {
			start = 0
		}
		for _, t := range session.history[start:] {
			role := "User"
			if t.role == "assistant" {
				role = "GUEZI"
			}
			fmt.Fprintf(&b, "%s: %s\n", role, corpus.Truncate(t.content, maxHistoryRunes))
		}
	}

	fmt.Fprintf(&b, "\nUser's question: %s\n\nGUEZI:", query)
	return b.String()
}
