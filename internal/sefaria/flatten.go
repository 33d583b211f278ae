package sefaria

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/corpus"
)

// flattenBook turns the nested he/text arrays of a whole-book response into
// one document per top-level section, referenced "<title> <n>". Nested
// segments inside a section are joined with blank lines. Sections empty in
// both languages are dropped.
//
// A response whose payload is a single string (rare, depth-0 texts) yields
// one document referenced by the bare title.
func flattenBook(title string, hebrew, english json.RawMessage) []corpus.Document {
	he := decodeNode(hebrew)
	en := decodeNode(english)

	if s, ok := he.(string); ok {
		return singleDocument(title, title, s, stringOr(en))
	}
	if s, ok := en.(string); ok {
		return singleDocument(title, title, stringOr(he), s)
	}

	heList, _ := he.([]any)
	enList, _ := en.([]any)

	var docs []corpus.Document
	for i := 0; i < max(len(heList), len(enList)); i++ {
		ref := fmt.Sprintf("%s %d", title, i+1)
		hebrewText := collectLeaves(itemAt(heList, i))
		englishText := collectLeaves(itemAt(enList, i))
		docs = append(docs, singleDocument(title, ref, hebrewText, englishText)...)
	}
	return docs
}

func singleDocument(title, ref, hebrew, english string) []corpus.Document {
	hebrew = strings.TrimSpace(hebrew)
	english = strings.TrimSpace(english)
	if hebrew == "" && english == "" {
		return nil
	}
	return []corpus.Document{{
		Title:    title,
		Ref:      ref,
		Hebrew:   hebrew,
		English:  english,
		Combined: strings.TrimSpace(hebrew + "\n\n" + english),
	}}
}

// collectLeaves gathers every string leaf under node, in order, joined by
// blank lines.
func collectLeaves(node any) string {
	var leaves []string
	var walk func(any)
	walk = func(n any) {
		switch v := n.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				leaves = append(leaves, s)
			}
		case []any:
			for _, item := range v {
				walk(item)
			}
		}
	}
	walk(node)
	return strings.Join(leaves, "\n\n")
}

func decodeNode(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

func itemAt(list []any, i int) any {
	if i < len(list) {
		return list[i]
	}
	return nil
}

func stringOr(v any) string {
	s, _ := v.(string)
	return s
}
