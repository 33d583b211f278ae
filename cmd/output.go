package cmd

import (
	"fmt"

	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/engine"
)

func printSources(sources []engine.Source) {
	if len(sources) == 0 {
		return
	}
	fmt.Println("\nSources:")
	for _, s := range sources {
		fmt.Printf("  - %s (%s, relevance %.2f)\n", s.Ref, s.MatchType, s.Relevance)
	}
}
