package ollama

import (
	"fmt"
	"time"
)

func buildAnswerPrompt(question, contextBlock string, now time.Time) string {
	return fmt.Sprintf(
		"You are a helpful flood intelligence assistant. "+
			"Answer the question using only the context. "+
			"If the context is insufficient, say that clearly.\n"+
			"Today (UTC): %s\n\n"+
			"Context:\n%s\n\n"+
			"Question: %s\n"+
			"Answer:",
		now.UTC().Format("2006-01-02"),
		contextBlock,
		question,
	)
}
