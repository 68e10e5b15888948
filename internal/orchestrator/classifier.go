package orchestrator

import (
	"context"
	"strings"

	"github.com/user/doot/pkg/llm"
)

const classifyPrompt = `Classify the user's latest request into exactly one category.
Reply with a single word and nothing else:
- websearch: needs current information from the web
- gmail: reads, searches, or sends email
- calendar: reads or changes the calendar
- direct: anything else (conversation, memory, opinions)`

// Classifier picks the capability for simple-mode routing. It is a
// function type so tests can substitute a fixed answer.
type Classifier func(ctx context.Context, conv []llm.Message) (string, error)

// NewClassifier builds a Classifier over an LLM provider. A conversation
// with no user message classifies as direct without a model call.
func NewClassifier(provider llm.Provider) Classifier {
	return func(ctx context.Context, conv []llm.Message) (string, error) {
		query := strings.TrimSpace(llm.LastUserText(conv))
		if query == "" {
			return "direct", nil
		}

		resp, err := provider.Complete(ctx, []llm.Message{
			{Role: llm.RoleSystem, Content: classifyPrompt},
			{Role: llm.RoleUser, Content: query},
		}, nil)
		if err != nil {
			return "", err
		}
		return parseCapability(resp.Content), nil
	}
}

// parseCapability extracts the category from a model reply, tolerating
// extra prose around the keyword. Unrecognized replies fall back to direct.
func parseCapability(reply string) string {
	lower := strings.ToLower(reply)
	for _, name := range []string{"websearch", "gmail", "calendar"} {
		if strings.Contains(lower, name) {
			return name
		}
	}
	return "direct"
}
