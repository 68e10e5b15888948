// Package agent defines the capability agents the dispatcher delegates to:
// email, calendar, websearch, and direct conversation. Each agent receives
// a conversation with context already injected and returns only the
// messages it appended, plus anything it learned along the way.
package agent

import (
	"context"

	"github.com/user/doot/internal/memory"
	"github.com/user/doot/pkg/llm"
)

// Result is the outcome of one agent invocation. Messages holds only the
// turns the agent appended; the input conversation is never mutated.
type Result struct {
	Messages []llm.Message
	Learned  memory.Learned
}

// Text returns the agent's final user-visible reply.
func (r *Result) Text() string {
	return llm.LastAssistantText(r.Messages)
}

// Agent handles one capability. Invoke must not mutate conv.
type Agent interface {
	Name() string
	Invoke(ctx context.Context, conv []llm.Message) (*Result, error)
}
