package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/user/doot/internal/tools"
	"github.com/user/doot/internal/workspace"
	"github.com/user/doot/pkg/llm"
)

// DirectAgent handles conversation that needs no external capability. It
// can still read and update the shared workspace memory.
type DirectAgent struct {
	provider  llm.Provider
	store     *workspace.Store
	maxRounds int
	now       func() time.Time
}

// NewDirectAgent creates the direct-conversation agent.
func NewDirectAgent(provider llm.Provider, store *workspace.Store) *DirectAgent {
	return &DirectAgent{provider: provider, store: store, now: time.Now}
}

func (a *DirectAgent) Name() string { return "direct" }

// SetMaxRounds overrides the tool-loop round cap. Zero keeps the default.
func (a *DirectAgent) SetMaxRounds(n int) { a.maxRounds = n }

// Invoke answers directly, with the workspace memory tools available.
func (a *DirectAgent) Invoke(ctx context.Context, conv []llm.Message) (*Result, error) {
	registry := tools.NewRegistry()
	workspace.RegisterMemoryTools(registry, a.store)

	appended, err := runToolLoop(ctx, a.provider, a.systemPrompt(), conv, registry, a.maxRounds)
	if err != nil {
		return nil, err
	}
	return &Result{Messages: appended}, nil
}

func (a *DirectAgent) systemPrompt() string {
	now := a.now()
	return fmt.Sprintf(`You are a personal assistant. It is now %s on %s.

Answer directly and concisely. Use memory_get and memory_search when the
question touches something the user told you before, and memory_append to
record facts worth keeping: preferences, decisions, recurring details.
Long-term facts go in MEMORY.md; what happened today goes in
%s.`,
		now.Format("15:04 MST"),
		now.Format("Monday, January 2, 2006"),
		workspace.DailyPath(now))
}
