package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/user/doot/internal/calendar"
	"github.com/user/doot/internal/memory"
	"github.com/user/doot/internal/tools"
	"github.com/user/doot/pkg/llm"
)

// CalendarAgent handles scheduling tasks against the user's calendar.
type CalendarAgent struct {
	provider  llm.Provider
	client    calendar.Client
	mem       *memory.Service
	taskID    string
	maxRounds int
	now       func() time.Time
}

// NewCalendarAgent creates the calendar agent.
func NewCalendarAgent(provider llm.Provider, client calendar.Client, mem *memory.Service, taskID string) *CalendarAgent {
	return &CalendarAgent{
		provider: provider,
		client:   client,
		mem:      mem,
		taskID:   taskID,
		now:      time.Now,
	}
}

func (a *CalendarAgent) Name() string { return "calendar" }

// SetMaxRounds overrides the tool-loop round cap. Zero keeps the default.
func (a *CalendarAgent) SetMaxRounds(n int) { a.maxRounds = n }

// Invoke runs the calendar tool loop over the conversation.
func (a *CalendarAgent) Invoke(ctx context.Context, conv []llm.Message) (*Result, error) {
	learnings := tools.NewLearnings(llm.LastUserText(conv))
	registry := tools.NewRegistry()
	tools.RegisterCalendarTools(registry, a.client)
	tools.RegisterLearningTools(registry, learnings)

	appended, err := runToolLoop(ctx, a.provider, a.systemPrompt(), conv, registry, a.maxRounds)
	if err != nil {
		return nil, err
	}
	return &Result{Messages: appended, Learned: *learnings.Collected()}, nil
}

func (a *CalendarAgent) systemPrompt() string {
	now := a.now()
	return fmt.Sprintf(`You are the calendar assistant. It is now %s.

You manage the user's calendar with the tools provided. Resolve relative
dates ("tomorrow", "next Tuesday") against the current time above before
calling tools. List events before answering questions about the schedule;
never guess. When creating events, state the final time and title in your
reply so the user can spot mistakes.

When you discover a reusable procedure or hit a failure worth remembering,
record it with learn_skill or record_failure. Keep set_working_memory
updated with your progress on multi-step tasks.

%s`,
		now.Format("Monday, January 2, 2006 at 15:04 MST"),
		memory.Load(a.mem, a.Name(), a.taskID))
}
