package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/user/doot/internal/gmail"
	"github.com/user/doot/internal/memory"
	"github.com/user/doot/internal/tools"
	"github.com/user/doot/pkg/llm"
)

// EmailAgent handles mailbox tasks: triage, search, reading, sending.
type EmailAgent struct {
	provider  llm.Provider
	client    gmail.Client
	mem       *memory.Service
	userEmail string
	taskID    string
	maxRounds int
	now       func() time.Time
}

// NewEmailAgent creates the email agent. taskID scopes working memory to
// the current task.
func NewEmailAgent(provider llm.Provider, client gmail.Client, mem *memory.Service, userEmail, taskID string) *EmailAgent {
	return &EmailAgent{
		provider:  provider,
		client:    client,
		mem:       mem,
		userEmail: userEmail,
		taskID:    taskID,
		now:       time.Now,
	}
}

func (a *EmailAgent) Name() string { return "email" }

// SetMaxRounds overrides the tool-loop round cap. Zero keeps the default.
func (a *EmailAgent) SetMaxRounds(n int) { a.maxRounds = n }

// Invoke runs the mailbox tool loop over the conversation. Learned skills,
// failures, and working memory are collected per invocation and returned
// for the dispatcher to persist.
func (a *EmailAgent) Invoke(ctx context.Context, conv []llm.Message) (*Result, error) {
	learnings := tools.NewLearnings(llm.LastUserText(conv))
	registry := tools.NewRegistry()
	tools.RegisterGmailTools(registry, a.client)
	tools.RegisterLearningTools(registry, learnings)

	appended, err := runToolLoop(ctx, a.provider, a.systemPrompt(), conv, registry, a.maxRounds)
	if err != nil {
		return nil, err
	}
	return &Result{Messages: appended, Learned: *learnings.Collected()}, nil
}

func (a *EmailAgent) systemPrompt() string {
	return fmt.Sprintf(`You are the email assistant for %s. Today is %s.

You manage the user's mailbox with the tools provided. Ground every answer
in actual mailbox state: list or search before summarizing, read before
quoting. Never invent message contents. Confirm destructive actions
(trashing, sending) in your reply by stating exactly what you did.

When you discover a reusable procedure or hit a failure worth remembering,
record it with learn_skill or record_failure. Keep set_working_memory
updated with your progress on multi-step tasks.

%s`,
		a.userEmail,
		a.now().Format("Monday, January 2, 2006"),
		memory.Load(a.mem, a.Name(), a.taskID))
}
