// Package orchestrator routes user requests to capability agents. The
// dispatcher runs a delegating loop: a planner model breaks the request
// into capability calls (websearch, gmail, calendar, direct), each of
// which runs as its own short conversation, and composes the results into
// one reply.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/doot/internal/agent"
	"github.com/user/doot/internal/memory"
	"github.com/user/doot/pkg/llm"
)

const dispatcherPrompt = `You are the coordinator of a personal assistant. Break the user's request
into capability calls and compose the results into one helpful reply.

Each capability runs as an independent assistant that only sees the
instruction you give it plus shared memory, so make every instruction
self-contained: include names, dates, and identifiers it will need.

Capabilities:
- websearch: current information from the web
- gmail: the user's mailbox
- calendar: the user's calendar
- direct: conversation and shared memory, no external service

Call capabilities as many times as the request needs, including none.
When you have everything, answer the user directly.`

const instructionSchema = `{
	"type": "object",
	"properties": {
		"instruction": {"type": "string", "description": "Self-contained instruction for this capability"}
	},
	"required": ["instruction"]
}`

// capabilities maps tool names the planner sees to agent registry keys.
var capabilities = []struct {
	tool        string
	description string
}{
	{"websearch", "Look something up on the web"},
	{"gmail", "Read, search, trash, or send email"},
	{"calendar", "List, create, or delete calendar events"},
	{"direct", "Converse or work with shared memory without external services"},
}

// Dispatcher routes conversations to capability agents.
type Dispatcher struct {
	provider  llm.Provider
	agents    map[string]agent.Agent
	mem       *memory.Service
	builder   *ContextBuilder
	classify  Classifier
	taskID    string
	maxRounds int
	now       func() time.Time
}

// NewDispatcher creates a dispatcher. agents is keyed by capability name
// (websearch, gmail, calendar, direct).
func NewDispatcher(provider llm.Provider, agents map[string]agent.Agent, mem *memory.Service, builder *ContextBuilder, taskID string) *Dispatcher {
	return &Dispatcher{
		provider:  provider,
		agents:    agents,
		mem:       mem,
		builder:   builder,
		classify:  NewClassifier(provider),
		taskID:    taskID,
		maxRounds: 8,
		now:       time.Now,
	}
}

// SetClassifier replaces the simple-mode classifier.
func (d *Dispatcher) SetClassifier(c Classifier) { d.classify = c }

// SetMaxRounds overrides the planner round cap. Zero keeps the default.
func (d *Dispatcher) SetMaxRounds(n int) {
	if n > 0 {
		d.maxRounds = n
	}
}

// capabilityTools advertises only capabilities with a registered agent,
// so the planner never sees a tool that cannot be called.
func (d *Dispatcher) capabilityTools() []llm.Tool {
	out := make([]llm.Tool, 0, len(capabilities))
	for _, c := range capabilities {
		if _, ok := d.agents[c.tool]; !ok {
			continue
		}
		out = append(out, llm.Tool{
			Type: "function",
			Function: llm.Function{
				Name:        c.tool,
				Description: c.description,
				Parameters:  json.RawMessage(instructionSchema),
			},
		})
	}
	return out
}

// Dispatch runs the compound delegating loop over the conversation and
// returns the messages to append: the user-visible assistant reply plus
// the interleaved capability records. Capability failures propagate; the
// trigger layer owns turning them into a user-facing message.
func (d *Dispatcher) Dispatch(ctx context.Context, conv []llm.Message) ([]llm.Message, error) {
	contextMsg := d.builder.ContextMessage(d.now())
	trimmed := d.builder.Trim(contextMsg, conv)

	working := make([]llm.Message, 0, len(trimmed)+2)
	working = append(working, llm.Message{Role: llm.RoleSystem, Content: dispatcherPrompt})
	working = append(working, contextMsg)
	working = append(working, trimmed...)

	capTools := d.capabilityTools()
	var appended []llm.Message

	for round := 0; round < d.maxRounds; round++ {
		resp, err := d.provider.Complete(ctx, working, capTools)
		if err != nil {
			return nil, fmt.Errorf("dispatch call: %w", err)
		}

		assistant := llm.Message{Role: llm.RoleAssistant, Content: resp.Content, Tools: resp.ToolCalls}
		working = append(working, assistant)
		appended = append(appended, assistant)

		if len(resp.ToolCalls) == 0 {
			return appended, nil
		}

		for _, tc := range resp.ToolCalls {
			result, err := d.invokeCapability(ctx, contextMsg, tc)
			if err != nil {
				return nil, err
			}
			toolMsg := llm.Message{
				Role:    llm.RoleTool,
				Content: result,
				Tools:   []llm.ToolCall{{ID: tc.ID, Type: tc.Type, Function: tc.Function}},
			}
			working = append(working, toolMsg)
			appended = append(appended, toolMsg)
		}
	}
	return nil, fmt.Errorf("dispatch loop did not settle after %d rounds", d.maxRounds)
}

// invokeCapability runs one capability call as a fresh two-message
// conversation: the injected context plus the planner's instruction.
func (d *Dispatcher) invokeCapability(ctx context.Context, contextMsg llm.Message, tc llm.ToolCall) (string, error) {
	ag, ok := d.agents[tc.Function.Name]
	if !ok {
		return fmt.Sprintf("error: unknown tool %q", tc.Function.Name), nil
	}

	var params struct {
		Instruction string `json:"instruction"`
	}
	if err := json.Unmarshal(tc.Function.Arguments, &params); err != nil {
		return fmt.Sprintf("error: bad arguments for %s: %v", tc.Function.Name, err), nil
	}
	if params.Instruction == "" {
		return "error: instruction is required", nil
	}

	slog.Info("delegating to capability", "capability", tc.Function.Name, "task_id", d.taskID)
	result, err := ag.Invoke(ctx, []llm.Message{
		contextMsg,
		{Role: llm.RoleUser, Content: params.Instruction},
	})
	if err != nil {
		return "", fmt.Errorf("capability %s: %w", tc.Function.Name, err)
	}

	if !result.Learned.Empty() {
		memory.Save(d.mem, ag.Name(), d.taskID, &result.Learned)
	}

	text := result.Text()
	if text == "" {
		text = "(the capability returned no answer)"
	}
	return text, nil
}

// DispatchRoute is the simple routing mode: classify the request, hand
// the whole conversation to that one agent, and return its messages.
func (d *Dispatcher) DispatchRoute(ctx context.Context, conv []llm.Message) ([]llm.Message, error) {
	capability, err := d.classify(ctx, conv)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	ag, ok := d.agents[capability]
	if !ok {
		ag = d.agents["direct"]
	}
	if ag == nil {
		return nil, fmt.Errorf("no agent for capability %s", capability)
	}
	slog.Info("routing conversation", "capability", capability, "task_id", d.taskID)

	contextMsg := d.builder.ContextMessage(d.now())
	trimmed := d.builder.Trim(contextMsg, conv)
	sub := make([]llm.Message, 0, len(trimmed)+1)
	sub = append(sub, contextMsg)
	sub = append(sub, trimmed...)

	result, err := ag.Invoke(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("capability %s: %w", capability, err)
	}
	if !result.Learned.Empty() {
		memory.Save(d.mem, ag.Name(), d.taskID, &result.Learned)
	}
	return result.Messages, nil
}
