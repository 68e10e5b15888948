package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/user/doot/internal/memory"
)

// Learnings collects skills, failures, and working memory reported by an
// agent during one invocation. The tools below write into it; the agent
// returns it to the dispatcher, which persists it. Tool-using agents never
// write memory directly.
type Learnings struct {
	mu      sync.Mutex
	learned memory.Learned
}

// NewLearnings creates an empty collector for one invocation.
func NewLearnings(taskDescription string) *Learnings {
	return &Learnings{learned: memory.Learned{TaskDescription: taskDescription}}
}

// Collected returns everything reported so far.
func (l *Learnings) Collected() *memory.Learned {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.learned
	return &out
}

// LearnSkill records a reusable procedure the agent discovered.
type LearnSkill struct{ learnings *Learnings }

// NewLearnSkill creates the learn_skill tool bound to a collector.
func NewLearnSkill(l *Learnings) *LearnSkill { return &LearnSkill{learnings: l} }

func (t *LearnSkill) Name() string { return "learn_skill" }
func (t *LearnSkill) Description() string {
	return "Record a reusable procedure you learned during this task, so future runs can apply it"
}
func (t *LearnSkill) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"title": {"type": "string", "description": "Short title for the skill"},
			"content": {"type": "string", "description": "What you learned, concretely"},
			"applies_to": {"type": "string", "description": "When this skill applies"}
		},
		"required": ["title", "content"]
	}`)
}

func (t *LearnSkill) Execute(_ context.Context, args json.RawMessage) (string, error) {
	var record memory.SkillRecord
	if err := json.Unmarshal(args, &record); err != nil {
		return "", fmt.Errorf("parse args: %w", err)
	}
	if record.Title == "" || record.Content == "" {
		return "", fmt.Errorf("title and content are required")
	}
	t.learnings.mu.Lock()
	t.learnings.learned.Skills = append(t.learnings.learned.Skills, record)
	t.learnings.mu.Unlock()
	return "Skill noted: " + record.Title, nil
}

// RecordFailure records a failure pattern the agent hit.
type RecordFailure struct{ learnings *Learnings }

// NewRecordFailure creates the record_failure tool bound to a collector.
func NewRecordFailure(l *Learnings) *RecordFailure { return &RecordFailure{learnings: l} }

func (t *RecordFailure) Name() string { return "record_failure" }
func (t *RecordFailure) Description() string {
	return "Record a failure pattern you hit during this task, so future runs can avoid it"
}
func (t *RecordFailure) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"title": {"type": "string", "description": "Short title for the failure pattern"},
			"site": {"type": "string", "description": "Where it happened (tool or operation name)"},
			"what_happened": {"type": "string", "description": "What went wrong"},
			"how_to_avoid": {"type": "string", "description": "How to avoid it next time"}
		},
		"required": ["title", "what_happened", "how_to_avoid"]
	}`)
}

func (t *RecordFailure) Execute(_ context.Context, args json.RawMessage) (string, error) {
	var record memory.FailureRecord
	if err := json.Unmarshal(args, &record); err != nil {
		return "", fmt.Errorf("parse args: %w", err)
	}
	if record.Title == "" || record.WhatHappened == "" {
		return "", fmt.Errorf("title and what_happened are required")
	}
	t.learnings.mu.Lock()
	t.learnings.learned.Failures = append(t.learnings.learned.Failures, record)
	t.learnings.mu.Unlock()
	return "Failure pattern noted: " + record.Title, nil
}

// SetWorkingMemory replaces the agent's current-task scratchpad.
type SetWorkingMemory struct{ learnings *Learnings }

// NewSetWorkingMemory creates the set_working_memory tool bound to a collector.
func NewSetWorkingMemory(l *Learnings) *SetWorkingMemory { return &SetWorkingMemory{learnings: l} }

func (t *SetWorkingMemory) Name() string { return "set_working_memory" }
func (t *SetWorkingMemory) Description() string {
	return "Replace your current-task scratchpad with an updated summary of what you have done so far"
}
func (t *SetWorkingMemory) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"content": {"type": "string", "description": "The full updated scratchpad content"}
		},
		"required": ["content"]
	}`)
}

func (t *SetWorkingMemory) Execute(_ context.Context, args json.RawMessage) (string, error) {
	var params struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return "", fmt.Errorf("parse args: %w", err)
	}
	if params.Content == "" {
		return "", fmt.Errorf("content is required")
	}
	t.learnings.mu.Lock()
	t.learnings.learned.WorkingMemory = params.Content
	t.learnings.mu.Unlock()
	return "Working memory updated.", nil
}

// RegisterLearningTools adds all three learning-report tools to a registry.
func RegisterLearningTools(r *Registry, l *Learnings) {
	r.Register(NewLearnSkill(l))
	r.Register(NewRecordFailure(l))
	r.Register(NewSetWorkingMemory(l))
}
