package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/user/doot/internal/gemini"
	"github.com/user/doot/internal/gmail"
	"github.com/user/doot/internal/memory"
	"github.com/user/doot/internal/workspace"
	"github.com/user/doot/pkg/llm"
)

type stubGmail struct{}

func (stubGmail) ListInbox(_ context.Context, _ int) ([]gmail.Message, error) {
	return []gmail.Message{{ID: "m1", Subject: "Hello", From: "alice@example.com"}}, nil
}
func (stubGmail) Search(_ context.Context, _ string, _ int) ([]gmail.Message, error) {
	return nil, nil
}
func (stubGmail) Get(_ context.Context, _ string) (*gmail.Message, error) {
	return &gmail.Message{ID: "m1"}, nil
}
func (stubGmail) Trash(_ context.Context, _ string) error      { return nil }
func (stubGmail) Send(_ context.Context, _, _, _ string) error { return nil }

func TestEmailAgentCollectsLearnings(t *testing.T) {
	provider := &scriptedProvider{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{
			toolCall("c1", "list_inbox", `{}`),
			toolCall("c2", "learn_skill", `{"title":"Inbox triage","content":"List before summarizing."}`),
		}},
		{Content: "You have one email from alice@example.com."},
	}}
	mem := memory.NewService(t.TempDir())
	a := NewEmailAgent(provider, stubGmail{}, mem, "me@example.com", "task-1")

	result, err := a.Invoke(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "check my inbox"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Text() != "You have one email from alice@example.com." {
		t.Errorf("unexpected reply: %q", result.Text())
	}
	if len(result.Learned.Skills) != 1 || result.Learned.Skills[0].Title != "Inbox triage" {
		t.Errorf("learnings not collected: %+v", result.Learned)
	}
	if result.Learned.TaskDescription != "check my inbox" {
		t.Errorf("task description lost: %q", result.Learned.TaskDescription)
	}

	// The system prompt carries the user's address and the memory block.
	system := provider.calls[0][0]
	if system.Role != llm.RoleSystem {
		t.Fatal("expected system prompt first")
	}
	if !strings.Contains(system.Content, "me@example.com") {
		t.Error("user email missing from system prompt")
	}
	if !strings.Contains(system.Content, "IDENTITY & FACTS") {
		t.Error("agent memory block missing from system prompt")
	}
}

func TestEmailAgentDoesNotMutateConversation(t *testing.T) {
	provider := &scriptedProvider{responses: []*llm.Response{{Content: "done"}}}
	mem := memory.NewService(t.TempDir())
	a := NewEmailAgent(provider, stubGmail{}, mem, "me@example.com", "task-1")

	conv := []llm.Message{{Role: llm.RoleUser, Content: "hi"}}
	result, err := a.Invoke(context.Background(), conv)
	if err != nil {
		t.Fatal(err)
	}
	if len(conv) != 1 {
		t.Error("input conversation was mutated")
	}
	if len(result.Messages) != 1 || result.Messages[0].Role != llm.RoleAssistant {
		t.Errorf("expected only the appended assistant turn: %+v", result.Messages)
	}
}

type stubSearcher struct {
	answer  string
	sources []gemini.Source
	err     error
	queries []string
}

func (s *stubSearcher) GroundedAnswer(_ context.Context, query string) (string, []gemini.Source, error) {
	s.queries = append(s.queries, query)
	return s.answer, s.sources, s.err
}

func TestWebsearchAgent(t *testing.T) {
	searcher := &stubSearcher{
		answer: "The marathon is on Sunday.",
		sources: []gemini.Source{
			{Title: "City Marathon", URI: "https://example.com/marathon"},
		},
	}
	a := NewWebsearchAgent(searcher)

	result, err := a.Invoke(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "when is the city marathon?"},
	})
	if err != nil {
		t.Fatal(err)
	}
	text := result.Text()
	if !strings.Contains(text, "The marathon is on Sunday.") {
		t.Errorf("answer missing: %q", text)
	}
	if !strings.Contains(text, "[1] [City Marathon](https://example.com/marathon)") {
		t.Errorf("sources missing: %q", text)
	}
}

func TestWebsearchAgentNoQuery(t *testing.T) {
	searcher := &stubSearcher{}
	a := NewWebsearchAgent(searcher)

	result, err := a.Invoke(context.Background(), []llm.Message{
		{Role: llm.RoleAssistant, Content: "anything else?"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Messages) != 0 {
		t.Errorf("expected no messages without a user question, got %+v", result.Messages)
	}
	if len(searcher.queries) != 0 {
		t.Error("search should not run without a query")
	}
}

func TestWebsearchAgentMetaQuery(t *testing.T) {
	searcher := &stubSearcher{answer: "Headlines."}
	a := NewWebsearchAgent(searcher)

	if _, err := a.Invoke(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "search the web"},
	}); err != nil {
		t.Fatal(err)
	}
	if len(searcher.queries) != 1 || searcher.queries[0] != "top news headlines today" {
		t.Errorf("meta query not normalized: %v", searcher.queries)
	}

	// A real topic passes through unchanged.
	if _, err := a.Invoke(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "search the web for gopher facts"},
	}); err != nil {
		t.Fatal(err)
	}
	if searcher.queries[1] != "search the web for gopher facts" {
		t.Errorf("topical query was rewritten: %q", searcher.queries[1])
	}
}

func TestWebsearchAgentFailureBecomesReply(t *testing.T) {
	a := NewWebsearchAgent(&stubSearcher{err: fmt.Errorf("quota exceeded")})
	result, err := a.Invoke(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "what's the weather?"},
	})
	if err != nil {
		t.Fatalf("search failures must become a reply, got error: %v", err)
	}
	if !strings.Contains(result.Text(), "couldn't search the web") {
		t.Errorf("unexpected failure reply: %q", result.Text())
	}
}

func TestDirectAgentUsesWorkspaceTools(t *testing.T) {
	store := workspace.NewStore(t.TempDir())
	provider := &scriptedProvider{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{
			toolCall("c1", "memory_append", `{"path":"MEMORY.md","content":"User's birthday is June 3."}`),
		}},
		{Content: "Noted, I'll remember that."},
	}}
	a := NewDirectAgent(provider, store)
	a.now = func() time.Time { return time.Date(2026, 2, 26, 9, 0, 0, 0, time.UTC) }

	result, err := a.Invoke(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "my birthday is June 3, remember it"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Text() != "Noted, I'll remember that." {
		t.Errorf("unexpected reply: %q", result.Text())
	}

	content, err := store.Read(workspace.LongTermFile, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(content, "June 3") {
		t.Error("memory_append did not reach the workspace")
	}

	// The system prompt names today's daily log for the model to use.
	if system := provider.calls[0][0]; !strings.Contains(system.Content, "memory/2026-02-26.md") {
		t.Errorf("daily log path missing from system prompt: %q", system.Content)
	}
}

func TestDirectAgentHonorsMaxRounds(t *testing.T) {
	store := workspace.NewStore(t.TempDir())
	loop := &llm.Response{ToolCalls: []llm.ToolCall{
		toolCall("c1", "memory_get", `{"path":"MEMORY.md"}`),
	}}
	provider := &scriptedProvider{responses: []*llm.Response{loop, loop, loop}}
	a := NewDirectAgent(provider, store)
	a.SetMaxRounds(1)

	_, err := a.Invoke(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "what do you know about me?"},
	})
	if err == nil || !strings.Contains(err.Error(), "did not settle after 1 rounds") {
		t.Errorf("expected the configured round cap, got %v", err)
	}
}
