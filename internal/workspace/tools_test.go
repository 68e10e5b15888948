package workspace

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/user/doot/internal/tools"
)

func TestMemoryGetTool(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.Append(LongTermFile, "User prefers morning meetings."); err != nil {
		t.Fatal(err)
	}
	tool := NewMemoryGet(store)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"path":"MEMORY.md"}`))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "morning meetings") {
		t.Errorf("unexpected output: %q", out)
	}

	out, err = tool.Execute(context.Background(), json.RawMessage(`{"path":"memory/2026-01-01.md"}`))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No content yet") {
		t.Errorf("expected empty placeholder, got %q", out)
	}

	// Disallowed path is reported to the model, not returned as an error.
	out, err = tool.Execute(context.Background(), json.RawMessage(`{"path":"../secrets.md"}`))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "only MEMORY.md and memory/YYYY-MM-DD.md are allowed") {
		t.Errorf("expected rejection message, got %q", out)
	}
}

func TestMemorySearchTool(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.Append("memory/2026-02-26.md", "Booked flight to Lisbon."); err != nil {
		t.Fatal(err)
	}
	tool := NewMemorySearch(store)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"lisbon"}`))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "memory/2026-02-26.md") || !strings.Contains(out, "Lisbon") {
		t.Errorf("unexpected output: %q", out)
	}

	out, err = tool.Execute(context.Background(), json.RawMessage(`{"query":"zanzibar"}`))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "No matches for:") {
		t.Errorf("expected no-match message, got %q", out)
	}
}

func TestMemoryAppendTool(t *testing.T) {
	store := NewStore(t.TempDir())
	tool := NewMemoryAppend(store)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"path":"MEMORY.md","content":"Allergic to peanuts."}`))
	if err != nil {
		t.Fatal(err)
	}
	if out != "Appended to MEMORY.md." {
		t.Errorf("unexpected output: %q", out)
	}
	content, err := store.Read(LongTermFile, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(content, "Allergic to peanuts.") {
		t.Error("content not persisted")
	}

	out, err = tool.Execute(context.Background(), json.RawMessage(`{"path":"notes.md","content":"x"}`))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "Failed:") {
		t.Errorf("expected failure message for disallowed path, got %q", out)
	}

	if _, err := tool.Execute(context.Background(), json.RawMessage(`{"path":"MEMORY.md"}`)); err == nil {
		t.Error("expected error for missing content")
	}
}

func TestRegisterMemoryTools(t *testing.T) {
	r := tools.NewRegistry()
	RegisterMemoryTools(r, NewStore(t.TempDir()))
	for _, name := range []string{"memory_get", "memory_search", "memory_append"} {
		if _, ok := r.Get(name); !ok {
			t.Errorf("tool %s not registered", name)
		}
	}
}
