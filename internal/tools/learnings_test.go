package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLearnSkill(t *testing.T) {
	l := NewLearnings("book a flight")
	tool := NewLearnSkill(l)

	out, err := tool.Execute(context.Background(), json.RawMessage(
		`{"title":"Filter by airline","content":"Use the airline code in the search box.","applies_to":"flight searches"}`))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Filter by airline") {
		t.Errorf("unexpected output: %q", out)
	}

	learned := l.Collected()
	if len(learned.Skills) != 1 {
		t.Fatalf("expected 1 skill, got %d", len(learned.Skills))
	}
	if learned.Skills[0].AppliesTo != "flight searches" {
		t.Errorf("applies_to not captured: %+v", learned.Skills[0])
	}
	if learned.TaskDescription != "book a flight" {
		t.Errorf("task description lost: %q", learned.TaskDescription)
	}

	if _, err := tool.Execute(context.Background(), json.RawMessage(`{"title":"no content"}`)); err == nil {
		t.Error("expected error for missing content")
	}
}

func TestRecordFailure(t *testing.T) {
	l := NewLearnings("")
	tool := NewRecordFailure(l)

	_, err := tool.Execute(context.Background(), json.RawMessage(
		`{"title":"Rate limited","site":"search","what_happened":"Too many requests.","how_to_avoid":"Back off between calls."}`))
	if err != nil {
		t.Fatal(err)
	}

	learned := l.Collected()
	if len(learned.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(learned.Failures))
	}
	if learned.Failures[0].Site != "search" {
		t.Errorf("site not captured: %+v", learned.Failures[0])
	}

	if _, err := tool.Execute(context.Background(), json.RawMessage(`{"title":"incomplete"}`)); err == nil {
		t.Error("expected error for missing what_happened")
	}
}

func TestSetWorkingMemoryReplaces(t *testing.T) {
	l := NewLearnings("")
	tool := NewSetWorkingMemory(l)

	for _, content := range []string{"step one done", "steps one and two done"} {
		args, _ := json.Marshal(map[string]string{"content": content})
		if _, err := tool.Execute(context.Background(), args); err != nil {
			t.Fatal(err)
		}
	}

	learned := l.Collected()
	if learned.WorkingMemory != "steps one and two done" {
		t.Errorf("working memory should hold the latest value, got %q", learned.WorkingMemory)
	}
}

func TestCollectedIsACopy(t *testing.T) {
	l := NewLearnings("")
	first := l.Collected()
	first.WorkingMemory = "mutated"

	if l.Collected().WorkingMemory != "" {
		t.Error("mutating the returned copy must not affect the collector")
	}
}

func TestRegisterLearningTools(t *testing.T) {
	r := NewRegistry()
	RegisterLearningTools(r, NewLearnings(""))
	for _, name := range []string{"learn_skill", "record_failure", "set_working_memory"} {
		if _, ok := r.Get(name); !ok {
			t.Errorf("tool %s not registered", name)
		}
	}
}
