package memory

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSkillsSequentialAppend(t *testing.T) {
	svc := NewService(t.TempDir())

	first, err := svc.SaveSkill("gmail", "use message ids", "always list before reading")
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.SaveSkill("gmail", "batch searches", "combine queries")
	if err != nil {
		t.Fatal(err)
	}

	firstBefore, err := os.ReadFile(first)
	if err != nil {
		t.Fatal(err)
	}

	third, err := svc.SaveSkill("gmail", "trash carefully", "confirm before trashing")
	if err != nil {
		t.Fatal(err)
	}

	for i, path := range []string{first, second, third} {
		want := []string{"001_", "002_", "003_"}[i]
		if !strings.HasPrefix(filepath.Base(path), want) {
			t.Errorf("record %d: expected prefix %s, got %s", i+1, want, filepath.Base(path))
		}
	}

	// Earlier records are never mutated by later saves.
	firstAfter, err := os.ReadFile(first)
	if err != nil {
		t.Fatal(err)
	}
	if string(firstBefore) != string(firstAfter) {
		t.Error("first skill record changed after third save")
	}

	joined := svc.Skills("gmail")
	if !strings.Contains(joined, "always list before reading") || !strings.Contains(joined, "confirm before trashing") {
		t.Errorf("joined skills missing content: %q", joined)
	}
}

func TestSkillsPerAgentTypeIsolation(t *testing.T) {
	svc := NewService(t.TempDir())

	if _, err := svc.SaveSkill("gmail", "a", "gmail skill"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SaveFailure("calendar", "b", "calendar failure"); err != nil {
		t.Fatal(err)
	}

	if svc.Skills("calendar") != "" {
		t.Error("calendar should have no skills")
	}
	if svc.Failures("gmail") != "" {
		t.Error("gmail should have no failures")
	}
}

func TestWorkingMemoryOverwriteAndClear(t *testing.T) {
	svc := NewService(t.TempDir())

	if err := svc.UpdateWorkingMemory("session", "gmail", "step one done"); err != nil {
		t.Fatal(err)
	}
	if err := svc.UpdateWorkingMemory("session", "gmail", "step two done"); err != nil {
		t.Fatal(err)
	}

	// Full overwrite, one live value per (task, agent type) pair.
	if got := svc.WorkingMemory("session", "gmail"); got != "step two done" {
		t.Errorf("expected overwrite, got %q", got)
	}
	if got := svc.WorkingMemory("other-task", "gmail"); got != "" {
		t.Errorf("expected empty for other task, got %q", got)
	}

	if err := svc.ClearWorkingMemory("session"); err != nil {
		t.Fatal(err)
	}
	if got := svc.WorkingMemory("session", "gmail"); got != "" {
		t.Errorf("expected cleared, got %q", got)
	}
}

func TestIdentityMissing(t *testing.T) {
	svc := NewService(t.TempDir())
	if got := svc.Identity("gmail"); got != "" {
		t.Errorf("expected empty identity, got %q", got)
	}
}
