package memory

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadAllPlaceholders(t *testing.T) {
	svc := NewService(t.TempDir())

	block := Load(svc, "gmail", "session")

	for _, want := range []string{
		placeholderIdentity,
		placeholderSkills,
		placeholderFailures,
		placeholderWorking,
	} {
		if !strings.Contains(block, want) {
			t.Errorf("block missing placeholder %q", want)
		}
	}
	for _, section := range []string{
		"## IDENTITY & FACTS",
		"## SKILLS LEARNED FROM PAST TASKS",
		"## KNOWN FAILURE PATTERNS TO AVOID",
		"## WHAT YOU'VE DONE SO FAR THIS TASK",
	} {
		if !strings.Contains(block, section) {
			t.Errorf("block missing section header %q", section)
		}
	}
}

func TestLoadRealContentReplacesPlaceholders(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(dir)

	if err := os.MkdirAll(filepath.Join(dir, "gmail"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "gmail", "identity.md"), []byte("I handle email."), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SaveSkill("gmail", "ids", "list first"); err != nil {
		t.Fatal(err)
	}
	if err := svc.UpdateWorkingMemory("session", "gmail", "checked inbox"); err != nil {
		t.Fatal(err)
	}

	block := Load(svc, "gmail", "session")

	if strings.Contains(block, placeholderIdentity) {
		t.Error("identity placeholder present despite identity file")
	}
	if strings.Contains(block, placeholderSkills) {
		t.Error("skills placeholder present despite saved skill")
	}
	if !strings.Contains(block, placeholderFailures) {
		t.Error("failures placeholder missing despite no failures")
	}
	if !strings.Contains(block, "I handle email.") || !strings.Contains(block, "checked inbox") {
		t.Errorf("block missing real content: %q", block)
	}
}
