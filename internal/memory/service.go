// Package memory stores per-agent-type structured memory as markdown files:
// a static identity document, append-only skill and failure logs, and a
// per-task working-memory scratchpad.
package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SkillRecord is one learned procedure reported by an agent run.
type SkillRecord struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	AppliesTo string `json:"applies_to,omitempty"`
}

// FailureRecord is one known failure pattern reported by an agent run.
type FailureRecord struct {
	Title        string `json:"title"`
	Site         string `json:"site,omitempty"`
	WhatHappened string `json:"what_happened"`
	HowToAvoid   string `json:"how_to_avoid"`
}

// Learned collects everything an agent invocation reported for persistence.
// The dispatcher saves it after the invocation; agents never write memory
// themselves.
type Learned struct {
	Skills          []SkillRecord
	Failures        []FailureRecord
	WorkingMemory   string
	TaskDescription string
}

// Empty reports whether there is nothing to persist.
func (l *Learned) Empty() bool {
	return l == nil || (len(l.Skills) == 0 && len(l.Failures) == 0 && l.WorkingMemory == "")
}

// Service reads and writes per-agent identity, skills, failures, and working
// memory under a base directory. Layout:
//
//	<base>/<agent_type>/identity.md
//	<base>/<agent_type>/skills/001_title.md
//	<base>/<agent_type>/failures/001_title.md
//	<base>/working/<task_id>/<agent_type>.md
type Service struct {
	base string
}

// NewService creates a Service rooted at the given directory.
func NewService(base string) *Service {
	return &Service{base: base}
}

// Identity returns the static identity document for an agent type, or an
// empty string if none exists.
func (s *Service) Identity(agentType string) string {
	data, err := os.ReadFile(filepath.Join(s.base, agentType, "identity.md"))
	if err != nil {
		return ""
	}
	return string(data)
}

// Skills returns all skill records for an agent type joined with a rule
// separator, in sequence order.
func (s *Service) Skills(agentType string) string {
	return s.joinRecords(filepath.Join(s.base, agentType, "skills"))
}

// Failures returns all failure records for an agent type joined with a rule
// separator, in sequence order.
func (s *Service) Failures(agentType string) string {
	return s.joinRecords(filepath.Join(s.base, agentType, "failures"))
}

func (s *Service) joinRecords(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var parts []string
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		parts = append(parts, string(data))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// SaveSkill appends a new titled skill record with the next sequence index.
// Existing records are never modified.
func (s *Service) SaveSkill(agentType, title, content string) (string, error) {
	return s.appendRecord(filepath.Join(s.base, agentType, "skills"), title, content)
}

// SaveFailure appends a new titled failure record with the next sequence index.
func (s *Service) SaveFailure(agentType, title, content string) (string, error) {
	return s.appendRecord(filepath.Join(s.base, agentType, "failures"), title, content)
}

func (s *Service) appendRecord(dir, title, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create record dir: %w", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read record dir: %w", err)
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			count++
		}
	}

	name := fmt.Sprintf("%03d_%s.md", count+1, slugify(title))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write record: %w", err)
	}
	return path, nil
}

// WorkingMemory returns the current scratchpad for a (task, agent type)
// pair, or an empty string if none exists.
func (s *Service) WorkingMemory(taskID, agentType string) string {
	data, err := os.ReadFile(s.workingPath(taskID, agentType))
	if err != nil {
		return ""
	}
	return string(data)
}

// UpdateWorkingMemory fully overwrites the scratchpad for a (task, agent
// type) pair.
func (s *Service) UpdateWorkingMemory(taskID, agentType, content string) error {
	path := s.workingPath(taskID, agentType)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create working dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write working memory: %w", err)
	}
	return nil
}

// ClearWorkingMemory removes all scratchpads for a task, for use when a
// task fully completes.
func (s *Service) ClearWorkingMemory(taskID string) error {
	dir := filepath.Join(s.base, "working", taskID)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clear working memory: %w", err)
	}
	return nil
}

func (s *Service) workingPath(taskID, agentType string) string {
	return filepath.Join(s.base, "working", taskID, agentType+".md")
}

func slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = strings.ReplaceAll(slug, " ", "_")
	slug = strings.ReplaceAll(slug, "/", "_")
	if slug == "" {
		slug = "untitled"
	}
	return slug
}
