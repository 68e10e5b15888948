package memory

import (
	"fmt"
	"log/slog"
	"time"
)

// Save persists everything an agent invocation reported: each skill and
// failure becomes a new sequentially numbered markdown record, and a
// non-empty working-memory string fully overwrites the task scratchpad.
//
// Save never returns an error: losing incidental learned context must not
// abort the user-facing turn, so persistence failures are logged and
// swallowed.
func Save(s *Service, agentType, taskID string, learned *Learned) {
	if learned.Empty() {
		return
	}
	date := time.Now().Format("2006-01-02")

	for _, skill := range learned.Skills {
		title := skill.Title
		if title == "" {
			title = "Untitled skill"
		}
		appliesTo := skill.AppliesTo
		if appliesTo == "" {
			appliesTo = "General"
		}
		content := fmt.Sprintf(`# Skill: %s
Date: %s
Task: %s

## What I Learned
%s

## Applies To
%s
`, title, date, learned.TaskDescription, skill.Content, appliesTo)

		if _, err := s.SaveSkill(agentType, title, content); err != nil {
			slog.Warn("could not save skill", "agent_type", agentType, "title", title, "error", err)
		}
	}

	for _, failure := range learned.Failures {
		title := failure.Title
		if title == "" {
			title = "Untitled failure"
		}
		site := failure.Site
		if site == "" {
			site = "Unknown"
		}
		content := fmt.Sprintf(`# Failure Pattern: %s
Date: %s
Site: %s

## What Happened
%s

## How To Avoid
%s
`, title, date, site, failure.WhatHappened, failure.HowToAvoid)

		if _, err := s.SaveFailure(agentType, title, content); err != nil {
			slog.Warn("could not save failure", "agent_type", agentType, "title", title, "error", err)
		}
	}

	if learned.WorkingMemory != "" {
		if err := s.UpdateWorkingMemory(taskID, agentType, learned.WorkingMemory); err != nil {
			slog.Warn("could not update working memory", "agent_type", agentType, "task_id", taskID, "error", err)
		}
	}
}
