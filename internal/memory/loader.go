package memory

import "fmt"

// Placeholder strings substituted when a memory slice is empty.
const (
	placeholderIdentity = "No identity file found."
	placeholderSkills   = "No skills stored yet."
	placeholderFailures = "No failures recorded yet."
	placeholderWorking  = "Nothing yet - this is the start of the task."
)

// Load builds a single markdown block with identity, skills, failures, and
// working memory for an agent type, substituting fixed placeholders for
// empty slices. The block is prepended to the agent's LLM input each
// invocation.
func Load(s *Service, agentType, taskID string) string {
	identity := s.Identity(agentType)
	if identity == "" {
		identity = placeholderIdentity
	}
	skills := s.Skills(agentType)
	if skills == "" {
		skills = placeholderSkills
	}
	failures := s.Failures(agentType)
	if failures == "" {
		failures = placeholderFailures
	}
	working := s.WorkingMemory(taskID, agentType)
	if working == "" {
		working = placeholderWorking
	}

	return fmt.Sprintf(`## IDENTITY & FACTS
%s

## SKILLS LEARNED FROM PAST TASKS
%s

## KNOWN FAILURE PATTERNS TO AVOID
%s

## WHAT YOU'VE DONE SO FAR THIS TASK
%s
`, identity, skills, failures, working)
}
