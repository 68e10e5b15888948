package workspace

import (
	"strings"
	"time"
)

// ContextBlock loads the long-term document plus today's and yesterday's
// daily logs into one string for injection at the start of a turn. It is
// rebuilt from current file contents on every call, never cached, so memory
// edits are visible on the very next turn.
func (s *Store) ContextBlock(now time.Time) string {
	var parts []string

	longTerm, _ := s.Read(LongTermFile, 0, 0)
	longTerm = strings.TrimSpace(longTerm)
	if longTerm == "" {
		longTerm = "(none)"
	}
	parts = append(parts, "## Long-term memory\n"+longTerm)

	today := now.Format("2006-01-02")
	yesterday := now.AddDate(0, 0, -1)

	var recent []string
	if content, _ := s.Read(DailyPath(now), 0, 0); strings.TrimSpace(content) != "" {
		recent = append(recent, "### Today ("+today+")\n"+strings.TrimSpace(content))
	}
	if content, _ := s.Read(DailyPath(yesterday), 0, 0); strings.TrimSpace(content) != "" {
		recent = append(recent, "### Yesterday ("+yesterday.Format("2006-01-02")+")\n"+strings.TrimSpace(content))
	}

	recentBlock := "(nothing recorded yet)"
	if len(recent) > 0 {
		recentBlock = strings.Join(recent, "\n\n")
	}
	parts = append(parts, "## Recent (today / yesterday)\n"+recentBlock)

	return strings.Join(parts, "\n\n")
}
