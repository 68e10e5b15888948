// Package schedule decides when recurring tasks run. Entries pair a
// time-of-day with a task; a last-run record caps each task at one run per
// calendar day in the configured timezone.
package schedule

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Entry is one recurring task definition.
type Entry struct {
	Time       string `json:"time"`       // "07:00", local to the configured timezone
	TaskID     string `json:"task_id"`    // names the task and keys its last-run record
	Recurrence string `json:"recurrence"` // "daily" (default) or a cron expression
	Delivery   string `json:"delivery"`   // "email", "telegram", or empty
}

// IsCron reports whether the entry's recurrence is a cron expression
// rather than the default daily time-of-day rule.
func (e Entry) IsCron() bool {
	return len(strings.Fields(e.Recurrence)) >= 5
}

// LoadEntries reads the schedule file. Two formats are accepted: a JSON
// array of entries, or plain lines of "TIME TASK [RECURRENCE] [DELIVERY]"
// (e.g. "07:00 report daily email"). A missing file is an empty schedule.
func LoadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read schedule: %w", err)
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return nil, nil
	}
	if strings.HasPrefix(content, "[") {
		var entries []Entry
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parse schedule: %w", err)
		}
		return entries, nil
	}
	return parseLines(content)
}

func parseLines(content string) ([]Entry, error) {
	var entries []Entry
	for i, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "- "))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("parse schedule line %d: need at least TIME TASK, got %q", i+1, line)
		}
		entry := Entry{Time: fields[0], TaskID: fields[1], Recurrence: "daily"}
		if len(fields) > 2 {
			entry.Recurrence = fields[2]
		}
		if len(fields) > 3 {
			entry.Delivery = fields[3]
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// LastRuns is the file-backed {task_id: last_run_date} record.
type LastRuns struct {
	path string
	mu   sync.Mutex
}

// NewLastRuns creates a last-run store backed by the given file.
func NewLastRuns(path string) *LastRuns {
	return &LastRuns{path: path}
}

func (l *LastRuns) load() map[string]string {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("could not read last-run file", "path", l.path, "error", err)
		}
		return map[string]string{}
	}
	var runs map[string]string
	if err := json.Unmarshal(data, &runs); err != nil {
		slog.Warn("last-run file is corrupt, starting fresh", "path", l.path, "error", err)
		return map[string]string{}
	}
	return runs
}

// Get returns the last-run date ("YYYY-MM-DD") for a task, or empty.
func (l *LastRuns) Get(taskID string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()[taskID]
}

// Record writes today's date for a task. Callers record only after a
// successful run, so a failed task stays due and retries the same day.
func (l *LastRuns) Record(taskID string, day time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	runs := l.load()
	runs[taskID] = day.Format("2006-01-02")

	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal last-run: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create last-run dir: %w", err)
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write last-run: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("replace last-run: %w", err)
	}
	return nil
}

// Checker evaluates which entries are due at a given moment.
type Checker struct {
	entries  []Entry
	lastRuns *LastRuns
	loc      *time.Location
}

// NewChecker creates a Checker over a fixed entry list. loc is the
// timezone schedule times are interpreted in.
func NewChecker(entries []Entry, lastRuns *LastRuns, loc *time.Location) *Checker {
	if loc == nil {
		loc = time.Local
	}
	return &Checker{entries: entries, lastRuns: lastRuns, loc: loc}
}

// Due returns the daily entries whose time-of-day has passed today and
// which have not yet run today. Cron entries are driven separately and
// never returned here.
func (c *Checker) Due(now time.Time) []Entry {
	local := now.In(c.loc)
	var due []Entry
	for _, e := range c.entries {
		if e.IsCron() {
			continue
		}
		ok, err := c.entryDue(e, local)
		if err != nil {
			slog.Warn("skipping malformed schedule entry", "task_id", e.TaskID, "error", err)
			continue
		}
		if ok {
			due = append(due, e)
		}
	}
	return due
}

// MarkRan records a completed run for an entry.
func (c *Checker) MarkRan(e Entry, now time.Time) error {
	return c.lastRuns.Record(e.TaskID, now.In(c.loc))
}

func (c *Checker) entryDue(e Entry, local time.Time) (bool, error) {
	at, err := time.Parse("15:04", e.Time)
	if err != nil {
		return false, fmt.Errorf("bad time %q: %w", e.Time, err)
	}
	scheduled := time.Date(local.Year(), local.Month(), local.Day(), at.Hour(), at.Minute(), 0, 0, c.loc)
	if local.Before(scheduled) {
		return false, nil
	}
	return c.lastRuns.Get(e.TaskID) != local.Format("2006-01-02"), nil
}
