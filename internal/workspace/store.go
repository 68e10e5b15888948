// Package workspace implements the shared free-form memory workspace: one
// long-term document (MEMORY.md) plus date-keyed daily logs
// (memory/YYYY-MM-DD.md), with keyword search over both.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// LongTermFile is the relative path of the long-term memory document.
const LongTermFile = "MEMORY.md"

// Only two path shapes are ever readable or writable: the long-term
// document, or a daily log named by ISO date. Everything else is rejected
// before touching storage.
var allowedPath = regexp.MustCompile(`^(?i)(MEMORY\.md|memory/\d{4}-\d{2}-\d{2}\.md)$`)

var dateStem = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Match is one keyword search hit.
type Match struct {
	Path      string
	StartLine int
	EndLine   int
	Snippet   string
}

// Store is the file-backed workspace memory rooted at a single directory.
// All access goes through the path allow-pattern; resolved paths must stay
// under the root.
type Store struct {
	root string
}

// NewStore creates a Store rooted at the given directory.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the workspace root directory.
func (s *Store) Root() string {
	return s.root
}

// resolve validates a requested path against the allow-pattern and confines
// it to the workspace root. Returns an error for any other shape.
func (s *Store) resolve(path string) (string, error) {
	path = strings.ReplaceAll(strings.TrimSpace(path), "\\", "/")
	if !allowedPath.MatchString(path) {
		return "", fmt.Errorf("path not allowed: %s", path)
	}
	full := filepath.Clean(filepath.Join(s.root, filepath.FromSlash(path)))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes workspace: %s", path)
	}
	return full, nil
}

// Read returns the content of a memory file, optionally restricted to a
// 1-based line range. A missing file reads as empty; a disallowed path is
// an error and no file is touched.
func (s *Store) Read(path string, startLine, numLines int) (string, error) {
	full, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		slog.Warn("could not read memory file", "path", path, "error", err)
		return "", nil
	}
	content := string(data)
	if startLine <= 0 && numLines <= 0 {
		return content, nil
	}

	lines := strings.Split(content, "\n")
	start := 0
	if startLine > 0 {
		start = startLine - 1
		if start > len(lines) {
			start = len(lines)
		}
	}
	end := len(lines)
	if numLines > 0 && start+numLines < end {
		end = start + numLines
	}
	return strings.Join(lines[start:end], "\n"), nil
}

// Append adds content to a memory file, creating it on first use. Existing
// content is preserved; a blank line separates entries.
func (s *Store) Append(path, content string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create memory dir: %w", err)
	}

	existing := ""
	if data, err := os.ReadFile(full); err == nil {
		existing = string(data)
	}
	updated := strings.TrimRight(existing, "\n \t")
	if strings.TrimSpace(updated) != "" {
		updated += "\n\n"
	} else {
		updated = ""
	}
	updated += strings.TrimSpace(content) + "\n"

	if err := os.WriteFile(full, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("append memory file: %w", err)
	}
	return nil
}

// Dates returns the sorted list of daily-log dates present in the workspace.
func (s *Store) Dates() []string {
	entries, err := os.ReadDir(filepath.Join(s.root, "memory"))
	if err != nil {
		return nil
	}
	var dates []string
	for _, e := range entries {
		stem := strings.TrimSuffix(e.Name(), ".md")
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".md") && dateStem.MatchString(stem) {
			dates = append(dates, stem)
		}
	}
	sort.Strings(dates)
	return dates
}

// DailyPath returns the relative daily-log path for a date.
func DailyPath(day time.Time) string {
	return "memory/" + day.Format("2006-01-02") + ".md"
}

// Search scans the long-term document and daily logs (newest first) for a
// case-insensitive keyword, returning snippets with two lines of context.
func (s *Store) Search(query string, maxResults int) []Match {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	if maxResults <= 0 {
		maxResults = 10
	}
	q := strings.ToLower(query)

	var results []Match
	searchFile := func(rel string) {
		content, err := s.Read(rel, 0, 0)
		if err != nil || content == "" {
			return
		}
		lines := strings.Split(content, "\n")
		for i, line := range lines {
			if !strings.Contains(strings.ToLower(line), q) {
				continue
			}
			start := i - 2
			if start < 0 {
				start = 0
			}
			end := i + 3
			if end > len(lines) {
				end = len(lines)
			}
			results = append(results, Match{
				Path:      rel,
				StartLine: start + 1,
				EndLine:   end,
				Snippet:   strings.Join(lines[start:end], "\n"),
			})
			if len(results) >= maxResults {
				return
			}
		}
	}

	searchFile(LongTermFile)
	if len(results) >= maxResults {
		return results[:maxResults]
	}

	dates := s.Dates()
	for i := len(dates) - 1; i >= 0; i-- {
		searchFile("memory/" + dates[i] + ".md")
		if len(results) >= maxResults {
			break
		}
	}
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}
