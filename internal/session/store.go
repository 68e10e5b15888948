// Package session persists the interactive conversation history as a JSON
// file of user/assistant turns. Tool-call traffic and injected context never
// reach the file; only the user-visible exchange is kept.
package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/user/doot/pkg/llm"
)

// entry is the on-disk shape of one conversation turn.
type entry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Store reads and writes the session file. Concurrent writers within one
// process are serialized; across processes the last writer wins.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a session store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the session file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the persisted conversation. A missing or unreadable file
// yields an empty conversation; the session degrades rather than blocking
// a turn.
func (s *Store) Load() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("could not read session file", "path", s.path, "error", err)
		}
		return nil
	}

	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		slog.Warn("session file is corrupt, starting fresh", "path", s.path, "error", err)
		return nil
	}

	messages := make([]llm.Message, 0, len(entries))
	for _, e := range entries {
		if e.Role != llm.RoleUser && e.Role != llm.RoleAssistant {
			continue
		}
		messages = append(messages, llm.Message{Role: e.Role, Content: e.Content})
	}
	return messages
}

// Save replaces the session file with the given conversation. Only user and
// assistant turns with text content are written; system prompts, injected
// context, and tool traffic are filtered out. The write is atomic.
func (s *Store) Save(messages []llm.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]entry, 0, len(messages))
	for _, m := range messages {
		if m.Role != llm.RoleUser && m.Role != llm.RoleAssistant {
			continue
		}
		if m.Content == "" {
			continue
		}
		entries = append(entries, entry{Role: m.Role, Content: m.Content})
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}

// Clear removes the session file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
