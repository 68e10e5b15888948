package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/user/doot/internal/tools"
)

// MemoryGet reads a workspace memory file.
type MemoryGet struct{ store *Store }

// NewMemoryGet creates the memory_get tool.
func NewMemoryGet(s *Store) *MemoryGet { return &MemoryGet{store: s} }

func (t *MemoryGet) Name() string { return "memory_get" }
func (t *MemoryGet) Description() string {
	return "Read a memory file. Use MEMORY.md for long-term memory, or memory/YYYY-MM-DD.md for a daily log"
}
func (t *MemoryGet) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {"type": "string", "description": "MEMORY.md or memory/YYYY-MM-DD.md"},
			"start_line": {"type": "integer", "description": "1-based start line of an optional range"},
			"num_lines": {"type": "integer", "description": "Number of lines to read from start_line"}
		},
		"required": ["path"]
	}`)
}

func (t *MemoryGet) Execute(_ context.Context, args json.RawMessage) (string, error) {
	var params struct {
		Path      string `json:"path"`
		StartLine int    `json:"start_line"`
		NumLines  int    `json:"num_lines"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return "", fmt.Errorf("parse args: %w", err)
	}

	content, err := t.store.Read(params.Path, params.StartLine, params.NumLines)
	if err != nil {
		// Disallowed path: tell the model instead of crashing the loop.
		return fmt.Sprintf("Cannot read %s: only MEMORY.md and memory/YYYY-MM-DD.md are allowed.", params.Path), nil
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Sprintf("(No content yet for %s)", params.Path), nil
	}
	return content, nil
}

// MemorySearch searches all workspace memory by keyword.
type MemorySearch struct{ store *Store }

// NewMemorySearch creates the memory_search tool.
func NewMemorySearch(s *Store) *MemorySearch { return &MemorySearch{store: s} }

func (t *MemorySearch) Name() string { return "memory_search" }
func (t *MemorySearch) Description() string {
	return "Search memory by keyword over MEMORY.md and all daily logs; returns snippets with file path and line numbers"
}
func (t *MemorySearch) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "Keyword to search for"},
			"max_results": {"type": "integer", "description": "Maximum matches to return (default 10)"}
		},
		"required": ["query"]
	}`)
}

func (t *MemorySearch) Execute(_ context.Context, args json.RawMessage) (string, error) {
	var params struct {
		Query      string `json:"query"`
		MaxResults int    `json:"max_results"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return "", fmt.Errorf("parse args: %w", err)
	}

	matches := t.store.Search(params.Query, params.MaxResults)
	if len(matches) == 0 {
		return "No matches for: " + params.Query, nil
	}

	var sb strings.Builder
	for i, m := range matches {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "--- %s (lines %d-%d) ---\n%s", m.Path, m.StartLine, m.EndLine, m.Snippet)
	}
	return sb.String(), nil
}

// MemoryAppend appends content to a workspace memory file.
type MemoryAppend struct{ store *Store }

// NewMemoryAppend creates the memory_append tool.
func NewMemoryAppend(s *Store) *MemoryAppend { return &MemoryAppend{store: s} }

func (t *MemoryAppend) Name() string { return "memory_append" }
func (t *MemoryAppend) Description() string {
	return "Append content to a memory file. Use MEMORY.md for long-term facts, or memory/YYYY-MM-DD.md for today's log"
}
func (t *MemoryAppend) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {"type": "string", "description": "MEMORY.md or memory/YYYY-MM-DD.md"},
			"content": {"type": "string", "description": "Content to append"}
		},
		"required": ["path", "content"]
	}`)
}

func (t *MemoryAppend) Execute(_ context.Context, args json.RawMessage) (string, error) {
	var params struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return "", fmt.Errorf("parse args: %w", err)
	}
	if params.Content == "" {
		return "", fmt.Errorf("content is required")
	}

	if err := t.store.Append(params.Path, params.Content); err != nil {
		return fmt.Sprintf("Failed: %v", err), nil
	}
	return "Appended to " + params.Path + ".", nil
}

// RegisterMemoryTools adds the three workspace memory tools to a registry.
func RegisterMemoryTools(r *tools.Registry, s *Store) {
	r.Register(NewMemoryGet(s))
	r.Register(NewMemorySearch(s))
	r.Register(NewMemoryAppend(s))
}
