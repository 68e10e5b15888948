package orchestrator

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/user/doot/internal/workspace"
	"github.com/user/doot/pkg/llm"
)

// ContextBuilder assembles the per-turn context block: the standing
// instructions document plus workspace memory (long-term document and the
// last two daily logs). The block is rebuilt on every turn and injected
// fresh; it is never persisted with the session.
type ContextBuilder struct {
	store     *workspace.Store
	docPath   string
	maxTokens int
	reserve   int
	enc       *tiktoken.Tiktoken
}

// NewContextBuilder creates a builder. docPath points at the standing
// instructions file and may be empty. maxContextTokens bounds the whole
// prompt; reserve is held back for the model's output.
func NewContextBuilder(store *workspace.Store, docPath string, maxContextTokens, reserve int) *ContextBuilder {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		slog.Warn("token encoder unavailable, falling back to estimate", "error", err)
		enc = nil
	}
	if maxContextTokens <= 0 {
		maxContextTokens = 100000
	}
	if reserve <= 0 {
		reserve = 4096
	}
	return &ContextBuilder{
		store:     store,
		docPath:   docPath,
		maxTokens: maxContextTokens,
		reserve:   reserve,
		enc:       enc,
	}
}

// ContextMessage returns the injected context as a system turn.
func (b *ContextBuilder) ContextMessage(now time.Time) llm.Message {
	var sb strings.Builder
	if doc := b.instructions(); doc != "" {
		sb.WriteString(doc)
		sb.WriteString("\n\n")
	}
	sb.WriteString(b.store.ContextBlock(now))
	return llm.Message{Role: llm.RoleSystem, Content: sb.String()}
}

// instructions returns the standing instructions document body. A leading
// frontmatter block delimited by the first "---" line is stripped.
func (b *ContextBuilder) instructions() string {
	if b.docPath == "" {
		return ""
	}
	data, err := os.ReadFile(b.docPath)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("could not read instructions document", "path", b.docPath, "error", err)
		}
		return ""
	}
	content := string(data)
	if idx := strings.Index(content, "\n---\n"); idx >= 0 {
		content = content[idx+len("\n---\n"):]
	}
	return strings.TrimSpace(content)
}

// CountTokens measures a string against the model's tokenizer, with a
// bytes/4 estimate when the encoder is unavailable.
func (b *ContextBuilder) CountTokens(text string) int {
	if b.enc == nil {
		return len(text) / 4
	}
	return len(b.enc.Encode(text, nil, nil))
}

// Trim drops the oldest conversation turns until the whole prompt fits the
// token budget, always keeping the most recent user message.
func (b *ContextBuilder) Trim(contextMsg llm.Message, conv []llm.Message) []llm.Message {
	budget := b.maxTokens - b.reserve - b.CountTokens(contextMsg.Content)
	if budget <= 0 {
		budget = b.reserve
	}

	total := 0
	cut := len(conv)
	for i := len(conv) - 1; i >= 0; i-- {
		cost := b.CountTokens(conv[i].Content) + 8
		if total+cost > budget && cut < len(conv) {
			break
		}
		total += cost
		cut = i
	}
	return conv[cut:]
}
