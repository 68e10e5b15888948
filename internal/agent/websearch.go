package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/user/doot/internal/gemini"
	"github.com/user/doot/pkg/llm"
)

// WebsearchAgent answers questions using grounded web search. It makes a
// single search call per invocation rather than running a tool loop.
type WebsearchAgent struct {
	searcher gemini.Searcher
}

// NewWebsearchAgent creates the websearch agent.
func NewWebsearchAgent(searcher gemini.Searcher) *WebsearchAgent {
	return &WebsearchAgent{searcher: searcher}
}

func (a *WebsearchAgent) Name() string { return "websearch" }

// Invoke searches for the latest user question and appends one assistant
// message with the answer and its sources. A search failure becomes a
// readable reply instead of an error; the conversation always moves on.
func (a *WebsearchAgent) Invoke(ctx context.Context, conv []llm.Message) (*Result, error) {
	query := strings.TrimSpace(llm.LastUserText(conv))
	if query == "" {
		return &Result{}, nil
	}
	query = normalizeQuery(query)

	answer, sources, err := a.searcher.GroundedAnswer(ctx, query)
	if err != nil {
		slog.Warn("web search failed", "query", query, "error", err)
		return &Result{Messages: []llm.Message{{
			Role:    llm.RoleAssistant,
			Content: "I couldn't search the web right now. Please try again in a moment.",
		}}}, nil
	}

	var sb strings.Builder
	sb.WriteString(answer)
	if len(sources) > 0 {
		sb.WriteString("\n\nSources:\n")
		for i, s := range sources {
			title := s.Title
			if title == "" {
				title = s.URI
			}
			fmt.Fprintf(&sb, "  [%d] [%s](%s)\n", i+1, title, s.URI)
		}
	}

	return &Result{Messages: []llm.Message{{
		Role:    llm.RoleAssistant,
		Content: strings.TrimRight(sb.String(), "\n"),
	}}}, nil
}

// normalizeQuery handles meta-requests like "search the web" that carry no
// actual topic, turning them into a query for current headlines.
func normalizeQuery(query string) string {
	lower := strings.ToLower(query)
	if len(query) < 20 &&
		(strings.Contains(lower, "search the web") || strings.Contains(lower, "web search")) &&
		!strings.Contains(lower, " for ") && !strings.Contains(lower, " about ") {
		return "top news headlines today"
	}
	return query
}
