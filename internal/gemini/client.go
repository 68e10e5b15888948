// Package gemini wraps the Gemini API for web search grounded in Google
// Search results. The websearch agent delegates the actual searching here
// and gets back an answer plus its sources.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultModel = "gemini-2.5-flash"

// Source is one web citation backing a grounded answer.
type Source struct {
	Title string
	URI   string
}

// Searcher answers a query using live web results.
type Searcher interface {
	GroundedAnswer(ctx context.Context, query string) (string, []Source, error)
}

// Client implements Searcher over the Gemini API with the Google Search
// tool enabled.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient creates a grounded-search client.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{client: c, model: defaultModel}, nil
}

// GroundedAnswer runs the query with search grounding and returns the
// answer text plus the web sources it drew on.
func (c *Client) GroundedAnswer(ctx context.Context, query string) (string, []Source, error) {
	config := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
		SystemInstruction: genai.NewContentFromText(
			"Answer the question using current web results. Be concise and factual.",
			genai.RoleUser,
		),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(query), config)
	if err != nil {
		return "", nil, fmt.Errorf("grounded search: %w", err)
	}

	answer := strings.TrimSpace(resp.Text())
	if answer == "" {
		return "", nil, fmt.Errorf("grounded search: empty response")
	}
	return answer, extractSources(resp), nil
}

func extractSources(resp *genai.GenerateContentResponse) []Source {
	if len(resp.Candidates) == 0 {
		return nil
	}
	meta := resp.Candidates[0].GroundingMetadata
	if meta == nil {
		return nil
	}
	var sources []Source
	seen := make(map[string]bool)
	for _, chunk := range meta.GroundingChunks {
		if chunk.Web == nil || chunk.Web.URI == "" || seen[chunk.Web.URI] {
			continue
		}
		seen[chunk.Web.URI] = true
		sources = append(sources, Source{Title: chunk.Web.Title, URI: chunk.Web.URI})
	}
	return sources
}
