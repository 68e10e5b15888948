// Package gmail is a thin client for the Gmail REST API, covering the
// operations the email agent needs: list, search, read, trash, send.
package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

const defaultBaseURL = "https://gmail.googleapis.com/gmail/v1"

// TokenSource supplies a bearer token for each request. OAuth refresh
// machinery lives behind this interface.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource returning a fixed token. Useful for tests
// and for externally managed credentials.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// APIError is a non-2xx response from the Gmail API. Callers can surface it
// to the model as a readable failure instead of aborting the run.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gmail API error (status %d): %s", e.StatusCode, e.Message)
}

// Message is one email, flattened for agent consumption. Body holds the
// plain-text content; HTML-only messages are converted to markdown.
type Message struct {
	ID       string
	ThreadID string
	From     string
	To       string
	Subject  string
	Date     string
	Snippet  string
	Body     string
	Unread   bool
}

// Client covers the mailbox operations exposed to agents.
type Client interface {
	ListInbox(ctx context.Context, max int) ([]Message, error)
	Search(ctx context.Context, query string, max int) ([]Message, error)
	Get(ctx context.Context, id string) (*Message, error)
	Trash(ctx context.Context, id string) error
	Send(ctx context.Context, to, subject, body string) error
}

// RESTClient implements Client against the Gmail HTTP API.
type RESTClient struct {
	baseURL string
	tokens  TokenSource
	client  *http.Client
}

// NewRESTClient creates a Gmail client for the authenticated user.
func NewRESTClient(tokens TokenSource) *RESTClient {
	return &RESTClient{
		baseURL: defaultBaseURL,
		tokens:  tokens,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// NewRESTClientWithBaseURL creates a client against a non-default endpoint.
func NewRESTClientWithBaseURL(tokens TokenSource, baseURL string) *RESTClient {
	c := NewRESTClient(tokens)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

func (c *RESTClient) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gmail request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	return data, nil
}

type listResponse struct {
	Messages []struct {
		ID       string `json:"id"`
		ThreadID string `json:"threadId"`
	} `json:"messages"`
}

type messageResponse struct {
	ID       string   `json:"id"`
	ThreadID string   `json:"threadId"`
	Snippet  string   `json:"snippet"`
	LabelIDs []string `json:"labelIds"`
	Payload  *payload `json:"payload"`
}

type payload struct {
	MimeType string `json:"mimeType"`
	Headers  []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"headers"`
	Body struct {
		Data string `json:"data"`
	} `json:"body"`
	Parts []payload `json:"parts"`
}

// ListInbox returns the most recent inbox messages, newest first.
func (c *RESTClient) ListInbox(ctx context.Context, max int) ([]Message, error) {
	return c.Search(ctx, "in:inbox", max)
}

// Search returns messages matching a Gmail query string.
func (c *RESTClient) Search(ctx context.Context, query string, max int) ([]Message, error) {
	if max <= 0 {
		max = 10
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("maxResults", fmt.Sprintf("%d", max))

	data, err := c.do(ctx, http.MethodGet, "/users/me/messages", q, nil)
	if err != nil {
		return nil, err
	}
	var list listResponse
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse message list: %w", err)
	}

	messages := make([]Message, 0, len(list.Messages))
	for _, ref := range list.Messages {
		msg, err := c.Get(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, nil
}

// Get fetches one message in full.
func (c *RESTClient) Get(ctx context.Context, id string) (*Message, error) {
	q := url.Values{}
	q.Set("format", "full")
	data, err := c.do(ctx, http.MethodGet, "/users/me/messages/"+url.PathEscape(id), q, nil)
	if err != nil {
		return nil, err
	}
	var raw messageResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	return decodeMessage(&raw), nil
}

// Trash moves a message to the trash.
func (c *RESTClient) Trash(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodPost, "/users/me/messages/"+url.PathEscape(id)+"/trash", nil, nil)
	return err
}

// Send sends a plain-text email from the authenticated user.
func (c *RESTClient) Send(ctx context.Context, to, subject, body string) error {
	var rfc822 strings.Builder
	fmt.Fprintf(&rfc822, "To: %s\r\n", to)
	fmt.Fprintf(&rfc822, "Subject: %s\r\n", subject)
	rfc822.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	rfc822.WriteString("\r\n")
	rfc822.WriteString(body)

	payload := map[string]string{
		"raw": base64.URLEncoding.EncodeToString([]byte(rfc822.String())),
	}
	_, err := c.do(ctx, http.MethodPost, "/users/me/messages/send", nil, payload)
	return err
}

func decodeMessage(raw *messageResponse) *Message {
	msg := &Message{
		ID:       raw.ID,
		ThreadID: raw.ThreadID,
		Snippet:  raw.Snippet,
	}
	for _, label := range raw.LabelIDs {
		if label == "UNREAD" {
			msg.Unread = true
		}
	}
	if raw.Payload == nil {
		return msg
	}
	for _, h := range raw.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "from":
			msg.From = h.Value
		case "to":
			msg.To = h.Value
		case "subject":
			msg.Subject = h.Value
		case "date":
			msg.Date = h.Value
		}
	}
	msg.Body = extractBody(raw.Payload)
	return msg
}

// extractBody walks the MIME tree preferring text/plain; an HTML-only
// message is converted to markdown so the model reads prose, not tags.
func extractBody(p *payload) string {
	if plain := findPart(p, "text/plain"); plain != "" {
		return plain
	}
	if html := findPart(p, "text/html"); html != "" {
		md, err := htmltomarkdown.ConvertString(html)
		if err != nil {
			return html
		}
		return md
	}
	return ""
}

func findPart(p *payload, mimeType string) string {
	if strings.HasPrefix(p.MimeType, mimeType) && p.Body.Data != "" {
		data, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(strings.TrimRight(p.Body.Data, "="))
		if err != nil {
			return ""
		}
		return string(data)
	}
	for i := range p.Parts {
		if s := findPart(&p.Parts[i], mimeType); s != "" {
			return s
		}
	}
	return ""
}
