package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/user/doot/internal/gmail"
)

// gmailFailureText turns a Gmail API failure into readable tool output so the
// model can react to it. Other errors propagate to the caller.
func gmailFailureText(action string, err error) (string, bool) {
	var apiErr *gmail.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("Could not %s: the mail service returned an error (status %d). %s",
			action, apiErr.StatusCode, apiErr.Message), true
	}
	return "", false
}

func formatMessageLine(i int, m *gmail.Message) string {
	status := " "
	if m.Unread {
		status = "*"
	}
	return fmt.Sprintf("%d. [%s] %s\n   From: %s | Date: %s | ID: %s\n   %s",
		i+1, status, m.Subject, m.From, m.Date, m.ID, m.Snippet)
}

// ListInbox lists recent inbox messages.
type ListInbox struct{ client gmail.Client }

// NewListInbox creates the list_inbox tool.
func NewListInbox(c gmail.Client) *ListInbox { return &ListInbox{client: c} }

func (t *ListInbox) Name() string { return "list_inbox" }
func (t *ListInbox) Description() string {
	return "List the most recent emails in the inbox. Unread messages are marked with *"
}
func (t *ListInbox) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"max": {"type": "integer", "description": "Maximum messages to list (default: 10)"}
		}
	}`)
}

func (t *ListInbox) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var params struct {
		Max int `json:"max"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return "", fmt.Errorf("parse args: %w", err)
	}

	messages, err := t.client.ListInbox(ctx, params.Max)
	if err != nil {
		if text, ok := gmailFailureText("list the inbox", err); ok {
			return text, nil
		}
		return "", err
	}
	if len(messages) == 0 {
		return "The inbox is empty.", nil
	}

	var sb strings.Builder
	for i := range messages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(formatMessageLine(i, &messages[i]))
	}
	return sb.String(), nil
}

// SearchEmail searches the mailbox with a Gmail query string.
type SearchEmail struct{ client gmail.Client }

// NewSearchEmail creates the search_email tool.
func NewSearchEmail(c gmail.Client) *SearchEmail { return &SearchEmail{client: c} }

func (t *SearchEmail) Name() string { return "search_email" }
func (t *SearchEmail) Description() string {
	return "Search the mailbox using Gmail query syntax, e.g. 'from:alice is:unread' or 'subject:invoice newer_than:7d'"
}
func (t *SearchEmail) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "Gmail search query"},
			"max": {"type": "integer", "description": "Maximum messages to return (default: 10)"}
		},
		"required": ["query"]
	}`)
}

func (t *SearchEmail) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var params struct {
		Query string `json:"query"`
		Max   int    `json:"max"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return "", fmt.Errorf("parse args: %w", err)
	}
	if params.Query == "" {
		return "", fmt.Errorf("query is required")
	}

	messages, err := t.client.Search(ctx, params.Query, params.Max)
	if err != nil {
		if text, ok := gmailFailureText("search email", err); ok {
			return text, nil
		}
		return "", err
	}
	if len(messages) == 0 {
		return "No emails matched: " + params.Query, nil
	}

	var sb strings.Builder
	for i := range messages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(formatMessageLine(i, &messages[i]))
	}
	return sb.String(), nil
}

// ReadEmail fetches one email in full.
type ReadEmail struct{ client gmail.Client }

// NewReadEmail creates the read_email tool.
func NewReadEmail(c gmail.Client) *ReadEmail { return &ReadEmail{client: c} }

func (t *ReadEmail) Name() string { return "read_email" }
func (t *ReadEmail) Description() string {
	return "Read the full content of one email by its ID"
}
func (t *ReadEmail) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"id": {"type": "string", "description": "Message ID from list_inbox or search_email"}
		},
		"required": ["id"]
	}`)
}

func (t *ReadEmail) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var params struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return "", fmt.Errorf("parse args: %w", err)
	}
	if params.ID == "" {
		return "", fmt.Errorf("id is required")
	}

	msg, err := t.client.Get(ctx, params.ID)
	if err != nil {
		if text, ok := gmailFailureText("read the email", err); ok {
			return text, nil
		}
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\nTo: %s\nDate: %s\nSubject: %s\n\n%s",
		msg.From, msg.To, msg.Date, msg.Subject, msg.Body)
	return sb.String(), nil
}

// TrashEmail moves an email to the trash.
type TrashEmail struct{ client gmail.Client }

// NewTrashEmail creates the trash_email tool.
func NewTrashEmail(c gmail.Client) *TrashEmail { return &TrashEmail{client: c} }

func (t *TrashEmail) Name() string { return "trash_email" }
func (t *TrashEmail) Description() string {
	return "Move an email to the trash by its ID"
}
func (t *TrashEmail) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"id": {"type": "string", "description": "Message ID to trash"}
		},
		"required": ["id"]
	}`)
}

func (t *TrashEmail) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var params struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return "", fmt.Errorf("parse args: %w", err)
	}
	if params.ID == "" {
		return "", fmt.Errorf("id is required")
	}

	if err := t.client.Trash(ctx, params.ID); err != nil {
		if text, ok := gmailFailureText("trash the email", err); ok {
			return text, nil
		}
		return "", err
	}
	return "Email moved to trash.", nil
}

// SendEmail sends a plain-text email.
type SendEmail struct{ client gmail.Client }

// NewSendEmail creates the send_email tool.
func NewSendEmail(c gmail.Client) *SendEmail { return &SendEmail{client: c} }

func (t *SendEmail) Name() string { return "send_email" }
func (t *SendEmail) Description() string {
	return "Send a plain-text email from the user's account"
}
func (t *SendEmail) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"to": {"type": "string", "description": "Recipient email address"},
			"subject": {"type": "string", "description": "Email subject"},
			"body": {"type": "string", "description": "Plain-text body"}
		},
		"required": ["to", "subject", "body"]
	}`)
}

func (t *SendEmail) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var params struct {
		To      string `json:"to"`
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return "", fmt.Errorf("parse args: %w", err)
	}
	if params.To == "" || params.Subject == "" {
		return "", fmt.Errorf("to and subject are required")
	}

	if err := t.client.Send(ctx, params.To, params.Subject, params.Body); err != nil {
		if text, ok := gmailFailureText("send the email", err); ok {
			return text, nil
		}
		return "", err
	}
	return "Email sent to " + params.To + ".", nil
}

// RegisterGmailTools adds all mailbox tools to a registry.
func RegisterGmailTools(r *Registry, c gmail.Client) {
	r.Register(NewListInbox(c))
	r.Register(NewSearchEmail(c))
	r.Register(NewReadEmail(c))
	r.Register(NewTrashEmail(c))
	r.Register(NewSendEmail(c))
}
