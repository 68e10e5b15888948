// Package calendar is a thin client for the Google Calendar REST API,
// covering the operations the calendar agent needs.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://www.googleapis.com/calendar/v3"

// TokenSource supplies a bearer token for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource returning a fixed token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// APIError is a non-2xx response from the Calendar API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("calendar API error (status %d): %s", e.StatusCode, e.Message)
}

// Event is one calendar event, flattened for agent consumption.
type Event struct {
	ID          string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Attendees   []string
}

// Client covers the calendar operations exposed to agents.
type Client interface {
	ListUpcoming(ctx context.Context, from, to time.Time, max int) ([]Event, error)
	Get(ctx context.Context, id string) (*Event, error)
	Create(ctx context.Context, event *Event) (*Event, error)
	Delete(ctx context.Context, id string) error
}

// RESTClient implements Client against the Calendar HTTP API, using the
// authenticated user's primary calendar.
type RESTClient struct {
	baseURL string
	tokens  TokenSource
	client  *http.Client
}

// NewRESTClient creates a Calendar client for the primary calendar.
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
		return nil, fmt.Errorf("calendar request: %w", err)
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

type eventTime struct {
	Date     string `json:"date,omitempty"`
	DateTime string `json:"dateTime,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

type rawEvent struct {
	ID          string    `json:"id,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       eventTime `json:"start"`
	End         eventTime `json:"end"`
	Attendees   []struct {
		Email string `json:"email"`
	} `json:"attendees,omitempty"`
}

type eventList struct {
	Items []rawEvent `json:"items"`
}

// ListUpcoming returns events in a time window, ordered by start time.
func (c *RESTClient) ListUpcoming(ctx context.Context, from, to time.Time, max int) ([]Event, error) {
	if max <= 0 {
		max = 20
	}
	q := url.Values{}
	q.Set("timeMin", from.Format(time.RFC3339))
	q.Set("timeMax", to.Format(time.RFC3339))
	q.Set("maxResults", fmt.Sprintf("%d", max))
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")

	data, err := c.do(ctx, http.MethodGet, "/calendars/primary/events", q, nil)
	if err != nil {
		return nil, err
	}
	var list eventList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse event list: %w", err)
	}

	events := make([]Event, 0, len(list.Items))
	for i := range list.Items {
		events = append(events, *decodeEvent(&list.Items[i]))
	}
	return events, nil
}

// Get fetches one event by ID.
func (c *RESTClient) Get(ctx context.Context, id string) (*Event, error) {
	data, err := c.do(ctx, http.MethodGet, "/calendars/primary/events/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	var raw rawEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse event: %w", err)
	}
	return decodeEvent(&raw), nil
}

// Create adds an event to the primary calendar and returns it with its
// assigned ID.
func (c *RESTClient) Create(ctx context.Context, event *Event) (*Event, error) {
	raw := rawEvent{
		Summary:     event.Summary,
		Description: event.Description,
		Location:    event.Location,
	}
	if event.AllDay {
		raw.Start = eventTime{Date: event.Start.Format("2006-01-02")}
		raw.End = eventTime{Date: event.End.Format("2006-01-02")}
	} else {
		raw.Start = eventTime{DateTime: event.Start.Format(time.RFC3339)}
		raw.End = eventTime{DateTime: event.End.Format(time.RFC3339)}
	}

	data, err := c.do(ctx, http.MethodPost, "/calendars/primary/events", nil, raw)
	if err != nil {
		return nil, err
	}
	var created rawEvent
	if err := json.Unmarshal(data, &created); err != nil {
		return nil, fmt.Errorf("parse created event: %w", err)
	}
	return decodeEvent(&created), nil
}

// Delete removes an event from the primary calendar.
func (c *RESTClient) Delete(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/calendars/primary/events/"+url.PathEscape(id), nil, nil)
	return err
}

func decodeEvent(raw *rawEvent) *Event {
	event := &Event{
		ID:          raw.ID,
		Summary:     raw.Summary,
		Description: raw.Description,
		Location:    raw.Location,
	}
	event.Start, event.AllDay = parseEventTime(raw.Start)
	event.End, _ = parseEventTime(raw.End)
	for _, a := range raw.Attendees {
		event.Attendees = append(event.Attendees, a.Email)
	}
	return event
}

func parseEventTime(t eventTime) (time.Time, bool) {
	if t.DateTime != "" {
		parsed, err := time.Parse(time.RFC3339, t.DateTime)
		if err == nil {
			return parsed, false
		}
	}
	if t.Date != "" {
		parsed, err := time.Parse("2006-01-02", t.Date)
		if err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
