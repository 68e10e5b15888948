package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/user/doot/internal/calendar"
)

func calendarFailureText(action string, err error) (string, bool) {
	var apiErr *calendar.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("Could not %s: the calendar service returned an error (status %d). %s",
			action, apiErr.StatusCode, apiErr.Message), true
	}
	return "", false
}

func formatEvent(i int, e *calendar.Event) string {
	when := ""
	if e.AllDay {
		when = e.Start.Format("Mon Jan 2 2006") + " (all day)"
	} else {
		when = e.Start.Format("Mon Jan 2 2006 15:04") + " - " + e.End.Format("15:04")
	}
	line := fmt.Sprintf("%d. %s\n   When: %s | ID: %s", i+1, e.Summary, when, e.ID)
	if e.Location != "" {
		line += "\n   Where: " + e.Location
	}
	if len(e.Attendees) > 0 {
		line += "\n   With: " + strings.Join(e.Attendees, ", ")
	}
	return line
}

// ListEvents lists upcoming calendar events in a day window.
type ListEvents struct {
	client calendar.Client
	now    func() time.Time
}

// NewListEvents creates the list_events tool.
func NewListEvents(c calendar.Client) *ListEvents {
	return &ListEvents{client: c, now: time.Now}
}

func (t *ListEvents) Name() string { return "list_events" }
func (t *ListEvents) Description() string {
	return "List upcoming calendar events for the next N days (default: 7)"
}
func (t *ListEvents) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"days": {"type": "integer", "description": "How many days ahead to look (default: 7)"},
			"max": {"type": "integer", "description": "Maximum events to return (default: 20)"}
		}
	}`)
}

func (t *ListEvents) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var params struct {
		Days int `json:"days"`
		Max  int `json:"max"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return "", fmt.Errorf("parse args: %w", err)
	}
	if params.Days <= 0 {
		params.Days = 7
	}

	from := t.now()
	to := from.AddDate(0, 0, params.Days)
	events, err := t.client.ListUpcoming(ctx, from, to, params.Max)
	if err != nil {
		if text, ok := calendarFailureText("list events", err); ok {
			return text, nil
		}
		return "", err
	}
	if len(events) == 0 {
		return fmt.Sprintf("No events in the next %d days.", params.Days), nil
	}

	var sb strings.Builder
	for i := range events {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(formatEvent(i, &events[i]))
	}
	return sb.String(), nil
}

// CreateEvent adds an event to the calendar.
type CreateEvent struct{ client calendar.Client }

// NewCreateEvent creates the create_event tool.
func NewCreateEvent(c calendar.Client) *CreateEvent { return &CreateEvent{client: c} }

func (t *CreateEvent) Name() string { return "create_event" }
func (t *CreateEvent) Description() string {
	return "Create a calendar event. Times are RFC3339, e.g. 2026-03-01T14:00:00-05:00. Set all_day for date-only events"
}
func (t *CreateEvent) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"summary": {"type": "string", "description": "Event title"},
			"start": {"type": "string", "description": "Start time (RFC3339, or YYYY-MM-DD for all-day)"},
			"end": {"type": "string", "description": "End time (RFC3339, or YYYY-MM-DD for all-day)"},
			"all_day": {"type": "boolean", "description": "Whether this is an all-day event"},
			"location": {"type": "string", "description": "Optional location"},
			"description": {"type": "string", "description": "Optional details"}
		},
		"required": ["summary", "start", "end"]
	}`)
}

func (t *CreateEvent) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var params struct {
		Summary     string `json:"summary"`
		Start       string `json:"start"`
		End         string `json:"end"`
		AllDay      bool   `json:"all_day"`
		Location    string `json:"location"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return "", fmt.Errorf("parse args: %w", err)
	}
	if params.Summary == "" {
		return "", fmt.Errorf("summary is required")
	}

	start, err := parseEventInput(params.Start, params.AllDay)
	if err != nil {
		return "Could not create the event: the start time " + params.Start + " is not a valid time.", nil
	}
	end, err := parseEventInput(params.End, params.AllDay)
	if err != nil {
		return "Could not create the event: the end time " + params.End + " is not a valid time.", nil
	}

	created, err := t.client.Create(ctx, &calendar.Event{
		Summary:     params.Summary,
		Description: params.Description,
		Location:    params.Location,
		Start:       start,
		End:         end,
		AllDay:      params.AllDay,
	})
	if err != nil {
		if text, ok := calendarFailureText("create the event", err); ok {
			return text, nil
		}
		return "", err
	}
	return fmt.Sprintf("Event created: %s (ID: %s)", created.Summary, created.ID), nil
}

func parseEventInput(value string, allDay bool) (time.Time, error) {
	if allDay {
		return time.Parse("2006-01-02", value)
	}
	return time.Parse(time.RFC3339, value)
}

// DeleteEvent removes an event from the calendar.
type DeleteEvent struct{ client calendar.Client }

// NewDeleteEvent creates the delete_event tool.
func NewDeleteEvent(c calendar.Client) *DeleteEvent { return &DeleteEvent{client: c} }

func (t *DeleteEvent) Name() string { return "delete_event" }
func (t *DeleteEvent) Description() string {
	return "Delete a calendar event by its ID"
}
func (t *DeleteEvent) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"id": {"type": "string", "description": "Event ID from list_events"}
		},
		"required": ["id"]
	}`)
}

func (t *DeleteEvent) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var params struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return "", fmt.Errorf("parse args: %w", err)
	}
	if params.ID == "" {
		return "", fmt.Errorf("id is required")
	}

	if err := t.client.Delete(ctx, params.ID); err != nil {
		if text, ok := calendarFailureText("delete the event", err); ok {
			return text, nil
		}
		return "", err
	}
	return "Event deleted.", nil
}

// RegisterCalendarTools adds all calendar tools to a registry.
func RegisterCalendarTools(r *Registry, c calendar.Client) {
	r.Register(NewListEvents(c))
	r.Register(NewCreateEvent(c))
	r.Register(NewDeleteEvent(c))
}
