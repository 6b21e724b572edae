package gcal

import (
	"context"
	"fmt"
	"time"
)

// Calendar describes a calendar visible to the connected account.
type Calendar struct {
	ID              string `json:"id"`
	Summary         string `json:"summary"`
	Primary         bool   `json:"primary"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
}

// EventTime is either a timed instant (DateTime) or an all-day date (Date).
// Exactly one of the two is set.
type EventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// Event is a provider-neutral calendar event.
type Event struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Start       EventTime `json:"start"`
	End         EventTime `json:"end"`
	Updated     time.Time `json:"updated"`
}

// Provider is the remote calendar API surface the sync engine depends on.
// The production implementation talks to Google Calendar; tests substitute
// an in-memory fake.
type Provider interface {
	// ListCalendars returns the calendars on the connected account.
	ListCalendars(ctx context.Context) ([]Calendar, error)

	// ListEvents returns events within [from, to] ordered by start time,
	// with recurring events expanded into their single instances.
	ListEvents(ctx context.Context, calendarID string, from, to time.Time) ([]Event, error)

	// InsertEvent creates a new event and returns it with its remote ID set.
	InsertEvent(ctx context.Context, calendarID string, event *Event) (*Event, error)
}

// RemoteFetchError indicates the remote calendar could not be read.
type RemoteFetchError struct {
	CalendarID string
	StatusCode int
	Body       string
}

func (e *RemoteFetchError) Error() string {
	return fmt.Sprintf("remote fetch failed for calendar %s: status %d: %s", e.CalendarID, e.StatusCode, e.Body)
}

// RemotePushError indicates an event could not be written to the remote calendar.
type RemotePushError struct {
	CalendarID string
	StatusCode int
	Body       string
}

func (e *RemotePushError) Error() string {
	return fmt.Sprintf("remote push failed for calendar %s: status %d: %s", e.CalendarID, e.StatusCode, e.Body)
}

// AuthError indicates the stored credentials were rejected or missing.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("calendar authentication failed: %s", e.Reason)
}
