package gcal

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GoogleProvider implements Provider against the Google Calendar v3 API.
// One instance is scoped to a single user's credentials.
type GoogleProvider struct {
	svc *calendar.Service
}

func NewGoogleProvider(ctx context.Context, ts oauth2.TokenSource) (*GoogleProvider, error) {
	svc, err := calendar.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, &AuthError{Reason: err.Error()}
	}
	return &GoogleProvider{svc: svc}, nil
}

func (p *GoogleProvider) ListCalendars(ctx context.Context) ([]Calendar, error) {
	list, err := p.svc.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, fetchError("", err)
	}

	calendars := make([]Calendar, 0, len(list.Items))
	for _, item := range list.Items {
		calendars = append(calendars, Calendar{
			ID:              item.Id,
			Summary:         item.Summary,
			Primary:         item.Primary,
			BackgroundColor: item.BackgroundColor,
		})
	}
	return calendars, nil
}

func (p *GoogleProvider) ListEvents(ctx context.Context, calendarID string, from, to time.Time) ([]Event, error) {
	call := p.svc.Events.List(calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)

	var events []Event
	pageToken := ""
	for {
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fetchError(calendarID, err)
		}
		for _, item := range resp.Items {
			events = append(events, fromGoogleEvent(item))
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	return events, nil
}

func (p *GoogleProvider) InsertEvent(ctx context.Context, calendarID string, event *Event) (*Event, error) {
	created, err := p.svc.Events.Insert(calendarID, toGoogleEvent(event)).Context(ctx).Do()
	if err != nil {
		return nil, pushError(calendarID, err)
	}
	result := fromGoogleEvent(created)
	return &result, nil
}

func fromGoogleEvent(item *calendar.Event) Event {
	event := Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
	}
	if item.Start != nil {
		event.Start = EventTime{DateTime: item.Start.DateTime, Date: item.Start.Date, TimeZone: item.Start.TimeZone}
	}
	if item.End != nil {
		event.End = EventTime{DateTime: item.End.DateTime, Date: item.End.Date, TimeZone: item.End.TimeZone}
	}
	if item.Updated != "" {
		if updated, err := time.Parse(time.RFC3339, item.Updated); err == nil {
			event.Updated = updated
		}
	}
	return event
}

func toGoogleEvent(event *Event) *calendar.Event {
	return &calendar.Event{
		Summary:     event.Summary,
		Description: event.Description,
		Start: &calendar.EventDateTime{
			DateTime: event.Start.DateTime,
			Date:     event.Start.Date,
			TimeZone: event.Start.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: event.End.DateTime,
			Date:     event.End.Date,
			TimeZone: event.End.TimeZone,
		},
	}
}

func fetchError(calendarID string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden {
			return &AuthError{Reason: apiErr.Message}
		}
		return &RemoteFetchError{CalendarID: calendarID, StatusCode: apiErr.Code, Body: apiErr.Message}
	}
	return &RemoteFetchError{CalendarID: calendarID, Body: err.Error()}
}

func pushError(calendarID string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden {
			return &AuthError{Reason: apiErr.Message}
		}
		return &RemotePushError{CalendarID: calendarID, StatusCode: apiErr.Code, Body: apiErr.Message}
	}
	return &RemotePushError{CalendarID: calendarID, Body: err.Error()}
}
