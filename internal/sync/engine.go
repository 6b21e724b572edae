package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"lynck-space/internal/email"
	"lynck-space/internal/gcal"
	"lynck-space/internal/storage"
)

// Local event timestamps are stored without zone; all values are UTC.
const LOCAL_TIME_LAYOUT = "2006-01-02T15:04:05"

// Events imported from a remote calendar land in this category.
const IMPORTED_EVENT_CATEGORY = "work"

// How many months past the current one the reconciliation window covers.
const WINDOW_MONTHS_AHEAD = 3

// RemoteFactory builds a calendar provider scoped to one user's credentials.
type RemoteFactory func(ctx context.Context, userID string) (gcal.Provider, error)

// Result aggregates the outcome of one synchronization pass.
type Result struct {
	Imported int    `json:"imported"`
	Exported int    `json:"exported"`
	Updated  int    `json:"updated"`
	Message  string `json:"message"`
}

// Engine reconciles local events against a remote calendar provider.
// Now is injectable so the reconciliation window is deterministic in tests.
type Engine struct {
	Store  storage.Provider
	Remote RemoteFactory
	Mailer *email.Client
	Now    func() time.Time

	logger *slog.Logger
}

func NewEngine(store storage.Provider, remote RemoteFactory) *Engine {
	return &Engine{
		Store:  store,
		Remote: remote,
		Now:    time.Now,
		logger: slog.With("component", "sync"),
	}
}

// Window computes the reconciliation window for a given instant: the first
// second of the current month through the last second of the month three
// months ahead, in UTC. Recomputed on every run, never configurable per call.
func Window(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(now.Year(), now.Month()+WINDOW_MONTHS_AHEAD+1, 1, 0, 0, 0, 0, time.UTC).Add(-time.Second)
	return from, to
}

// resolveSettings returns the user's persisted sync settings, or defaults if
// none exist. The second return reports whether a persisted row was found;
// only persisted rows get their lastSyncAt touched afterwards.
func (e *Engine) resolveSettings(ctx context.Context, userID string) (*storage.SyncSettings, bool, error) {
	settings, err := e.Store.GetSyncSettings(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.DefaultSyncSettings(userID), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if len(settings.SelectedCalendars) == 0 {
		settings.SelectedCalendars = storage.StringList{"primary"}
	}
	return settings, true, nil
}

// Sync runs one full synchronization pass for the user: import remote events
// into the local store, export unsynced local events to the remote, then
// record the sync time. Per-calendar fetch failures and per-event push
// failures are skipped so one bad item does not abort the whole run.
func (e *Engine) Sync(ctx context.Context, userID string) (*Result, error) {
	settings, persisted, err := e.resolveSettings(ctx, userID)
	if err != nil {
		return nil, err
	}

	remote, err := e.Remote(ctx, userID)
	if err != nil {
		return nil, err
	}

	from, to := Window(e.Now())

	// Single snapshot of the user's events, fetched before reconciliation.
	// Newly created events are added to the index below so two identical
	// remote events within one run cannot both create a local row.
	events, err := e.Store.ListEventsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	local := make([]*storage.CalendarEvent, len(events))
	byRemoteID := make(map[string]*storage.CalendarEvent, len(events))
	for i := range events {
		local[i] = &events[i]
		if events[i].RemoteEventID != nil {
			byRemoteID[*events[i].RemoteEventID] = &events[i]
		}
	}

	result := &Result{}

	if settings.Direction != storage.DirectionExport {
		if err := e.importPhase(ctx, remote, settings, from, to, byRemoteID, result); err != nil {
			return nil, err
		}
	}

	if settings.Direction != storage.DirectionImport {
		if err := e.exportPhase(ctx, remote, settings, local, result); err != nil {
			return nil, err
		}
	}

	if persisted {
		if err := e.Store.TouchLastSync(ctx, userID, e.Now().UTC()); err != nil {
			return nil, err
		}
	}

	result.Message = fmt.Sprintf("Sync complete: %d imported, %d exported, %d updated",
		result.Imported, result.Exported, result.Updated)

	e.notify(ctx, userID, result)

	return result, nil
}

func (e *Engine) importPhase(ctx context.Context, remote gcal.Provider, settings *storage.SyncSettings,
	from, to time.Time, byRemoteID map[string]*storage.CalendarEvent, result *Result) error {

	for _, calendarID := range settings.SelectedCalendars {
		events, err := remote.ListEvents(ctx, calendarID, from, to)
		if err != nil {
			var fetchErr *gcal.RemoteFetchError
			if errors.As(err, &fetchErr) {
				// Best effort: one unreadable calendar must not abort the run.
				e.logger.Warn("Skipping calendar", "calendar_id", calendarID, "error", err)
				continue
			}
			return err
		}

		for i := range events {
			remoteEvent := &events[i]
			start, end, ok := normalizeTimes(remoteEvent)
			if !ok {
				continue
			}

			match, exists := byRemoteID[remoteEvent.ID]
			if !exists {
				created := &storage.CalendarEvent{
					ID:               uuid.NewString(),
					UserID:           settings.UserID,
					Title:            remoteEvent.Summary,
					Description:      remoteEvent.Description,
					StartDateTime:    start,
					EndDateTime:      end,
					Category:         IMPORTED_EVENT_CATEGORY,
					RemoteEventID:    &remoteEvent.ID,
					RemoteCalendarID: &calendarID,
				}
				if err := e.Store.CreateEvent(ctx, created); err != nil {
					return err
				}
				byRemoteID[remoteEvent.ID] = created
				result.Imported++
				continue
			}

			if !overwriteLocal(settings.ConflictResolution, match.UpdatedAt, remoteEvent.Updated) {
				continue
			}
			if err := e.Store.UpdateEventContent(ctx, settings.UserID, match.ID,
				remoteEvent.Summary, remoteEvent.Description, start, end); err != nil {
				return err
			}
			match.Title = remoteEvent.Summary
			match.Description = remoteEvent.Description
			match.StartDateTime = start
			match.EndDateTime = end
			result.Updated++
		}
	}
	return nil
}

func (e *Engine) exportPhase(ctx context.Context, remote gcal.Provider, settings *storage.SyncSettings,
	local []*storage.CalendarEvent, result *Result) error {

	// Export always targets a single calendar, even under bidirectional.
	targetCalendar := settings.SelectedCalendars[0]

	for _, event := range local {
		if event.RemoteEventID != nil {
			continue
		}

		created, err := remote.InsertEvent(ctx, targetCalendar, remoteEventFor(event))
		if err != nil {
			var pushErr *gcal.RemotePushError
			if errors.As(err, &pushErr) {
				e.logger.Warn("Skipping event push", "event_id", event.ID, "error", err)
				continue
			}
			return err
		}

		if err := e.Store.SetEventRemoteRef(ctx, settings.UserID, event.ID, created.ID, targetCalendar); err != nil {
			return err
		}
		event.RemoteEventID = &created.ID
		event.RemoteCalendarID = &targetCalendar
		result.Exported++
	}
	return nil
}

// PushEvent pushes a single event to the given remote calendar. Unlike the
// export loop inside Sync, failures here surface to the caller.
func (e *Engine) PushEvent(ctx context.Context, userID string, event *storage.CalendarEvent, calendarID string) (string, error) {
	if calendarID == "" {
		calendarID = "primary"
	}

	remote, err := e.Remote(ctx, userID)
	if err != nil {
		return "", err
	}

	created, err := remote.InsertEvent(ctx, calendarID, remoteEventFor(event))
	if err != nil {
		return "", err
	}

	if event.ID != "" {
		if err := e.Store.SetEventRemoteRef(ctx, userID, event.ID, created.ID, calendarID); err != nil {
			return "", err
		}
	}
	return created.ID, nil
}

// normalizeTimes maps a remote event's start/end onto local timestamp strings.
// All-day events carry date-only bounds, expanded to cover the whole day.
// Events lacking both a date-time and a date are not importable.
func normalizeTimes(event *gcal.Event) (start, end string, ok bool) {
	switch {
	case event.Start.DateTime != "":
		startTime, err := time.Parse(time.RFC3339, event.Start.DateTime)
		if err != nil {
			return "", "", false
		}
		endTime, err := time.Parse(time.RFC3339, event.End.DateTime)
		if err != nil {
			return "", "", false
		}
		return startTime.UTC().Format(LOCAL_TIME_LAYOUT), endTime.UTC().Format(LOCAL_TIME_LAYOUT), true
	case event.Start.Date != "":
		end := event.End.Date
		if end == "" {
			end = event.Start.Date
		}
		return event.Start.Date + "T00:00:00", end + "T23:59:59", true
	default:
		return "", "", false
	}
}

// remoteEventFor builds the remote representation of a local event.
// Both the bulk export and the single-push path send UTC.
func remoteEventFor(event *storage.CalendarEvent) *gcal.Event {
	return &gcal.Event{
		Summary:     event.Title,
		Description: event.Description,
		Start:       gcal.EventTime{DateTime: event.StartDateTime + "Z", TimeZone: "UTC"},
		End:         gcal.EventTime{DateTime: event.EndDateTime + "Z", TimeZone: "UTC"},
	}
}

// overwriteLocal decides whether the remote copy replaces local fields under
// the given conflict policy. Unknown policies behave like local_wins.
func overwriteLocal(policy string, localUpdated, remoteUpdated time.Time) bool {
	switch policy {
	case storage.ConflictProviderWins:
		return true
	case storage.ConflictNewestWins:
		return remoteUpdated.After(localUpdated)
	default:
		return false
	}
}

// notify emails the user a sync report when they have opted in. Best effort.
func (e *Engine) notify(ctx context.Context, userID string, result *Result) {
	if e.Mailer == nil {
		return
	}
	user, err := e.Store.GetUser(ctx, userID)
	if err != nil || !user.NotifySync {
		return
	}

	msg := &email.Message{
		To:      []string{user.Email},
		Subject: "Your calendar sync report",
		HTML: fmt.Sprintf(
			"<h2>Calendar sync finished</h2><table><tr><td>Imported</td><td>%d</td></tr><tr><td>Exported</td><td>%d</td></tr><tr><td>Updated</td><td>%d</td></tr></table>",
			result.Imported, result.Exported, result.Updated),
	}
	if err := e.Mailer.Send(ctx, msg); err != nil {
		e.logger.Warn("Failed to send sync report", "user_id", userID, "error", err)
	}
}
