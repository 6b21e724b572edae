package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"lynck-space/internal/gcal"
	"lynck-space/internal/storage"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeStore struct {
	storage.Provider

	settings map[string]*storage.SyncSettings
	events   []*storage.CalendarEvent
	lastSync map[string]time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		settings: make(map[string]*storage.SyncSettings),
		lastSync: make(map[string]time.Time),
	}
}

func (s *fakeStore) GetSyncSettings(ctx context.Context, userID string) (*storage.SyncSettings, error) {
	settings, ok := s.settings[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *settings
	return &copied, nil
}

func (s *fakeStore) ListEventsByUser(ctx context.Context, userID string) ([]storage.CalendarEvent, error) {
	var events []storage.CalendarEvent
	for _, event := range s.events {
		if event.UserID == userID {
			events = append(events, *event)
		}
	}
	return events, nil
}

func (s *fakeStore) CreateEvent(ctx context.Context, event *storage.CalendarEvent) error {
	event.UpdatedAt = time.Now().UTC()
	copied := *event
	s.events = append(s.events, &copied)
	return nil
}

func (s *fakeStore) UpdateEventContent(ctx context.Context, userID, id, title, description, start, end string) error {
	for _, event := range s.events {
		if event.UserID == userID && event.ID == id {
			event.Title = title
			event.Description = description
			event.StartDateTime = start
			event.EndDateTime = end
			event.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *fakeStore) SetEventRemoteRef(ctx context.Context, userID, id, remoteEventID, remoteCalendarID string) error {
	for _, event := range s.events {
		if event.UserID == userID && event.ID == id {
			event.RemoteEventID = &remoteEventID
			event.RemoteCalendarID = &remoteCalendarID
			event.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *fakeStore) TouchLastSync(ctx context.Context, userID string, at time.Time) error {
	s.lastSync[userID] = at
	return nil
}

type listCall struct {
	calendarID string
	from, to   time.Time
}

type fakeRemote struct {
	events    map[string][]gcal.Event
	failFetch map[string]bool
	failPush  bool

	listCalls []listCall
	inserted  []gcal.Event
	nextID    int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		events:    make(map[string][]gcal.Event),
		failFetch: make(map[string]bool),
	}
}

func (r *fakeRemote) ListCalendars(ctx context.Context) ([]gcal.Calendar, error) {
	return []gcal.Calendar{{ID: "primary", Summary: "Primary", Primary: true}}, nil
}

func (r *fakeRemote) ListEvents(ctx context.Context, calendarID string, from, to time.Time) ([]gcal.Event, error) {
	r.listCalls = append(r.listCalls, listCall{calendarID: calendarID, from: from, to: to})
	if r.failFetch[calendarID] {
		return nil, &gcal.RemoteFetchError{CalendarID: calendarID, StatusCode: 404, Body: "not found"}
	}
	return r.events[calendarID], nil
}

func (r *fakeRemote) InsertEvent(ctx context.Context, calendarID string, event *gcal.Event) (*gcal.Event, error) {
	if r.failPush {
		return nil, &gcal.RemotePushError{CalendarID: calendarID, StatusCode: 500, Body: "boom"}
	}
	r.nextID++
	created := *event
	created.ID = fmt.Sprintf("remote-%d", r.nextID)
	r.inserted = append(r.inserted, created)
	return &created, nil
}

func testEngine(store *fakeStore, remote *fakeRemote, now time.Time) *Engine {
	engine := NewEngine(store, func(ctx context.Context, userID string) (gcal.Provider, error) {
		return remote, nil
	})
	engine.Now = func() time.Time { return now }
	return engine
}

var testNow = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestWindow(t *testing.T) {
	from, to := Window(testNow)

	wantFrom := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	wantTo := time.Date(2024, time.June, 30, 23, 59, 59, 0, time.UTC)

	if !from.Equal(wantFrom) {
		t.Errorf("window start = %v, want %v", from, wantFrom)
	}
	if !to.Equal(wantTo) {
		t.Errorf("window end = %v, want %v", to, wantTo)
	}
}

func TestWindow_CrossesYearBoundary(t *testing.T) {
	from, to := Window(time.Date(2024, time.November, 15, 0, 0, 0, 0, time.UTC))

	if want := time.Date(2024, time.November, 1, 0, 0, 0, 0, time.UTC); !from.Equal(want) {
		t.Errorf("window start = %v, want %v", from, want)
	}
	if want := time.Date(2025, time.February, 28, 23, 59, 59, 0, time.UTC); !to.Equal(want) {
		t.Errorf("window end = %v, want %v", to, want)
	}
}

func TestSync_ImportsNewRemoteEvent(t *testing.T) {
	store := newFakeStore()
	remote := newFakeRemote()
	remote.events["primary"] = []gcal.Event{{
		ID:      "g1",
		Summary: "Standup",
		Start:   gcal.EventTime{DateTime: "2024-03-05T09:00:00Z"},
		End:     gcal.EventTime{DateTime: "2024-03-05T09:15:00Z"},
		Updated: time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC),
	}}

	engine := testEngine(store, remote, testNow)
	result, err := engine.Sync(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if result.Imported != 1 || result.Exported != 0 || result.Updated != 0 {
		t.Fatalf("got %+v, want imported=1 exported=0 updated=0", result)
	}
	if len(store.events) != 1 {
		t.Fatalf("expected 1 local event, got %d", len(store.events))
	}

	event := store.events[0]
	if event.Title != "Standup" {
		t.Errorf("title = %q, want Standup", event.Title)
	}
	if event.RemoteEventID == nil || *event.RemoteEventID != "g1" {
		t.Errorf("remote event id = %v, want g1", event.RemoteEventID)
	}
	if event.Category != IMPORTED_EVENT_CATEGORY {
		t.Errorf("category = %q, want %q", event.Category, IMPORTED_EVENT_CATEGORY)
	}
	if event.StartDateTime != "2024-03-05T09:00:00" {
		t.Errorf("start = %q, want 2024-03-05T09:00:00", event.StartDateTime)
	}
}

func TestSync_ImportIsIdempotent(t *testing.T) {
	store := newFakeStore()
	remote := newFakeRemote()
	remote.events["primary"] = []gcal.Event{{
		ID:      "g1",
		Summary: "Standup",
		Start:   gcal.EventTime{DateTime: "2024-03-05T09:00:00Z"},
		End:     gcal.EventTime{DateTime: "2024-03-05T09:15:00Z"},
		Updated: time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC),
	}}

	engine := testEngine(store, remote, testNow)
	for i := 0; i < 2; i++ {
		if _, err := engine.Sync(context.Background(), "u1"); err != nil {
			t.Fatalf("Sync run %d failed: %v", i+1, err)
		}
	}

	if len(store.events) != 1 {
		t.Fatalf("expected 1 local event after two runs, got %d", len(store.events))
	}
}

func TestSync_DuplicateRemoteEventsInOneRun(t *testing.T) {
	store := newFakeStore()
	remote := newFakeRemote()
	event := gcal.Event{
		ID:      "g1",
		Summary: "Standup",
		Start:   gcal.EventTime{DateTime: "2024-03-05T09:00:00Z"},
		End:     gcal.EventTime{DateTime: "2024-03-05T09:15:00Z"},
	}
	// Same remote id appearing twice in one run must not create two rows.
	remote.events["primary"] = []gcal.Event{event, event}

	engine := testEngine(store, remote, testNow)
	result, err := engine.Sync(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if result.Imported != 1 {
		t.Errorf("imported = %d, want 1", result.Imported)
	}
	if len(store.events) != 1 {
		t.Errorf("expected 1 local event, got %d", len(store.events))
	}
}

func TestSync_ExportIsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.events = append(store.events, &storage.CalendarEvent{
		ID: "e1", UserID: "u1", Title: "Local meeting",
		StartDateTime: "2024-03-06T10:00:00", EndDateTime: "2024-03-06T11:00:00",
	})
	remote := newFakeRemote()

	engine := testEngine(store, remote, testNow)
	first, err := engine.Sync(context.Background(), "u1")
	if err != nil {
		t.Fatalf("first Sync failed: %v", err)
	}
	if first.Exported != 1 {
		t.Fatalf("first run exported = %d, want 1", first.Exported)
	}

	second, err := engine.Sync(context.Background(), "u1")
	if err != nil {
		t.Fatalf("second Sync failed: %v", err)
	}
	if second.Exported != 0 {
		t.Errorf("second run exported = %d, want 0", second.Exported)
	}
	if len(remote.inserted) != 1 {
		t.Errorf("remote inserts = %d, want 1", len(remote.inserted))
	}
}

func TestSync_ConflictPolicies(t *testing.T) {
	older := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, time.March, 8, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		policy        string
		remoteUpdated time.Time
		wantUpdated   int
	}{
		{storage.ConflictNewestWins, newer, 1},
		{storage.ConflictNewestWins, older, 0},
		{storage.ConflictProviderWins, older, 1},
		{storage.ConflictLocalWins, newer, 0},
		{"bogus_policy", newer, 0}, // unknown policies never overwrite
	}

	for _, tc := range cases {
		t.Run(tc.policy, func(t *testing.T) {
			remoteID := "g1"
			store := newFakeStore()
			store.settings["u1"] = &storage.SyncSettings{
				UserID:             "u1",
				Direction:          storage.DirectionImport,
				ConflictResolution: tc.policy,
				SelectedCalendars:  storage.StringList{"primary"},
			}
			store.events = append(store.events, &storage.CalendarEvent{
				ID: "e1", UserID: "u1", Title: "Old title",
				StartDateTime: "2024-03-05T09:00:00", EndDateTime: "2024-03-05T10:00:00",
				RemoteEventID: &remoteID,
				UpdatedAt:     time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
			})

			remote := newFakeRemote()
			remote.events["primary"] = []gcal.Event{{
				ID:      remoteID,
				Summary: "New title",
				Start:   gcal.EventTime{DateTime: "2024-03-05T09:00:00Z"},
				End:     gcal.EventTime{DateTime: "2024-03-05T10:00:00Z"},
				Updated: tc.remoteUpdated,
			}}

			engine := testEngine(store, remote, testNow)
			result, err := engine.Sync(context.Background(), "u1")
			if err != nil {
				t.Fatalf("Sync failed: %v", err)
			}
			if result.Updated != tc.wantUpdated {
				t.Errorf("updated = %d, want %d", result.Updated, tc.wantUpdated)
			}

			wantTitle := "Old title"
			if tc.wantUpdated == 1 {
				wantTitle = "New title"
			}
			if store.events[0].Title != wantTitle {
				t.Errorf("title = %q, want %q", store.events[0].Title, wantTitle)
			}
		})
	}
}

func TestSync_AllDayNormalization(t *testing.T) {
	store := newFakeStore()
	remote := newFakeRemote()
	remote.events["primary"] = []gcal.Event{{
		ID:      "g1",
		Summary: "Conference",
		Start:   gcal.EventTime{Date: "2024-03-01"},
		End:     gcal.EventTime{Date: "2024-03-03"},
	}}

	engine := testEngine(store, remote, testNow)
	if _, err := engine.Sync(context.Background(), "u1"); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	event := store.events[0]
	if event.StartDateTime != "2024-03-01T00:00:00" {
		t.Errorf("start = %q, want 2024-03-01T00:00:00", event.StartDateTime)
	}
	if event.EndDateTime != "2024-03-03T23:59:59" {
		t.Errorf("end = %q, want 2024-03-03T23:59:59", event.EndDateTime)
	}
}

func TestSync_SkipsEventWithoutStart(t *testing.T) {
	store := newFakeStore()
	remote := newFakeRemote()
	remote.events["primary"] = []gcal.Event{{ID: "g1", Summary: "No times"}}

	engine := testEngine(store, remote, testNow)
	result, err := engine.Sync(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if result.Imported != 0 || len(store.events) != 0 {
		t.Errorf("event without start/date must be skipped, got imported=%d events=%d",
			result.Imported, len(store.events))
	}
}

func TestSync_DirectionGating(t *testing.T) {
	t.Run("import only", func(t *testing.T) {
		store := newFakeStore()
		store.settings["u1"] = &storage.SyncSettings{
			UserID: "u1", Direction: storage.DirectionImport,
			ConflictResolution: storage.ConflictNewestWins,
			SelectedCalendars:  storage.StringList{"primary"},
		}
		store.events = append(store.events, &storage.CalendarEvent{
			ID: "e1", UserID: "u1", Title: "Unsynced",
			StartDateTime: "2024-03-06T10:00:00", EndDateTime: "2024-03-06T11:00:00",
		})
		remote := newFakeRemote()

		engine := testEngine(store, remote, testNow)
		result, err := engine.Sync(context.Background(), "u1")
		if err != nil {
			t.Fatalf("Sync failed: %v", err)
		}
		if result.Exported != 0 || len(remote.inserted) != 0 {
			t.Errorf("import direction must not push, got exported=%d inserts=%d",
				result.Exported, len(remote.inserted))
		}
	})

	t.Run("export only", func(t *testing.T) {
		store := newFakeStore()
		store.settings["u1"] = &storage.SyncSettings{
			UserID: "u1", Direction: storage.DirectionExport,
			ConflictResolution: storage.ConflictNewestWins,
			SelectedCalendars:  storage.StringList{"primary"},
		}
		remote := newFakeRemote()
		remote.events["primary"] = []gcal.Event{{
			ID: "g1", Summary: "Remote only",
			Start: gcal.EventTime{DateTime: "2024-03-05T09:00:00Z"},
			End:   gcal.EventTime{DateTime: "2024-03-05T10:00:00Z"},
		}}

		engine := testEngine(store, remote, testNow)
		result, err := engine.Sync(context.Background(), "u1")
		if err != nil {
			t.Fatalf("Sync failed: %v", err)
		}
		if result.Imported != 0 || len(remote.listCalls) != 0 {
			t.Errorf("export direction must not fetch, got imported=%d listCalls=%d",
				result.Imported, len(remote.listCalls))
		}
	})
}

func TestSync_WindowPassedToRemote(t *testing.T) {
	store := newFakeStore()
	remote := newFakeRemote()

	engine := testEngine(store, remote, testNow)
	if _, err := engine.Sync(context.Background(), "u1"); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if len(remote.listCalls) != 1 {
		t.Fatalf("expected 1 list call, got %d", len(remote.listCalls))
	}
	call := remote.listCalls[0]
	if want := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC); !call.from.Equal(want) {
		t.Errorf("fetch from = %v, want %v", call.from, want)
	}
	if want := time.Date(2024, time.June, 30, 23, 59, 59, 0, time.UTC); !call.to.Equal(want) {
		t.Errorf("fetch to = %v, want %v", call.to, want)
	}
}

func TestSync_SkipsFailingCalendar(t *testing.T) {
	store := newFakeStore()
	store.settings["u1"] = &storage.SyncSettings{
		UserID: "u1", Direction: storage.DirectionImport,
		ConflictResolution: storage.ConflictNewestWins,
		SelectedCalendars:  storage.StringList{"broken", "primary"},
	}
	remote := newFakeRemote()
	remote.failFetch["broken"] = true
	remote.events["primary"] = []gcal.Event{{
		ID: "g1", Summary: "Survivor",
		Start: gcal.EventTime{DateTime: "2024-03-05T09:00:00Z"},
		End:   gcal.EventTime{DateTime: "2024-03-05T10:00:00Z"},
	}}

	engine := testEngine(store, remote, testNow)
	result, err := engine.Sync(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Sync must survive a failing calendar, got: %v", err)
	}
	if result.Imported != 1 {
		t.Errorf("imported = %d, want 1", result.Imported)
	}
}

func TestSync_SwallowsPushFailures(t *testing.T) {
	store := newFakeStore()
	store.events = append(store.events, &storage.CalendarEvent{
		ID: "e1", UserID: "u1", Title: "Doomed",
		StartDateTime: "2024-03-06T10:00:00", EndDateTime: "2024-03-06T11:00:00",
	})
	remote := newFakeRemote()
	remote.failPush = true

	engine := testEngine(store, remote, testNow)
	result, err := engine.Sync(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Sync must survive push failures, got: %v", err)
	}
	if result.Exported != 0 {
		t.Errorf("exported = %d, want 0", result.Exported)
	}
	if store.events[0].RemoteEventID != nil {
		t.Errorf("failed push must not set a remote event id")
	}
}

func TestSync_LastSyncOnlyTouchedForPersistedSettings(t *testing.T) {
	store := newFakeStore()
	remote := newFakeRemote()

	engine := testEngine(store, remote, testNow)
	if _, err := engine.Sync(context.Background(), "u1"); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if _, touched := store.lastSync["u1"]; touched {
		t.Errorf("lastSyncAt must not be touched without a persisted settings row")
	}

	store.settings["u2"] = &storage.SyncSettings{
		UserID: "u2", Direction: storage.DirectionBidirectional,
		ConflictResolution: storage.ConflictNewestWins,
		SelectedCalendars:  storage.StringList{"primary"},
	}
	if _, err := engine.Sync(context.Background(), "u2"); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if at, touched := store.lastSync["u2"]; !touched || !at.Equal(testNow) {
		t.Errorf("lastSyncAt = %v (touched=%v), want %v", at, touched, testNow)
	}
}

func TestSync_ExportTargetsFirstCalendar(t *testing.T) {
	store := newFakeStore()
	store.settings["u1"] = &storage.SyncSettings{
		UserID: "u1", Direction: storage.DirectionBidirectional,
		ConflictResolution: storage.ConflictNewestWins,
		SelectedCalendars:  storage.StringList{"work-cal", "home-cal"},
	}
	store.events = append(store.events, &storage.CalendarEvent{
		ID: "e1", UserID: "u1", Title: "Planning",
		StartDateTime: "2024-03-06T10:00:00", EndDateTime: "2024-03-06T11:00:00",
	})
	remote := newFakeRemote()

	engine := testEngine(store, remote, testNow)
	if _, err := engine.Sync(context.Background(), "u1"); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if store.events[0].RemoteCalendarID == nil || *store.events[0].RemoteCalendarID != "work-cal" {
		t.Errorf("export must target the first selected calendar, got %v", store.events[0].RemoteCalendarID)
	}
}

func TestPushEvent(t *testing.T) {
	store := newFakeStore()
	store.events = append(store.events, &storage.CalendarEvent{
		ID: "e1", UserID: "u1", Title: "Review",
		StartDateTime: "2024-03-06T10:00:00", EndDateTime: "2024-03-06T11:00:00",
	})
	remote := newFakeRemote()

	engine := testEngine(store, remote, testNow)
	remoteID, err := engine.PushEvent(context.Background(), "u1", store.events[0], "")
	if err != nil {
		t.Fatalf("PushEvent failed: %v", err)
	}
	if remoteID == "" {
		t.Fatal("expected a remote event id")
	}
	if store.events[0].RemoteEventID == nil || *store.events[0].RemoteEventID != remoteID {
		t.Errorf("local record not updated with remote id %q", remoteID)
	}

	if len(remote.inserted) != 1 {
		t.Fatalf("remote inserts = %d, want 1", len(remote.inserted))
	}
	if remote.inserted[0].Start.TimeZone != "UTC" {
		t.Errorf("push timezone = %q, want UTC", remote.inserted[0].Start.TimeZone)
	}
}

func TestPushEvent_SurfacesFailure(t *testing.T) {
	store := newFakeStore()
	remote := newFakeRemote()
	remote.failPush = true

	engine := testEngine(store, remote, testNow)
	_, err := engine.PushEvent(context.Background(), "u1", &storage.CalendarEvent{
		Title: "Doomed", StartDateTime: "2024-03-06T10:00:00", EndDateTime: "2024-03-06T11:00:00",
	}, "primary")

	var pushErr *gcal.RemotePushError
	if !errors.As(err, &pushErr) {
		t.Fatalf("expected RemotePushError, got %v", err)
	}
}
