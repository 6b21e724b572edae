package feed

import (
	"strings"
	"testing"
	"time"

	"lynck-space/internal/storage"
)

func TestWriteICS(t *testing.T) {
	events := []storage.CalendarEvent{
		{
			ID: "e1", UserID: "u1", Title: "Standup", Description: "Daily sync",
			Category:      "work",
			StartDateTime: "2024-03-05T09:00:00", EndDateTime: "2024-03-05T09:15:00",
			UpdatedAt: time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC),
		},
		{
			// Unparsable timestamps; must be skipped, not fail the feed
			ID: "e2", UserID: "u1", Title: "Broken",
			StartDateTime: "whenever", EndDateTime: "later",
		},
	}

	var buf strings.Builder
	if err := WriteICS(&buf, events); err != nil {
		t.Fatalf("WriteICS failed: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "BEGIN:VCALENDAR") {
		t.Error("missing VCALENDAR wrapper")
	}
	if !strings.Contains(out, "SUMMARY:Standup") {
		t.Error("missing event summary")
	}
	if !strings.Contains(out, "UID:e1@lynck.space") {
		t.Error("missing event UID")
	}
	if strings.Contains(out, "Broken") {
		t.Error("event with unparsable times must be skipped")
	}
}

func TestWriteICS_Empty(t *testing.T) {
	var buf strings.Builder
	if err := WriteICS(&buf, nil); err != nil {
		t.Fatalf("WriteICS failed on empty input: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "BEGIN:VCALENDAR") || !strings.Contains(out, "END:VCALENDAR") {
		t.Error("empty feed must still be a valid calendar")
	}
	if !strings.Contains(out, "VERSION:2.0") {
		t.Error("empty feed missing VERSION")
	}
	if !strings.Contains(out, "PRODID:") {
		t.Error("empty feed missing PRODID")
	}

	// Same when every event was skipped as unparsable
	buf.Reset()
	broken := []storage.CalendarEvent{
		{ID: "e1", UserID: "u1", Title: "Broken", StartDateTime: "whenever", EndDateTime: "later"},
	}
	if err := WriteICS(&buf, broken); err != nil {
		t.Fatalf("WriteICS failed when all events were skipped: %v", err)
	}
	if !strings.Contains(buf.String(), "BEGIN:VCALENDAR") {
		t.Error("all-skipped feed must still be a valid calendar")
	}
}
