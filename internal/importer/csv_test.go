package importer

import (
	"strings"
	"testing"

	"golang.org/x/text/encoding/unicode"
)

const sampleCSV = "TITLE\tDESCRIPTION\tSTART\tEND\tCATEGORY\n" +
	"Standup\tDaily sync\t2024-03-05T09:00:00\t2024-03-05T09:15:00\twork\n" +
	"Dentist\t\t2024-03-06T14:00:00\t2024-03-06T15:00:00\t\n"

func TestParseEvents(t *testing.T) {
	events, err := ParseEvents(strings.NewReader(sampleCSV), "u1")
	if err != nil {
		t.Fatalf("ParseEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	first := events[0]
	if first.Title != "Standup" || first.Description != "Daily sync" {
		t.Errorf("unexpected first event: %+v", first)
	}
	if first.StartDateTime != "2024-03-05T09:00:00" {
		t.Errorf("start = %q", first.StartDateTime)
	}
	if first.UserID != "u1" {
		t.Errorf("user id = %q, want u1", first.UserID)
	}
	if first.ID == "" {
		t.Error("expected a generated event id")
	}

	// Missing category falls back to the default
	if events[1].Category != DEFAULT_CATEGORY {
		t.Errorf("category = %q, want %q", events[1].Category, DEFAULT_CATEGORY)
	}
}

func TestParseEvents_FinnishHeaders(t *testing.T) {
	csv := "OTSIKKO\tKUVAUS\tALKAA\tPÄÄTTYY\tKATEGORIA\n" +
		"Palaveri\tViikkopalaveri\t2024-03-05T09:00:00\t2024-03-05T10:00:00\twork\n"

	events, err := ParseEvents(strings.NewReader(csv), "u1")
	if err != nil {
		t.Fatalf("ParseEvents failed: %v", err)
	}
	if len(events) != 1 || events[0].Title != "Palaveri" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestParseEvents_UTF16(t *testing.T) {
	encoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	encoded, err := encoder.String(sampleCSV)
	if err != nil {
		t.Fatalf("failed to encode test data: %v", err)
	}

	events, err := ParseEvents(strings.NewReader(encoded), "u1")
	if err != nil {
		t.Fatalf("ParseEvents failed on UTF-16 input: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Title != "Standup" {
		t.Errorf("title = %q, want Standup", events[0].Title)
	}
}

func TestParseEvents_MissingRequiredFields(t *testing.T) {
	csv := "NAME\tWHEN\nfoo\tbar\n"
	if _, err := ParseEvents(strings.NewReader(csv), "u1"); err == nil {
		t.Fatal("expected an error for unknown headers")
	}
}

func TestParseEvents_InvalidTime(t *testing.T) {
	csv := "TITLE\tSTART\tEND\n" +
		"Broken\tnot-a-time\t2024-03-05T10:00:00\n"
	if _, err := ParseEvents(strings.NewReader(csv), "u1"); err == nil {
		t.Fatal("expected an error for a malformed start time")
	}
}

func TestParseEvents_SkipsEmptyTitles(t *testing.T) {
	csv := "TITLE\tSTART\tEND\n" +
		"\t2024-03-05T09:00:00\t2024-03-05T10:00:00\n" +
		"Kept\t2024-03-05T09:00:00\t2024-03-05T10:00:00\n"

	events, err := ParseEvents(strings.NewReader(csv), "u1")
	if err != nil {
		t.Fatalf("ParseEvents failed: %v", err)
	}
	if len(events) != 1 || events[0].Title != "Kept" {
		t.Fatalf("expected only the titled row, got %+v", events)
	}
}
