package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"lynck-space/internal/storage"
)

// Bulk event import from CSV exports.

const TIME_LAYOUT = "2006-01-02T15:04:05"

const DEFAULT_CATEGORY = "personal"

// Definition of fields in an event CSV
type CSVEventDefinition struct {
	TitleField       string
	DescriptionField string
	StartField       string
	EndField         string
	CategoryField    string

	Language string // Language code, e.g. "en", "fi"
}

// Known header names, in different languages. Spreadsheet exports vary.
var CSVEventDefinitions = []CSVEventDefinition{
	// English export definition
	{
		TitleField:       "TITLE",
		DescriptionField: "DESCRIPTION",
		StartField:       "START",
		EndField:         "END",
		CategoryField:    "CATEGORY",
		Language:         "en",
	},

	// Finnish export definition
	{
		TitleField:       "OTSIKKO",
		DescriptionField: "KUVAUS",
		StartField:       "ALKAA",
		EndField:         "PÄÄTTYY",
		CategoryField:    "KATEGORIA",
		Language:         "fi",
	},
}

// ParseEvents reads a tab-delimited CSV stream and returns the events it
// describes, owned by the given user. The stream may be UTF-8 or UTF-16
// with BOM; spreadsheet tools export UTF-16 with BOM.
func ParseEvents(r io.Reader, userID string) ([]*storage.CalendarEvent, error) {
	// Detect BOM and decode UTF-16 if present.
	bom := make([]byte, 2)
	n, err := io.ReadFull(r, bom)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("failed to read BOM: %w", err)
	}

	rest := io.MultiReader(strings.NewReader(string(bom[:n])), r)

	var reader *csv.Reader
	if n == 2 && (bom[0] == 0xFE && bom[1] == 0xFF || bom[0] == 0xFF && bom[1] == 0xFE) {
		// UTF-16 BOM detected
		utf16bom := unicode.BOMOverride(unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder())
		reader = csv.NewReader(transform.NewReader(rest, utf16bom))
	} else {
		// No BOM, assume sensible UTF-8
		reader = csv.NewReader(rest)
	}

	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = 0

	// Read header
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	// Find index of relevant fields
	var idxTitle, idxDescription, idxStart, idxEnd, idxCategory int
	var langdef CSVEventDefinition
	found := false

	for _, langdef = range CSVEventDefinitions {
		idxTitle, idxDescription, idxStart, idxEnd, idxCategory = -1, -1, -1, -1, -1

		for i, h := range headers {
			switch strings.TrimSpace(strings.ToUpper(h)) {
			case langdef.TitleField:
				idxTitle = i
			case langdef.DescriptionField:
				idxDescription = i
			case langdef.StartField:
				idxStart = i
			case langdef.EndField:
				idxEnd = i
			case langdef.CategoryField:
				idxCategory = i
			}
		}
		if idxTitle != -1 && idxStart != -1 && idxEnd != -1 {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("CSV file missing required fields")
	}

	slog.Debug("Parsing event CSV", "language", langdef.Language)

	var events []*storage.CalendarEvent
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		line++

		title := strings.TrimSpace(record[idxTitle])
		if title == "" {
			continue
		}

		start := strings.TrimSpace(record[idxStart])
		end := strings.TrimSpace(record[idxEnd])
		if _, err := time.Parse(TIME_LAYOUT, start); err != nil {
			return nil, fmt.Errorf("line %d: invalid start time %q", line, start)
		}
		if _, err := time.Parse(TIME_LAYOUT, end); err != nil {
			return nil, fmt.Errorf("line %d: invalid end time %q", line, end)
		}

		description := ""
		if idxDescription != -1 {
			description = strings.TrimSpace(record[idxDescription])
		}
		category := DEFAULT_CATEGORY
		if idxCategory != -1 && strings.TrimSpace(record[idxCategory]) != "" {
			category = strings.TrimSpace(record[idxCategory])
		}

		events = append(events, &storage.CalendarEvent{
			ID:            uuid.NewString(),
			UserID:        userID,
			Title:         title,
			Description:   description,
			StartDateTime: start,
			EndDateTime:   end,
			Category:      category,
		})
	}

	return events, nil
}

// Import parses an event CSV and persists every row. Returns the number of
// events created. The parse is all-or-nothing; creation is not.
func Import(ctx context.Context, store storage.Provider, userID string, r io.Reader) (int, error) {
	events, err := ParseEvents(r, userID)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, event := range events {
		if err := store.CreateEvent(ctx, event); err != nil {
			return created, fmt.Errorf("failed to create event %q: %w", event.Title, err)
		}
		created++
	}
	return created, nil
}
