package storage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Sync directions
const (
	DirectionImport        = "import"
	DirectionExport        = "export"
	DirectionBidirectional = "bidirectional"
)

// Conflict resolution policies
const (
	ConflictNewestWins   = "newest_wins"
	ConflictProviderWins = "provider_wins"
	ConflictLocalWins    = "local_wins"
)

type User struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Plan         string    `db:"plan"`
	NotifySync   bool      `db:"notify_sync"`
	CreatedAt    time.Time `db:"created_at"`
}

// CalendarEvent is a locally stored event. RemoteEventID/RemoteCalendarID
// correlate it with its counterpart in the remote provider; a nil
// RemoteEventID means the event has not been synced to the remote yet.
type CalendarEvent struct {
	ID            string  `db:"id"`
	UserID        string  `db:"user_id"`
	Title         string  `db:"title"`
	Description   string  `db:"description"`
	StartDateTime string  `db:"start_datetime"`
	EndDateTime   string  `db:"end_datetime"`
	Category      string  `db:"category"`
	RemoteEventID *string `db:"remote_event_id"`

	RemoteCalendarID *string `db:"remote_calendar_id"`

	CreatedAt time.Time `db:"created_at"`
	// UpdatedAt is maintained by the storage layer on every write and is
	// the local side of newest_wins conflict comparison.
	UpdatedAt time.Time `db:"updated_at"`
}

// StringList stores an ordered list of strings as a JSON TEXT column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *StringList) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return json.Unmarshal([]byte(v), l)
	case []byte:
		return json.Unmarshal(v, l)
	case nil:
		*l = nil
		return nil
	}
	return fmt.Errorf("cannot scan %T into StringList", src)
}

// SyncSettings is the per-user synchronization configuration. A missing row
// is not an error; the sync engine falls back to DefaultSyncSettings.
type SyncSettings struct {
	UserID             string     `db:"user_id"`
	Direction          string     `db:"direction"`
	ConflictResolution string     `db:"conflict_resolution"`
	SelectedCalendars  StringList `db:"selected_calendars"`
	LastSyncAt         *time.Time `db:"last_sync_at"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

// DefaultSyncSettings returns the effective settings used when the user has
// never saved any.
func DefaultSyncSettings(userID string) *SyncSettings {
	return &SyncSettings{
		UserID:             userID,
		Direction:          DirectionBidirectional,
		ConflictResolution: ConflictNewestWins,
		SelectedCalendars:  StringList{"primary"},
	}
}

// OAuthToken is a stored remote-provider credential for one user.
type OAuthToken struct {
	UserID       string    `db:"user_id"`
	AccessToken  string    `db:"access_token"`
	RefreshToken string    `db:"refresh_token"`
	TokenType    string    `db:"token_type"`
	Expiry       time.Time `db:"expiry"`
	UpdatedAt    time.Time `db:"updated_at"`
}
