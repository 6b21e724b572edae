package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"lynck-space/internal/config"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

type Provider interface {
	Close() error
	GetSchemaVersion(ctx context.Context) (int, error)

	// User methods
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	SetUserNotify(ctx context.Context, userID string, notify bool) error

	// Calendar event methods
	ListEventsByUser(ctx context.Context, userID string) ([]CalendarEvent, error)
	GetEvent(ctx context.Context, userID, id string) (*CalendarEvent, error)
	CreateEvent(ctx context.Context, event *CalendarEvent) error
	UpdateEvent(ctx context.Context, event *CalendarEvent) error
	// UpdateEventContent overwrites only the reconcilable fields
	// (title, description, start, end) and bumps updated_at.
	UpdateEventContent(ctx context.Context, userID, id, title, description, start, end string) error
	SetEventRemoteRef(ctx context.Context, userID, id, remoteEventID, remoteCalendarID string) error
	DeleteEvent(ctx context.Context, userID, id string) error

	// Sync settings methods
	GetSyncSettings(ctx context.Context, userID string) (*SyncSettings, error)
	UpsertSyncSettings(ctx context.Context, settings *SyncSettings) error
	TouchLastSync(ctx context.Context, userID string, at time.Time) error

	// OAuth token methods
	GetOAuthToken(ctx context.Context, userID string) (*OAuthToken, error)
	SaveOAuthToken(ctx context.Context, token *OAuthToken) error
	DeleteOAuthToken(ctx context.Context, userID string) error

	// Nonce methods
	CreateNonce(ctx context.Context, nonce string, expiresAt time.Time) error
	ExistsNonce(ctx context.Context, nonce string) (bool, error)
	ConsumeNonce(ctx context.Context, nonce string) (bool, error)
	ExpireNonces(ctx context.Context, now time.Time) error
}

func NewProvider(config *config.Storage) Provider {
	switch {
	case config.SQLite != nil:
		provider := NewSQLiteProvider(config)
		if provider == nil {
			slog.Error("Failed to open sqlite storage")
			return nil
		}
		if err := provider.runMigrations("sqlite3"); err != nil {
			slog.Error("Failed to run migrations", "error", err)
			return nil
		}
		return provider

	default:
		slog.Error("Unsupported storage configuration", "config", config)
	}

	return nil
}
