package storage

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"lynck-space/internal/config"
)

type SQLProvider struct {
	db *sqlx.DB

	config *config.Storage

	logger *slog.Logger
}

func NewSQLProvider(config *config.Storage, driverName string, dataSource string) *SQLProvider {
	db, err := sqlx.Open(driverName, dataSource)
	if err != nil {
		slog.Error("Failed to open database", "driver", driverName, "error", err)
		return nil
	}

	logger := slog.With("component", "storage")

	return &SQLProvider{
		db:     db,
		config: config,
		logger: logger,
	}
}

func (p *SQLProvider) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func (p *SQLProvider) CreateUser(ctx context.Context, user *User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, plan, notify_sync, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.PasswordHash, user.Plan, user.NotifySync, user.CreatedAt)
	return err
}

func (p *SQLProvider) GetUser(ctx context.Context, id string) (*User, error) {
	var user User
	err := p.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (p *SQLProvider) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := p.db.GetContext(ctx, &user, `SELECT * FROM users WHERE email = ?`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (p *SQLProvider) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	err := p.db.SelectContext(ctx, &users, `SELECT * FROM users ORDER BY created_at`)
	return users, err
}

func (p *SQLProvider) SetUserNotify(ctx context.Context, userID string, notify bool) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE users SET notify_sync = ? WHERE id = ?`, notify, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ---------------------------------------------------------------------------
// Calendar events
// ---------------------------------------------------------------------------

func (p *SQLProvider) ListEventsByUser(ctx context.Context, userID string) ([]CalendarEvent, error) {
	var events []CalendarEvent
	err := p.db.SelectContext(ctx, &events,
		`SELECT * FROM calendar_events WHERE user_id = ? ORDER BY start_datetime`, userID)
	return events, err
}

func (p *SQLProvider) GetEvent(ctx context.Context, userID, id string) (*CalendarEvent, error) {
	var event CalendarEvent
	err := p.db.GetContext(ctx, &event,
		`SELECT * FROM calendar_events WHERE user_id = ? AND id = ?`, userID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (p *SQLProvider) CreateEvent(ctx context.Context, event *CalendarEvent) error {
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now

	_, err := p.db.ExecContext(ctx,
		`INSERT INTO calendar_events
		 (id, user_id, title, description, start_datetime, end_datetime, category,
		  remote_event_id, remote_calendar_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.UserID, event.Title, event.Description,
		event.StartDateTime, event.EndDateTime, event.Category,
		event.RemoteEventID, event.RemoteCalendarID, event.CreatedAt, event.UpdatedAt)
	return err
}

func (p *SQLProvider) UpdateEvent(ctx context.Context, event *CalendarEvent) error {
	event.UpdatedAt = time.Now().UTC()
	res, err := p.db.ExecContext(ctx,
		`UPDATE calendar_events
		 SET title = ?, description = ?, start_datetime = ?, end_datetime = ?,
		     category = ?, remote_event_id = ?, remote_calendar_id = ?, updated_at = ?
		 WHERE user_id = ? AND id = ?`,
		event.Title, event.Description, event.StartDateTime, event.EndDateTime,
		event.Category, event.RemoteEventID, event.RemoteCalendarID, event.UpdatedAt,
		event.UserID, event.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (p *SQLProvider) UpdateEventContent(ctx context.Context, userID, id, title, description, start, end string) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE calendar_events
		 SET title = ?, description = ?, start_datetime = ?, end_datetime = ?, updated_at = ?
		 WHERE user_id = ? AND id = ?`,
		title, description, start, end, time.Now().UTC(), userID, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (p *SQLProvider) SetEventRemoteRef(ctx context.Context, userID, id, remoteEventID, remoteCalendarID string) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE calendar_events
		 SET remote_event_id = ?, remote_calendar_id = ?, updated_at = ?
		 WHERE user_id = ? AND id = ?`,
		remoteEventID, remoteCalendarID, time.Now().UTC(), userID, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (p *SQLProvider) DeleteEvent(ctx context.Context, userID, id string) error {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM calendar_events WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ---------------------------------------------------------------------------
// Sync settings
// ---------------------------------------------------------------------------

func (p *SQLProvider) GetSyncSettings(ctx context.Context, userID string) (*SyncSettings, error) {
	var settings SyncSettings
	err := p.db.GetContext(ctx, &settings,
		`SELECT * FROM sync_settings WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (p *SQLProvider) UpsertSyncSettings(ctx context.Context, settings *SyncSettings) error {
	now := time.Now().UTC()
	if settings.CreatedAt.IsZero() {
		settings.CreatedAt = now
	}
	settings.UpdatedAt = now

	_, err := p.db.ExecContext(ctx,
		`INSERT INTO sync_settings
		 (user_id, direction, conflict_resolution, selected_calendars, last_sync_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   direction = excluded.direction,
		   conflict_resolution = excluded.conflict_resolution,
		   selected_calendars = excluded.selected_calendars,
		   updated_at = excluded.updated_at`,
		settings.UserID, settings.Direction, settings.ConflictResolution,
		settings.SelectedCalendars, settings.LastSyncAt, settings.CreatedAt, settings.UpdatedAt)
	return err
}

func (p *SQLProvider) TouchLastSync(ctx context.Context, userID string, at time.Time) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE sync_settings SET last_sync_at = ?, updated_at = ? WHERE user_id = ?`,
		at, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ---------------------------------------------------------------------------
// OAuth tokens
// ---------------------------------------------------------------------------

func (p *SQLProvider) GetOAuthToken(ctx context.Context, userID string) (*OAuthToken, error) {
	var token OAuthToken
	err := p.db.GetContext(ctx, &token,
		`SELECT * FROM oauth_tokens WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (p *SQLProvider) SaveOAuthToken(ctx context.Context, token *OAuthToken) error {
	token.UpdatedAt = time.Now().UTC()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO oauth_tokens (user_id, access_token, refresh_token, token_type, expiry, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   access_token = excluded.access_token,
		   refresh_token = excluded.refresh_token,
		   token_type = excluded.token_type,
		   expiry = excluded.expiry,
		   updated_at = excluded.updated_at`,
		token.UserID, token.AccessToken, token.RefreshToken, token.TokenType,
		token.Expiry, token.UpdatedAt)
	return err
}

func (p *SQLProvider) DeleteOAuthToken(ctx context.Context, userID string) error {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM oauth_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ---------------------------------------------------------------------------
// Nonces
// ---------------------------------------------------------------------------

func (p *SQLProvider) CreateNonce(ctx context.Context, nonce string, expiresAt time.Time) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO nonces (nonce, expires_at) VALUES (?, ?)`, nonce, expiresAt)
	return err
}

func (p *SQLProvider) ExistsNonce(ctx context.Context, nonce string) (bool, error) {
	var count int
	err := p.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM nonces WHERE nonce = ? AND expires_at > ?`, nonce, time.Now().UTC())
	return count > 0, err
}

func (p *SQLProvider) ConsumeNonce(ctx context.Context, nonce string) (bool, error) {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM nonces WHERE nonce = ? AND expires_at > ?`, nonce, time.Now().UTC())
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (p *SQLProvider) ExpireNonces(ctx context.Context, now time.Time) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM nonces WHERE expires_at <= ?`, now)
	return err
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
