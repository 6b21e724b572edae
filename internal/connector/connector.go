package connector

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendarapi "google.golang.org/api/calendar/v3"

	"lynck-space/internal/config"
	"lynck-space/internal/gcal"
	"lynck-space/internal/storage"
)

// Broker manages per-user Google OAuth credentials. Tokens live in storage
// and are refreshed transparently; refreshed tokens are written back so the
// refresh token chain is never lost.
type Broker struct {
	oauth   *oauth2.Config
	storage storage.Provider
	logger  *slog.Logger
}

func NewBroker(cfg *config.GoogleConfig, store storage.Provider) *Broker {
	return &Broker{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{calendarapi.CalendarScope},
			Endpoint:     google.Endpoint,
		},
		storage: store,
		logger:  slog.With("component", "connector"),
	}
}

// AuthCodeURL builds the consent page URL for the OAuth flow.
// offline access is required to receive a refresh token.
func (b *Broker) AuthCodeURL(state string) string {
	return b.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades an authorization code for a token and persists it.
func (b *Broker) Exchange(ctx context.Context, userID, code string) error {
	token, err := b.oauth.Exchange(ctx, code)
	if err != nil {
		return &gcal.AuthError{Reason: err.Error()}
	}
	return b.saveToken(ctx, userID, token)
}

// Token returns a valid access token for the user, refreshing if needed.
func (b *Broker) Token(ctx context.Context, userID string) (*oauth2.Token, error) {
	stored, err := b.storage.GetOAuthToken(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &gcal.AuthError{Reason: "no calendar connection for user"}
		}
		return nil, err
	}

	token := &oauth2.Token{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		TokenType:    stored.TokenType,
		Expiry:       stored.Expiry,
	}

	fresh, err := b.oauth.TokenSource(ctx, token).Token()
	if err != nil {
		return nil, &gcal.AuthError{Reason: err.Error()}
	}

	if fresh.AccessToken != token.AccessToken {
		if err := b.saveToken(ctx, userID, fresh); err != nil {
			b.logger.Error("Failed to persist refreshed token", "user_id", userID, "error", err)
		}
	}
	return fresh, nil
}

// Connected reports whether the user has a stored calendar connection.
func (b *Broker) Connected(ctx context.Context, userID string) bool {
	_, err := b.storage.GetOAuthToken(ctx, userID)
	return err == nil
}

// Disconnect removes the stored token, severing the calendar connection.
func (b *Broker) Disconnect(ctx context.Context, userID string) error {
	return b.storage.DeleteOAuthToken(ctx, userID)
}

// Remote builds a calendar provider scoped to the user's credentials.
// Satisfies sync.RemoteFactory.
func (b *Broker) Remote(ctx context.Context, userID string) (gcal.Provider, error) {
	token, err := b.Token(ctx, userID)
	if err != nil {
		return nil, err
	}
	return gcal.NewGoogleProvider(ctx, oauth2.StaticTokenSource(token))
}

func (b *Broker) saveToken(ctx context.Context, userID string, token *oauth2.Token) error {
	refresh := token.RefreshToken
	if refresh == "" {
		// Google omits the refresh token on re-consent; keep the old one.
		if stored, err := b.storage.GetOAuthToken(ctx, userID); err == nil {
			refresh = stored.RefreshToken
		}
	}
	return b.storage.SaveOAuthToken(ctx, &storage.OAuthToken{
		UserID:       userID,
		AccessToken:  token.AccessToken,
		RefreshToken: refresh,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
		UpdatedAt:    time.Now().UTC(),
	})
}
