package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"lynck-space/internal/storage"
)

// settingsStore stubs just the settings lookup; everything else panics via
// the embedded nil interface if a handler strays outside the tested path.
type settingsStore struct {
	storage.Provider

	settings *storage.SyncSettings
	err      error
}

func (s *settingsStore) GetSyncSettings(ctx context.Context, userID string) (*storage.SyncSettings, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.settings, nil
}

func settingsRouter(store storage.Provider) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.Use(func(c *gin.Context) { c.Set("userID", "u1") })
	CalendarRoutes(r.Group("/calendar"), store, nil, nil)
	return r
}

func TestGetSettingsDefaultsWhenUnset(t *testing.T) {
	r := settingsRouter(&settingsStore{err: storage.ErrNotFound})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/calendar/settings", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if body["direction"] != storage.DirectionBidirectional {
		t.Errorf("direction = %v, want %s", body["direction"], storage.DirectionBidirectional)
	}
	if body["conflict_resolution"] != storage.ConflictNewestWins {
		t.Errorf("conflict_resolution = %v, want %s", body["conflict_resolution"], storage.ConflictNewestWins)
	}
}

func TestGetSettingsStorageFailure(t *testing.T) {
	r := settingsRouter(&settingsStore{err: errors.New("disk failure")})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/calendar/settings", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500: storage failures must not read as defaults", w.Code)
	}
}
