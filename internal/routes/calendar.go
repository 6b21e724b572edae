package routes

// Calendar connection, settings and synchronization endpoints.

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lynck-space/internal/access"
	"lynck-space/internal/connector"
	"lynck-space/internal/nonce"
	"lynck-space/internal/storage"
	"lynck-space/internal/sync"
)

// TTL for the OAuth state nonce, in seconds
const OAUTH_STATE_TTL = 10 * 60

type pushEventRequest struct {
	Event struct {
		ID            string `json:"id"`
		Title         string `json:"title"`
		Description   string `json:"description"`
		StartDateTime string `json:"start_datetime"`
		EndDateTime   string `json:"end_datetime"`
	} `json:"event"`
	CalendarID string `json:"calendarId"`
}

type syncSettingsRequest struct {
	Direction          string   `json:"direction"`
	ConflictResolution string   `json:"conflict_resolution"`
	SelectedCalendars  []string `json:"selected_calendars"`
}

func validDirection(direction string) bool {
	switch direction {
	case storage.DirectionImport, storage.DirectionExport, storage.DirectionBidirectional:
		return true
	}
	return false
}

func validConflictResolution(policy string) bool {
	switch policy {
	case storage.ConflictNewestWins, storage.ConflictProviderWins, storage.ConflictLocalWins:
		return true
	}
	return false
}

func CalendarRoutes(r *gin.RouterGroup, store storage.Provider, broker *connector.Broker, engine *sync.Engine) {

	// Google account connection flow
	r.GET("/connect", func(c *gin.Context) {
		state, err := nonce.Nonce(OAUTH_STATE_TTL)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": broker.AuthCodeURL(state)})
	})

	r.GET("/oauth/callback", func(c *gin.Context) {
		uid, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		state := c.Query("state")
		if ok, err := nonce.Store.Consume(c.Request.Context(), state); !ok || err != nil {
			AbortWithError(c, ErrInvalidOAuthState)
			return
		}

		code := c.Query("code")
		if code == "" {
			AbortWithError(c, ErrMissingParameter)
			return
		}

		if err := broker.Exchange(c.Request.Context(), uid, code); err != nil {
			AbortWithError(c, err)
			return
		}

		slog.Info("Calendar connected", "userID", uid)
		c.JSON(http.StatusOK, gin.H{"status": "success", "connected": true})
	})

	r.DELETE("/connect", func(c *gin.Context) {
		uid, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := broker.Disconnect(c.Request.Context(), uid); err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "connected": false})
	})

	r.GET("/status", func(c *gin.Context) {
		uid, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.JSON(http.StatusOK, gin.H{"connected": broker.Connected(c.Request.Context(), uid)})
	})

	// List the calendars on the connected account
	r.GET("/calendars", func(c *gin.Context) {
		uid, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		remote, err := broker.Remote(c.Request.Context(), uid)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		calendars, err := remote.ListCalendars(c.Request.Context())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"calendars": calendars})
	})

	// Run a full synchronization pass
	r.POST("/sync", func(c *gin.Context) {
		uid, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		result, err := engine.Sync(c.Request.Context(), uid)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"imported": result.Imported,
			"exported": result.Exported,
			"updated":  result.Updated,
			"message":  result.Message,
		})
	})

	// Push a single event to the remote calendar
	r.POST("/events/push", func(c *gin.Context) {
		uid, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		var req pushEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		if req.Event.Title == "" || req.Event.StartDateTime == "" || req.Event.EndDateTime == "" {
			AbortWithError(c, ErrMissingParameter)
			return
		}
		if _, err := time.Parse(sync.LOCAL_TIME_LAYOUT, req.Event.StartDateTime); err != nil {
			AbortWithError(c, ErrInvalidParameter)
			return
		}
		if _, err := time.Parse(sync.LOCAL_TIME_LAYOUT, req.Event.EndDateTime); err != nil {
			AbortWithError(c, ErrInvalidParameter)
			return
		}

		event := &storage.CalendarEvent{
			ID:            req.Event.ID,
			UserID:        uid,
			Title:         req.Event.Title,
			Description:   req.Event.Description,
			StartDateTime: req.Event.StartDateTime,
			EndDateTime:   req.Event.EndDateTime,
		}

		remoteID, err := engine.PushEvent(c.Request.Context(), uid, event, req.CalendarID)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "google_event_id": remoteID})
	})

	// Sync settings
	r.GET("/settings", func(c *gin.Context) {
		uid, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		settings, err := store.GetSyncSettings(c.Request.Context(), uid)
		if errors.Is(err, storage.ErrNotFound) {
			// No persisted row: report the effective defaults
			settings = storage.DefaultSyncSettings(uid)
		} else if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, settingsJSON(settings))
	})

	r.PUT("/settings", func(c *gin.Context) {
		uid, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		var req syncSettingsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		if !validDirection(req.Direction) || !validConflictResolution(req.ConflictResolution) {
			AbortWithError(c, ErrInvalidParameter)
			return
		}
		if len(req.SelectedCalendars) == 0 {
			req.SelectedCalendars = []string{"primary"}
		}

		// Plan quota on the number of synced calendars
		user, err := store.GetUser(c.Request.Context(), uid)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if max := access.GetPlans().MaxCalendars(user.Plan); len(req.SelectedCalendars) > max {
			AbortWithError(c, ErrCalendarQuota)
			return
		}

		settings := &storage.SyncSettings{
			UserID:             uid,
			Direction:          req.Direction,
			ConflictResolution: req.ConflictResolution,
			SelectedCalendars:  storage.StringList(req.SelectedCalendars),
		}
		if err := store.UpsertSyncSettings(c.Request.Context(), settings); err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, settingsJSON(settings))
	})
}

func settingsJSON(settings *storage.SyncSettings) gin.H {
	return gin.H{
		"direction":           settings.Direction,
		"conflict_resolution": settings.ConflictResolution,
		"selected_calendars":  settings.SelectedCalendars,
		"last_sync_at":        settings.LastSyncAt,
	}
}
