package routes

// Local calendar event CRUD and bulk import.

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"lynck-space/internal/access"
	"lynck-space/internal/importer"
	"lynck-space/internal/storage"
	"lynck-space/internal/sync"
)

// Max accepted size for an uploaded event CSV
const IMPORT_MAX_BYTES = 5 << 20

type eventRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	StartDateTime string `json:"start_datetime"`
	EndDateTime   string `json:"end_datetime"`
	Category      string `json:"category"`
}

func (req *eventRequest) validate() error {
	if req.Title == "" || req.StartDateTime == "" || req.EndDateTime == "" {
		return ErrMissingParameter
	}
	if _, err := time.Parse(sync.LOCAL_TIME_LAYOUT, req.StartDateTime); err != nil {
		return ErrInvalidParameter
	}
	if _, err := time.Parse(sync.LOCAL_TIME_LAYOUT, req.EndDateTime); err != nil {
		return ErrInvalidParameter
	}
	return nil
}

func eventJSON(event *storage.CalendarEvent) gin.H {
	return gin.H{
		"id":                 event.ID,
		"title":              event.Title,
		"description":        event.Description,
		"start_datetime":     event.StartDateTime,
		"end_datetime":       event.EndDateTime,
		"category":           event.Category,
		"remote_event_id":    event.RemoteEventID,
		"remote_calendar_id": event.RemoteCalendarID,
		"updated_at":         event.UpdatedAt,
	}
}

func EventRoutes(r *gin.RouterGroup, store storage.Provider) {

	r.GET("", func(c *gin.Context) {
		uid, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		events, err := store.ListEventsByUser(c.Request.Context(), uid)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		list := make([]gin.H, 0, len(events))
		for i := range events {
			list = append(list, eventJSON(&events[i]))
		}
		c.JSON(http.StatusOK, gin.H{"events": list})
	})

	r.POST("", func(c *gin.Context) {
		uid, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		var req eventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		if err := req.validate(); err != nil {
			AbortWithError(c, err)
			return
		}

		event := &storage.CalendarEvent{
			ID:            uuid.NewString(),
			UserID:        uid,
			Title:         req.Title,
			Description:   req.Description,
			StartDateTime: req.StartDateTime,
			EndDateTime:   req.EndDateTime,
			Category:      req.Category,
		}
		if err := store.CreateEvent(c.Request.Context(), event); err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, eventJSON(event))
	})

	r.GET("/:id", func(c *gin.Context) {
		uid, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		event, err := store.GetEvent(c.Request.Context(), uid, c.Param("id"))
		if errors.Is(err, storage.ErrNotFound) {
			AbortWithError(c, ErrEventNotFound)
			return
		}
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, eventJSON(event))
	})

	r.PUT("/:id", func(c *gin.Context) {
		uid, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		var req eventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		if err := req.validate(); err != nil {
			AbortWithError(c, err)
			return
		}

		event, err := store.GetEvent(c.Request.Context(), uid, c.Param("id"))
		if errors.Is(err, storage.ErrNotFound) {
			AbortWithError(c, ErrEventNotFound)
			return
		}
		if err != nil {
			AbortWithError(c, err)
			return
		}

		event.Title = req.Title
		event.Description = req.Description
		event.StartDateTime = req.StartDateTime
		event.EndDateTime = req.EndDateTime
		if req.Category != "" {
			event.Category = req.Category
		}
		if err := store.UpdateEvent(c.Request.Context(), event); err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, eventJSON(event))
	})

	r.DELETE("/:id", func(c *gin.Context) {
		uid, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		err = store.DeleteEvent(c.Request.Context(), uid, c.Param("id"))
		if errors.Is(err, storage.ErrNotFound) {
			AbortWithError(c, ErrEventNotFound)
			return
		}
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	})

	// Bulk import from a CSV upload. Gated by plan.
	r.POST("/import", func(c *gin.Context) {
		uid, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		user, err := store.GetUser(c.Request.Context(), uid)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !access.GetPlans().Can(user.Plan, "csv_import") {
			AbortWithError(c, ErrFeatureNotInPlan)
			return
		}

		file, err := c.FormFile("file")
		if err != nil {
			AbortWithHTTPError(c, http.StatusBadRequest, err, "CSV file is required", "FILE_REQUIRED")
			return
		}
		if file.Size > IMPORT_MAX_BYTES {
			AbortWithHTTPError(c, http.StatusRequestEntityTooLarge, ErrInvalidParameter,
				"CSV file too large", "FILE_TOO_LARGE")
			return
		}

		f, err := file.Open()
		if err != nil {
			AbortWithError(c, err)
			return
		}
		defer f.Close()

		created, err := importer.Import(c.Request.Context(), store, uid, f)
		if err != nil {
			AbortWithHTTPError(c, http.StatusBadRequest, err, err.Error(), "IMPORT_FAILED")
			return
		}

		slog.Info("Imported events from CSV", "userID", uid, "created", created)
		c.JSON(http.StatusOK, gin.H{"status": "success", "created": created})
	})
}
