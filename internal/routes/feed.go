package routes

// ICS feed subscription. The feed URL carries a long-lived signed token so
// external calendar applications can poll it without a session.

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"lynck-space/internal/feed"
	"lynck-space/internal/jwt"
	"lynck-space/internal/storage"
)

// FeedTokenRoutes issues feed tokens for the authenticated user.
func FeedTokenRoutes(r *gin.RouterGroup) {

	r.POST("/token", func(c *gin.Context) {
		uid, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		claim := jwt.NewFeedClaim(uid)
		token, err := jwt.GenerateJWT(claim)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		slog.Info("Issued feed token", "userID", uid)
		c.JSON(http.StatusOK, gin.H{
			"token": token,
			"url":   feed.URL(token),
		})
	})

	// QR code of the feed URL, for scanning into a phone's calendar app
	r.GET("/qr", func(c *gin.Context) {
		uid, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		token := c.Query("token")
		claims, err := jwt.DecodeFeedJWT(token)
		if err != nil || claims.UserID != uid {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		png, err := feed.QR(feed.URL(token))
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.Data(http.StatusOK, "image/png", png)
	})
}

// FeedRoute serves the public ICS feed itself.
func FeedRoute(r *gin.RouterGroup, store storage.Provider) {

	r.GET("/:token", func(c *gin.Context) {
		claims, err := jwt.DecodeFeedJWT(c.Param("token"))
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		events, err := store.ListEventsByUser(c.Request.Context(), claims.UserID)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Header("Content-Type", "text/calendar; charset=utf-8")
		c.Header("Content-Disposition", `attachment; filename="lynck-space.ics"`)
		c.Status(http.StatusOK)
		if err := feed.WriteICS(c.Writer, events); err != nil {
			slog.Error("Failed to write ICS feed", "error", err)
		}
	})
}
