package routes

// Email + password authentication

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"lynck-space/internal/access"
	"lynck-space/internal/storage"
)

const DEFAULT_PLAN = "free"

const MIN_PASSWORD_LENGTH = 8

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Plan       string `json:"plan"`
	NotifySync bool   `json:"notify_sync"`
}

func userJSON(user *storage.User) userResponse {
	return userResponse{
		ID:         user.ID,
		Email:      user.Email,
		Plan:       user.Plan,
		NotifySync: user.NotifySync,
	}
}

func AuthRoutes(r *gin.RouterGroup, store storage.Provider) {

	r.POST("/register", func(c *gin.Context) {
		var req credentialsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if err := access.ValidEmail(req.Email); err != nil {
			AbortWithHTTPError(c, http.StatusBadRequest, err, "Invalid email address", "INVALID_EMAIL")
			return
		}
		if len(req.Password) < MIN_PASSWORD_LENGTH {
			AbortWithHTTPError(c, http.StatusBadRequest, ErrInvalidParameter,
				"Password must be at least 8 characters", "PASSWORD_TOO_SHORT")
			return
		}

		if _, err := store.GetUserByEmail(c.Request.Context(), req.Email); err == nil {
			AbortWithError(c, ErrEmailTaken)
			return
		} else if !errors.Is(err, storage.ErrNotFound) {
			AbortWithError(c, err)
			return
		}

		hash, err := HashPassword(req.Password)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		user := &storage.User{
			ID:           uuid.NewString(),
			Email:        req.Email,
			PasswordHash: hash,
			Plan:         DEFAULT_PLAN,
		}
		if err := store.CreateUser(c.Request.Context(), user); err != nil {
			AbortWithError(c, err)
			return
		}

		token, err := NewAuth(c, user.ID)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		slog.Info("User registered", "email", user.Email)
		c.JSON(http.StatusCreated, gin.H{
			"status": "success",
			"token":  token,
			"user":   userJSON(user),
		})
	})

	r.POST("/login", func(c *gin.Context) {
		var req credentialsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		req.Email = strings.TrimSpace(strings.ToLower(req.Email))

		user, err := store.GetUserByEmail(c.Request.Context(), req.Email)
		if err != nil {
			// Same response for unknown email and wrong password
			AbortWithError(c, ErrInvalidCredentials)
			return
		}
		if !VerifyPassword(req.Password, user.PasswordHash) {
			AbortWithError(c, ErrInvalidCredentials)
			return
		}

		token, err := NewAuth(c, user.ID)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		slog.Info("User logged in", "email", user.Email)
		c.JSON(http.StatusOK, gin.H{
			"status": "success",
			"token":  token,
			"user":   userJSON(user),
		})
	})

	// Route to renew authentication token
	r.GET("/renew", AuthMiddleware(), func(c *gin.Context) {
		uid, err := GetUser(c)
		if err != nil {
			c.AbortWithStatus(AUTH_FAIL_STATUS)
			return
		}

		if err := renewAuth(c, uid, true); err != nil {
			slog.Error("Failed to renew auth token", "error", err)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})

	// Route to check authentication status
	r.GET("/status", AuthMiddleware(), func(c *gin.Context) {
		// If we reach here, the token is valid
		c.JSON(http.StatusOK, gin.H{"status": "authenticated", "userID": c.GetString("userID")})
	})

	r.POST("/logout", AuthMiddleware(), func(c *gin.Context) {
		AuthLogout(c)
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	})
}

// UserRoutes exposes the caller's own profile.
func UserRoutes(r *gin.RouterGroup, store storage.Provider) {

	r.GET("/me", func(c *gin.Context) {
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
		c.JSON(http.StatusOK, userJSON(user))
	})

	r.PUT("/me", func(c *gin.Context) {
		uid, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		var req struct {
			NotifySync *bool `json:"notify_sync"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.NotifySync == nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		if err := store.SetUserNotify(c.Request.Context(), uid, *req.NotifySync); err != nil {
			AbortWithError(c, err)
			return
		}

		user, err := store.GetUser(c.Request.Context(), uid)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, userJSON(user))
	})
}
