// Authentication middleware
// Checks for a valid authentication token in the cookie or Authorization
// header. If valid, sets the user information in the context.
// If invalid, returns 401 Unauthorized.
package routes

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	. "lynck-space/internal/config"
	. "lynck-space/internal/jwt"
	"lynck-space/internal/nonce"
)

const AUTH_COOKIE_NAME = "auth_token"

const AUTH_FAIL_STATUS = http.StatusUnauthorized // HTTP status code for authentication failure

var (
	ErrUserNotFound  = errors.New("user not found in context")
	ErrUserNotString = errors.New("user ID in context is not a string")
)

// Get authentication TTL in seconds
func authTTL() uint {
	// Convert days to seconds
	return Cfg.UserAuthTTL * 24 * 60 * 60 // in seconds
}

// Set authentication cookie
// The cookie is set to expire when the token expires
func setAuthCookie(c *gin.Context, token string) {
	ttl := authTTL()
	secure := c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https"

	c.SetCookie(
		AUTH_COOKIE_NAME,
		token,
		int(ttl),
		"/",
		"",
		secure, // Secure
		true,
	)
}

func GetUser(c *gin.Context) (string, error) {
	// Get user ID from context
	uid, exists := c.Get("userID")
	if !exists {
		return "", ErrUserNotFound
	}
	userIdStr, ok := uid.(string)
	if !ok {
		slog.Warn("GetUser: User ID in context is not a string")
		return "", ErrUserNotString
	}
	return userIdStr, nil
}

// NewAuth issues a fresh auth token, sets the cookie and returns the token
// so API clients can use it as a bearer credential instead.
func NewAuth(c *gin.Context, userId string) (string, error) {
	claim := NewAuthClaim(userId, authTTL())
	token, err := GenerateJWT(claim)
	if err != nil {
		return "", err
	}
	setAuthCookie(c, token)
	return token, nil
}

// verifyAuth resolves the caller's token from the auth cookie, falling back
// to an Authorization: Bearer header for non-browser clients.
func verifyAuth(c *gin.Context) (string, error) {
	token, err := c.Cookie(AUTH_COOKIE_NAME)
	if err != nil {
		header := c.GetHeader("Authorization")
		if after, ok := strings.CutPrefix(header, "Bearer "); ok {
			token = after
		} else {
			return "", err
		}
	}

	claims, err := DecodeAuthJWT(token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func renewAuth(c *gin.Context, userId string, forceRenew bool) error {
	// Fetch old token to invalidate it
	oldToken, err := c.Cookie(AUTH_COOKIE_NAME)
	if err == nil {
		oldClaims, err := DecodeAuthJWT(oldToken)
		if err == nil {
			nonceValue := oldClaims.ID
			expiration := oldClaims.ExpiresAt.Time

			// Log odd behavior, where the user ID in the token does not match
			// the expected user ID. Could indicate tampering, but also benign
			// issues like account changes.
			if oldClaims.UserID != userId {
				slog.Warn("renewAuth: User ID mismatch in token", "tokenUserID", oldClaims.UserID, "expectedUserID", userId)
				return nil
			}

			if oldClaims.MustRenew {
				slog.Debug("renewAuth: Token marked for mandatory renewal", "userID", userId)
				forceRenew = true
			}

			renewAge := time.Duration(authTTL()/2) * time.Second
			if forceRenew || time.Until(expiration) < renewAge {
				slog.Debug("Renewing auth token for user", "userID", userId)

				// Invalidate old token by consuming its nonce
				nonce.Store.Consume(c.Request.Context(), nonceValue)

				forceRenew = true
			}
		}
	}

	if !forceRenew {
		// Early stop: No need to renew
		slog.Debug("renewAuth: No need to renew auth token", "userID", userId)
		return nil
	}

	_, err = NewAuth(c, userId)
	return err
}

func AuthLogout(c *gin.Context) {
	// Consume the nonce to invalidate the token
	token, err := c.Cookie(AUTH_COOKIE_NAME)

	if err != nil {
		slog.Warn("AuthLogout: No auth token found to consume nonce", "error", err)
	} else {
		claims, err := DecodeAuthJWT(token)
		if err == nil {
			nonce.Store.Consume(c.Request.Context(), claims.ID)
		}
	}

	// Clear auth cookie by setting it to expire in the past
	c.SetCookie(
		AUTH_COOKIE_NAME,
		"",
		-1,
		"/",
		"",
		false,
		true,
	)
}

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing token
		uid, err := verifyAuth(c)
		if err != nil {
			slog.Warn("AuthMiddleware: Invalid or missing auth token", "error", err)
			c.AbortWithStatusJSON(AUTH_FAIL_STATUS, gin.H{
				"error": "unauthorized",
			})
			return
		}

		// Set user ID in context
		c.Set("userID", uid)
		c.Next()
	}
}
