package routes

import (
	"errors"
	"net/http"

	"lynck-space/internal/gcal"
	"lynck-space/internal/jwt"
	"lynck-space/internal/storage"
)

// HTTPError represents an error with an associated HTTP status code and user message
type HTTPError struct {
	Err        error    // The underlying error
	StatusCode int      // HTTP status code
	Message    string   // User-friendly message
	StopCodes  []string // Optional stop codes for client-side handling
	Internal   bool     // Whether this is an internal error (hide details from user)
}

// ErrorInfo contains error metadata for user-facing errors
type ErrorInfo struct {
	Message   string   // User-friendly message
	StopCodes []string // Optional stop codes for client-side application
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NewHTTPError creates a new HTTPError
func NewHTTPError(statusCode int, err error, message string, stopCodes ...string) *HTTPError {
	return &HTTPError{
		Err:        err,
		StatusCode: statusCode,
		Message:    message,
		StopCodes:  stopCodes,
		Internal:   statusCode >= 500,
	}
}

// Routes-specific errors (that don't conflict with other packages)
var (
	// Authentication errors
	ErrUnauthorized       = errors.New("unauthorized")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")

	// Calendar connection errors
	ErrCalendarNotConnected = errors.New("calendar not connected")

	// Plan gating errors
	ErrFeatureNotInPlan  = errors.New("feature not included in plan")
	ErrCalendarQuota     = errors.New("calendar quota exceeded")
	ErrInvalidOAuthState = errors.New("invalid oauth state")

	// Validation errors
	ErrInvalidRequest   = errors.New("invalid request")
	ErrMissingParameter = errors.New("missing required parameter")
	ErrInvalidParameter = errors.New("invalid parameter")

	// Not found
	ErrEventNotFound = errors.New("event not found")

	// Internal errors
	ErrInternalServer     = errors.New("internal server error")
	ErrDatabaseError      = errors.New("database error")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// errorStatusMap maps errors to HTTP status codes
var errorStatusMap = map[error]int{
	// 400 Bad Request
	ErrInvalidRequest:    http.StatusBadRequest,
	ErrMissingParameter:  http.StatusBadRequest,
	ErrInvalidParameter:  http.StatusBadRequest,
	ErrInvalidOAuthState: http.StatusBadRequest,

	// 401 Unauthorized
	ErrUnauthorized:         http.StatusUnauthorized,
	jwt.ErrNonValidToken:    http.StatusUnauthorized,
	ErrTokenExpired:         http.StatusUnauthorized,
	ErrInvalidCredentials:   http.StatusUnauthorized,
	jwt.ErrInvalidNonce:     http.StatusUnauthorized,
	ErrCalendarNotConnected: http.StatusUnauthorized,

	// 403 Forbidden
	ErrFeatureNotInPlan: http.StatusForbidden,
	ErrCalendarQuota:    http.StatusForbidden,

	// 404 Not Found
	ErrUserNotFound:     http.StatusNotFound,
	ErrEventNotFound:    http.StatusNotFound,
	storage.ErrNotFound: http.StatusNotFound,

	// 409 Conflict
	ErrEmailTaken: http.StatusConflict,

	// 500 Internal Server Error
	ErrInternalServer: http.StatusInternalServerError,
	ErrDatabaseError:  http.StatusInternalServerError,

	// 503 Service Unavailable
	ErrServiceUnavailable: http.StatusServiceUnavailable,
}

// errorInfoMap maps errors to user-friendly messages and optional stop codes
var errorInfoMap = map[error]ErrorInfo{
	// Authentication
	ErrUnauthorized: {
		Message:   "Authentication required",
		StopCodes: []string{"AUTH_REQUIRED"},
	},
	jwt.ErrNonValidToken: {
		Message:   "Invalid or expired authentication token",
		StopCodes: []string{"AUTH_INVALID_TOKEN"},
	},
	ErrTokenExpired: {
		Message:   "Authentication token has expired",
		StopCodes: []string{"AUTH_TOKEN_EXPIRED"},
	},
	ErrInvalidCredentials: {
		Message:   "Invalid credentials provided",
		StopCodes: []string{"AUTH_INVALID_CREDENTIALS"},
	},
	jwt.ErrInvalidNonce: {
		Message:   "Invalid or reused token",
		StopCodes: []string{"AUTH_INVALID_NONCE"},
	},
	ErrEmailTaken: {
		Message:   "An account with this email already exists",
		StopCodes: []string{"EMAIL_TAKEN"},
	},

	// Calendar connection
	ErrCalendarNotConnected: {
		Message:   "No calendar connection. Connect your Google account first.",
		StopCodes: []string{"CALENDAR_NOT_CONNECTED"},
	},
	ErrInvalidOAuthState: {
		Message:   "OAuth state did not validate. Restart the connection flow.",
		StopCodes: []string{"OAUTH_STATE_INVALID"},
	},

	// Plan gating
	ErrFeatureNotInPlan: {
		Message:   "Your plan does not include this feature",
		StopCodes: []string{"PLAN_FEATURE_MISSING"},
	},
	ErrCalendarQuota: {
		Message:   "Your plan does not allow this many calendars",
		StopCodes: []string{"PLAN_CALENDAR_QUOTA"},
	},

	// Validation
	ErrInvalidRequest: {
		Message:   "Invalid request format",
		StopCodes: []string{"INVALID_REQUEST"},
	},
	ErrMissingParameter: {
		Message:   "Required parameter is missing",
		StopCodes: []string{"MISSING_PARAMETER"},
	},
	ErrInvalidParameter: {
		Message:   "Invalid parameter value",
		StopCodes: []string{"INVALID_PARAMETER"},
	},

	// Not found
	ErrEventNotFound: {
		Message:   "Event not found",
		StopCodes: []string{"EVENT_NOT_FOUND"},
	},
	storage.ErrNotFound: {
		Message:   "Record not found",
		StopCodes: []string{"NOT_FOUND"},
	},

	// Internal (no stop codes for internal errors)
	ErrInternalServer: {
		Message: "An internal error occurred",
	},
	ErrDatabaseError: {
		Message: "Database operation failed",
	},
	ErrServiceUnavailable: {
		Message: "Service is temporarily unavailable",
	},
}

// GetErrorStatus returns the HTTP status code for an error
func GetErrorStatus(err error) int {
	// Check if it's already an HTTPError
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}

	// Remote provider errors carry their own taxonomy
	var authErr *gcal.AuthError
	if errors.As(err, &authErr) {
		return http.StatusUnauthorized
	}
	var fetchErr *gcal.RemoteFetchError
	if errors.As(err, &fetchErr) {
		return http.StatusBadGateway
	}
	var pushErr *gcal.RemotePushError
	if errors.As(err, &pushErr) {
		return http.StatusBadGateway
	}

	// Check direct match
	if status, ok := errorStatusMap[err]; ok {
		return status
	}

	// Check if error wraps a known error
	for knownErr, status := range errorStatusMap {
		if errors.Is(err, knownErr) {
			return status
		}
	}

	// Default to 500 Internal Server Error
	return http.StatusInternalServerError
}

// GetErrorInfo returns error information including message and stop codes
func GetErrorInfo(err error) ErrorInfo {
	// Check if it's an HTTPError with custom info
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return ErrorInfo{
			Message:   httpErr.Message,
			StopCodes: httpErr.StopCodes,
		}
	}

	var authErr *gcal.AuthError
	if errors.As(err, &authErr) {
		return ErrorInfo{
			Message:   "Calendar authentication failed. Reconnect your Google account.",
			StopCodes: []string{"CALENDAR_AUTH_FAILED"},
		}
	}
	var fetchErr *gcal.RemoteFetchError
	if errors.As(err, &fetchErr) {
		return ErrorInfo{
			Message:   "Failed to read from the remote calendar",
			StopCodes: []string{"REMOTE_FETCH_FAILED"},
		}
	}
	var pushErr *gcal.RemotePushError
	if errors.As(err, &pushErr) {
		return ErrorInfo{
			Message:   "Failed to write to the remote calendar",
			StopCodes: []string{"REMOTE_PUSH_FAILED"},
		}
	}

	// Check direct match
	if info, ok := errorInfoMap[err]; ok {
		return info
	}

	// Check if error wraps a known error
	for knownErr, info := range errorInfoMap {
		if errors.Is(err, knownErr) {
			return info
		}
	}

	// For unknown errors, return a generic message for 5xx, specific for others
	status := GetErrorStatus(err)
	if status >= 500 {
		return ErrorInfo{Message: "An internal error occurred"}
	}
	return ErrorInfo{Message: err.Error()}
}

// GetErrorMessage returns a user-friendly message for an error
func GetErrorMessage(err error) string {
	return GetErrorInfo(err).Message
}
