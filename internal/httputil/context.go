package httputil

import (
	"context"
	"net/http"
)

// Unexported key type keeps context values collision-free across packages.
type contextKey string

const userIDKey contextKey = "userID"

// WithUserID stamps the authenticated user id onto the request context.
func WithUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userIDKey, userID))
}

// GetUserID returns the user id from the request context, empty if unset.
func GetUserID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}

// RequireUserID extracts the authenticated user id or writes a 401.
// An empty id means the request never passed the auth middleware.
func RequireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := GetUserID(r)
	if userID == "" {
		RespondError(w, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return userID, true
}
