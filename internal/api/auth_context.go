package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/studytrackapp/studytrack-server/internal/domain"
	domainerrors "github.com/studytrackapp/studytrack-server/internal/errors"
	"github.com/studytrackapp/studytrack-server/internal/service"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

const (
	userIDKey    ctxKey = "userID"
	roleKey      ctxKey = "role"
	sessionIDKey ctxKey = "sessionID"
	authErrKey   ctxKey = "authErr"
)

// GetUserID returns the authenticated user ID from context.
// A rejected token surfaces its own error (expired, blocked); a missing one is 401.
func GetUserID(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok || userID == "" {
		if err, ok := ctx.Value(authErrKey).(error); ok {
			return "", err
		}
		return "", huma.Error401Unauthorized("Authentication required")
	}
	return userID, nil
}

// getSessionID returns the session the access token was issued for, if any.
func getSessionID(ctx context.Context) string {
	sessionID, _ := ctx.Value(sessionIDKey).(string)
	return sessionID
}

// authMiddleware returns a middleware that validates Bearer tokens and stores user ID in context.
// If no token is present or invalid, continues without user in context.
// Handlers use GetUserID to check authentication.
func authMiddleware(auth *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			user, claims, err := auth.VerifyAccessToken(r.Context(), token)
			if err != nil {
				ctx := context.WithValue(r.Context(), authErrKey, err)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, user.ID)
			ctx = context.WithValue(ctx, roleKey, user.Role)
			ctx = context.WithValue(ctx, sessionIDKey, claims.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// RequireAdmin validates the user is authenticated and has admin role.
// Returns the user ID if successful, error otherwise.
func RequireAdmin(ctx context.Context) (string, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return "", err
	}

	if role, _ := ctx.Value(roleKey).(domain.Role); role != domain.RoleAdmin {
		return "", domainerrors.Forbidden("Admin access required.")
	}

	return userID, nil
}

// identifyStream resolves the caller of the SSE endpoint from the same context values.
func identifyStream(r *http.Request) (string, bool, error) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		return "", false, err
	}
	role, _ := r.Context().Value(roleKey).(domain.Role)
	return userID, role == domain.RoleAdmin, nil
}
