package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cjdreamy/M-kumbusha/internal/apperrors"
	"github.com/cjdreamy/M-kumbusha/internal/logger"
	"github.com/cjdreamy/M-kumbusha/internal/models"
)

type contextKey string

const claimsKey contextKey = "claims"

// ProfileLookup resolves the caller's profile for role checks
type ProfileLookup interface {
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
}

// WithClaims returns a copy of ctx carrying claims
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the authenticated caller, or nil
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey).(*Claims)
	return claims
}

// GetUserIDFromContext extracts the caller's user id from context
func GetUserIDFromContext(ctx context.Context) (string, error) {
	claims := ClaimsFromContext(ctx)
	if claims == nil || claims.UserID == "" {
		return "", errors.New("user ID not found in context")
	}
	return claims.UserID, nil
}

// AuthMiddleware validates the bearer token and puts the caller in the request context
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := ExtractTokenFromRequest(r)
			if err != nil {
				logger.Log.Debugf("Error extracting token: %v", err)
				writeError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			claims, err := ParseToken(token, secret)
			if err != nil {
				logger.Log.Warnf("Rejected token: %v", err)
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireAdmin lets the request through only when the caller's profile has the admin role
func RequireAdmin(profiles ProfileLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := GetUserIDFromContext(r.Context())
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			profile, err := profiles.GetProfile(r.Context(), userID)
			if err != nil && !apperrors.IsNotFound(err) {
				logger.Log.Errorf("Error checking admin role for %s: %v", userID, err)
				writeError(w, http.StatusInternalServerError, "Failed to validate authorization")
				return
			}
			if !profile.IsAdmin() {
				writeError(w, http.StatusForbidden, "Forbidden - Admin access required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		logger.Log.Errorf("Failed to write error response: %v", err)
	}
}
