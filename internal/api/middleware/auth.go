package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/example/pos-sync/internal/auth"
)

// respondError writes a JSON error response
func respondError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// ExtractToken extracts the session token from cookie or Authorization
// header.
func ExtractToken(r *http.Request) string {
	if cookie, err := r.Cookie("access_token"); err == nil {
		return cookie.Value
	}
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

type contextKey string

const (
	DeviceContextKey contextKey = "device"
)

// AuthMiddleware validates session tokens and adds device claims to the
// request context.
func AuthMiddleware(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := ExtractToken(r)
			if tokenString == "" {
				respondError(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := jwtService.ValidateAccessToken(tokenString)
			if err != nil {
				respondError(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), DeviceContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetDeviceFromContext retrieves device claims from the request context.
func GetDeviceFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(DeviceContextKey).(*auth.Claims)
	return claims, ok
}

// GetDeviceID is a helper to get just the device ID from context.
func GetDeviceID(ctx context.Context) string {
	claims, ok := GetDeviceFromContext(ctx)
	if !ok {
		return ""
	}
	return claims.DeviceID
}
