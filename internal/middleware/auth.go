package middleware

import (
	"net/http"
	"strings"

	"github.com/edwintenbrinke/motion-detection/internal/database"
	"github.com/edwintenbrinke/motion-detection/internal/logging"
)

// DeviceAuth returns middleware that requires a valid device token on
// every request it wraps. The token is presented either as a bearer
// token or in the X-Device-Token header. When no token has been
// provisioned yet the check is skipped so a fresh install can receive
// uploads before an operator runs settoken.
func DeviceAuth(db *database.Database) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !db.HasDeviceToken(r.Context()) {
				next.ServeHTTP(w, r)
				return
			}

			token := extractToken(r)
			if token == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "missing device token", http.StatusUnauthorized)
				return
			}

			if err := db.ValidateDeviceToken(r.Context(), token); err != nil {
				logging.Warn("Auth: rejected request from %s: %v", getClientIP(r), err)
				http.Error(w, "invalid device token", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return r.Header.Get("X-Device-Token")
}
