package middleware

import (
	"log/slog"
	"net/http"

	"labtrail/pkg/secrets"
)

// RequireAdminToken guards the administrative surface. The expected value
// is a bcrypt hash from configuration; the plaintext token never appears in
// the process environment.
func RequireAdminToken(tokenHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenHash == "" {
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"admin surface is disabled"}`))
				return
			}
			token := r.Header.Get("X-Admin-Token")
			if err := secrets.Verify(token, tokenHash); err != nil {
				logger.WarnContext(r.Context(), "admin token mismatch", "path", r.URL.Path)
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
