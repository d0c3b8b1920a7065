package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	platformstrings "labtrail/pkg/platform/strings"
)

// Claims are the bearer-token claims the read surface cares about: who is
// asking and which roles they hold. Authentication itself is the identity
// provider's job; this layer only verifies and extracts.
type Claims struct {
	ActorID string
	Roles   []string
}

type contextKeyClaims struct{}

var claimsKey = contextKeyClaims{}

// GetClaims retrieves the verified claims from the request context.
func GetClaims(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(Claims)
	return claims, ok
}

// RequireAuth verifies the bearer token and stashes its claims for
// handlers. Tokens are HMAC-signed by the external identity provider with
// a shared key.
func RequireAuth(signingKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"bearer token required"}`))
				return
			}

			claims, err := parseClaims(token, signingKey)
			if err != nil {
				logger.WarnContext(r.Context(), "bearer token rejected", "error", err)
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"invalid token"}`))
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseClaims(tokenString, signingKey string) (Claims, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(signingKey), nil
	})
	if err != nil {
		return Claims{}, err
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return Claims{}, jwt.ErrTokenInvalidClaims
	}

	claims := Claims{}
	if sub, err := mapClaims.GetSubject(); err == nil {
		claims.ActorID = sub
	}
	if raw, ok := mapClaims["roles"].([]any); ok {
		for _, r := range raw {
			if role, ok := r.(string); ok {
				claims.Roles = append(claims.Roles, role)
			}
		}
		claims.Roles = platformstrings.DedupeAndTrim(claims.Roles)
	}
	return claims, nil
}
