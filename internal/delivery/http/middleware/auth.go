package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/storehaus/review-engine/internal/delivery/http/response"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the resolved caller placed into the request context.
// Token issuance belongs to the auth subsystem; this middleware only
// verifies and decodes.
type Identity struct {
	UserID  uuid.UUID
	Name    string
	IsAdmin bool
}

// IdentityFromContext returns the caller identity set by Authenticate
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*Identity)
	return identity, ok
}

// WithIdentity returns a context carrying the given identity (used in tests)
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// Authenticate returns a middleware that validates the Bearer token and
// resolves it to a caller identity
func Authenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				response.Error(w, http.StatusUnauthorized, "Missing or invalid token")
				return
			}
			tokenStr := strings.TrimPrefix(header, "Bearer ")

			token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				response.Error(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				response.Error(w, http.StatusUnauthorized, "Invalid claims")
				return
			}

			sub, _ := claims["sub"].(string)
			userID, err := uuid.Parse(sub)
			if err != nil {
				response.Error(w, http.StatusUnauthorized, "Invalid subject claim")
				return
			}

			name, _ := claims["name"].(string)
			isAdmin, _ := claims["admin"].(bool)

			identity := &Identity{
				UserID:  userID,
				Name:    name,
				IsAdmin: isAdmin,
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireAdmin returns a middleware that rejects non-administrator
// callers. It must run after Authenticate.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				response.Error(w, http.StatusUnauthorized, "Missing or invalid token")
				return
			}
			if !identity.IsAdmin {
				response.Error(w, http.StatusForbidden, "Administrator access required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
