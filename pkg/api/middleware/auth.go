// Package middleware provides HTTP middleware for flightcore's API: bearer
// authentication and role gating layered on chi.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/aeroline/flightcore/pkg/auth"
	"github.com/aeroline/flightcore/pkg/models"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// GetClaimsFromContext retrieves the validated access-token claims from the
// request context. Returns nil if RequireAuth/OptionalAuth never ran or no
// token was presented.
func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsContextKey).(*auth.Claims)
	return claims
}

func extractBearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// TokenValidator validates a bearer token string into claims. *auth.TokenService
// satisfies it.
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (*auth.Claims, error)
}

// RequireAuth validates the request's bearer token and stores its claims in
// context, responding 401 when the header is absent or the token is
// rejected.
func RequireAuth(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := extractBearerToken(r)
			if !ok {
				handlerUnauthorized(w, "missing bearer token")
				return
			}
			claims, err := tokens.ValidateAccessToken(tokenString)
			if err != nil {
				handlerUnauthorized(w, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth behaves like RequireAuth but lets the request through
// without claims when no token, or an invalid one, is presented. Used on
// endpoints the spec exposes to both anonymous and authenticated callers
// (e.g. listing vessels).
func OptionalAuth(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := extractBearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := tokens.ValidateAccessToken(tokenString)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole blocks requests whose claims don't carry at least one of
// roles. Must run after RequireAuth.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaimsFromContext(r.Context())
			if claims == nil {
				handlerUnauthorized(w, "authentication required")
				return
			}
			for _, role := range roles {
				if claims.HasRole(string(role)) {
					next.ServeHTTP(w, r)
					return
				}
			}
			handlerForbidden(w, "insufficient role")
		})
	}
}

func handlerUnauthorized(w http.ResponseWriter, detail string) {
	http.Error(w, detail, http.StatusUnauthorized)
}

func handlerForbidden(w http.ResponseWriter, detail string) {
	http.Error(w, detail, http.StatusForbidden)
}
