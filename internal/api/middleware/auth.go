// Package middleware provides HTTP middleware for Scubafy.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/scubafy-dev/scubafy-app-sub001/internal/api/jsonapi"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/auth"
)

type contextKey string

const identityKey contextKey = "auth_identity"

// RequireAuth validates the Bearer JWT in the Authorization header.
// On success it injects the session auth.Identity into the request context.
// On failure it writes a 401 JSON:API error response.
func RequireAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				jsonapi.RenderError(w, http.StatusUnauthorized,
					"missing_token", "Unauthorized", "Authorization header is required")
				return
			}

			claims, err := auth.ParseAccessToken(token, secret)
			if err != nil {
				jsonapi.RenderError(w, http.StatusUnauthorized,
					"invalid_token", "Unauthorized", "access token is invalid or expired")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), claims.Identity())))
		})
	}
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext extracts the session identity from the request
// context. ok is false if RequireAuth did not run.
func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(auth.Identity)
	return id, ok && id.Authenticated()
}

// RequireStaff admits only sessions bound to a staff record that carry every
// listed permission. Must be chained after RequireAuth.
func RequireStaff(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				jsonapi.RenderError(w, http.StatusUnauthorized,
					"missing_token", "Unauthorized", "authentication required")
				return
			}
			if !id.IsStaff() {
				jsonapi.RenderError(w, http.StatusForbidden,
					"staff_required", "Forbidden", "session is not bound to a dive center")
				return
			}
			for _, perm := range perms {
				if !id.HasPermission(perm) {
					jsonapi.RenderError(w, http.StatusForbidden,
						"forbidden", "Forbidden",
						"your session does not grant the '"+perm+"' permission")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
