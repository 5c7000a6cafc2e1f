package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/scubafy-dev/scubafy-app-sub001/internal/api/jsonapi"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/model"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/subscription"
	"gorm.io/gorm"
)

// SubscriptionChecker evaluates a user's subscription.
type SubscriptionChecker interface {
	Check(ctx context.Context, email string) (*subscription.Status, error)
}

// RequireManager admits only users whose stored role is manager and whose
// subscription still grants access. The gate runs on every request, so an
// expired subscription downgrades the role here as well as at sign-in.
// Must be chained after RequireAuth.
func RequireManager(db *gorm.DB, gate SubscriptionChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id, ok := IdentityFromContext(ctx)
			if !ok {
				jsonapi.RenderError(w, http.StatusUnauthorized,
					"missing_token", "Unauthorized", "authentication required")
				return
			}

			var u model.User
			err := db.WithContext(ctx).Select("id", "email", "role").First(&u, "id = ?", id.UserID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				jsonapi.RenderError(w, http.StatusUnauthorized,
					"user_not_found", "Unauthorized", "user account does not exist")
				return
			}
			if err != nil {
				logger.ErrorContext(ctx, "manager gate: load user", "user_id", id.UserID, "err", err)
				jsonapi.RenderError(w, http.StatusInternalServerError,
					"internal_error", "Internal Server Error", "failed to load user")
				return
			}
			if !u.IsManager() {
				jsonapi.RenderError(w, http.StatusForbidden,
					"manager_required", "Forbidden", "manager role required")
				return
			}

			st, err := gate.Check(ctx, u.Email)
			if err != nil {
				logger.ErrorContext(ctx, "manager gate: check subscription", "user_id", id.UserID, "err", err)
				jsonapi.RenderError(w, http.StatusInternalServerError,
					"internal_error", "Internal Server Error", "failed to check subscription")
				return
			}
			if !st.Granted() {
				jsonapi.RenderErrorMeta(w, http.StatusForbidden,
					string(st.Reason), "Forbidden", st.Message,
					jsonapi.Meta{"redirect": subscription.ErrorRedirect(st.Reason)})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
