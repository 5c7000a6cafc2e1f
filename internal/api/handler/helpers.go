package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/api/jsonapi"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/api/middleware"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/auth"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/divecenter"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/observability"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/onboarding"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/staff"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/subscription"
)

const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	// Report JSON field names rather than Go field names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// decodeAndValidate reads a JSON body into dst and runs validator tags.
// It writes the error response and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		jsonapi.RenderError(w, http.StatusBadRequest, "invalid_body", "Bad Request", "request body must be valid JSON")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			jsonapi.RenderError(w, http.StatusBadRequest, "invalid_body", "Bad Request", err.Error())
			return false
		}
		objs := make([]jsonapi.ErrorObject, 0, len(verrs))
		for _, fe := range verrs {
			objs = append(objs, jsonapi.ErrorObject{
				Status: http.StatusText(http.StatusUnprocessableEntity),
				Code:   "invalid_field",
				Title:  "Unprocessable Entity",
				Detail: fe.Field() + " failed " + fe.Tag() + " validation",
				Source: &jsonapi.ErrorSource{Pointer: "/data/attributes/" + fe.Field()},
			})
		}
		jsonapi.RenderErrors(w, http.StatusUnprocessableEntity, objs)
		return false
	}
	return true
}

// identity returns the session identity or writes a 401.
func identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		jsonapi.RenderError(w, http.StatusUnauthorized, "missing_token", "Unauthorized", "authentication required")
	}
	return id, ok
}

type errorMapping struct {
	target error
	status int
	code   string
	detail string
}

// errorMappings translates service sentinels to responses. Anything not
// listed is a 500 whose cause is logged and reported, never returned.
var errorMappings = []errorMapping{
	{subscription.ErrEmailRequired, http.StatusBadRequest, "missing_field", "email is required"},
	{staff.ErrStaffCodeRequired, http.StatusBadRequest, "missing_field", "staffCode is required"},
	{staff.ErrEmailRequired, http.StatusBadRequest, "missing_field", "userEmail is required"},
	{staff.ErrFullNameRequired, http.StatusUnprocessableEntity, "missing_field", "fullName is required"},
	{staff.ErrInvalidStatus, http.StatusUnprocessableEntity, "invalid_field", "status must be active, inactive or freelance"},
	{staff.ErrStaffRevoked, http.StatusForbidden, "staff_revoked", "Staff access has been revoked"},
	{staff.ErrCenterNotFound, http.StatusNotFound, "not_found", divecenter.MessageNotFound},
	{divecenter.ErrCenterIDRequired, http.StatusBadRequest, "missing_field", "dive center id is required"},
	{divecenter.ErrNameRequired, http.StatusUnprocessableEntity, "missing_field", "name is required"},
	{divecenter.ErrCenterNotFound, http.StatusNotFound, "not_found", divecenter.MessageNotFound},
	{divecenter.ErrNoSubscription, http.StatusForbidden, "subscription_required", subscription.MessageNoSubscription},
	{divecenter.ErrPlanLimitReached, http.StatusForbidden, "plan_limit_reached", "Dive center limit for current plan reached"},
	{divecenter.ErrDeleteFailed, http.StatusInternalServerError, "delete_failed", divecenter.MessageDeleteFailed},
	{divecenter.ErrUnauthenticated, http.StatusUnauthorized, "missing_token", "authentication required"},
	{staff.ErrUnauthenticated, http.StatusUnauthorized, "missing_token", "authentication required"},
	{onboarding.ErrUnauthenticated, http.StatusUnauthorized, "missing_token", "authentication required"},
}

// renderServiceError writes the response for an error returned by a
// service call.
func renderServiceError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			jsonapi.RenderError(w, m.status, m.code, http.StatusText(m.status), m.detail)
			return
		}
	}
	logger.ErrorContext(ctx, op, "err", err)
	observability.CaptureError(ctx, err)
	jsonapi.RenderError(w, http.StatusInternalServerError, "internal_error", "Internal Server Error", "an unexpected error occurred")
}

// marshalWithToken encodes v and adds an accessToken member when token is
// set. Tokens stay out of exported fields.
func marshalWithToken(v any, token string) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil || token == "" {
		return b, err
	}
	obj := make(map[string]json.RawMessage)
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil, err
	}
	tok, err := json.Marshal(token)
	if err != nil {
		return nil, err
	}
	obj["accessToken"] = tok
	return json.Marshal(obj)
}
