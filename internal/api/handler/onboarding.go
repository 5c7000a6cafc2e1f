package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/scubafy-dev/scubafy-app-sub001/internal/api/jsonapi"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/auth"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/model"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/onboarding"
)

// OnboardingHandler handles /api/v1/onboarding/* routes.
type OnboardingHandler struct {
	flow      *onboarding.Flow
	logger    *slog.Logger
	jwtSecret string
	accessTTL time.Duration
}

// NewOnboardingHandler creates an OnboardingHandler.
func NewOnboardingHandler(flow *onboarding.Flow, logger *slog.Logger, jwtSecret string, accessTTL time.Duration) *OnboardingHandler {
	return &OnboardingHandler{flow: flow, logger: logger, jwtSecret: jwtSecret, accessTTL: accessTTL}
}

type managerRequest struct {
	CallbackURL string `json:"callbackUrl" validate:"omitempty,max=2048"`
}

type staffRequest struct {
	StaffCode   string `json:"staffCode" validate:"required,max=32"`
	CallbackURL string `json:"callbackUrl" validate:"omitempty,max=2048"`
}

type outcomeAttrs struct {
	State       onboarding.State  `json:"state"`
	Redirect    string            `json:"redirect,omitempty"`
	Message     string            `json:"message,omitempty"`
	Staff       *model.Staff      `json:"staff,omitempty"`
	DiveCenter  *model.DiveCenter `json:"diveCenter,omitempty"`
	accessToken string
}

func (o outcomeAttrs) MarshalJSON() ([]byte, error) {
	type plain outcomeAttrs
	return marshalWithToken(plain(o), o.accessToken)
}

// Show handles GET /api/v1/onboarding.
func (h *OnboardingHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	out, err := h.flow.Resolve(r.Context(), id, r.URL.Query().Get("callbackUrl"))
	if err != nil {
		renderServiceError(r.Context(), w, h.logger, "onboarding resolve", err)
		return
	}
	h.render(w, id, out, "")
}

// SelectManager handles POST /api/v1/onboarding/manager.
func (h *OnboardingHandler) SelectManager(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req managerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	out, err := h.flow.SelectManager(r.Context(), id, req.CallbackURL)
	if err != nil {
		renderServiceError(r.Context(), w, h.logger, "onboarding select manager", err)
		return
	}

	token := ""
	if out.State == onboarding.StateManagerGranted {
		// Reissue so the session reflects the new role.
		next := auth.Identity{UserID: id.UserID, Email: id.Email, Role: model.RoleManager}
		if token, err = auth.IssueAccessToken(next, h.jwtSecret, h.accessTTL); err != nil {
			renderServiceError(r.Context(), w, h.logger, "onboarding issue manager token", err)
			return
		}
	}
	h.render(w, id, out, token)
}

// SelectStaff handles POST /api/v1/onboarding/staff.
func (h *OnboardingHandler) SelectStaff(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req staffRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	out, err := h.flow.SelectStaff(r.Context(), id, req.StaffCode, req.CallbackURL)
	if err != nil {
		renderServiceError(r.Context(), w, h.logger, "onboarding select staff", err)
		return
	}

	token := ""
	if out.State == onboarding.StateStaffGranted {
		if token, err = issueStaffToken(id, out.Staff, h.jwtSecret, h.accessTTL); err != nil {
			renderServiceError(r.Context(), w, h.logger, "onboarding issue staff token", err)
			return
		}
	}
	h.render(w, id, out, token)
}

func (h *OnboardingHandler) render(w http.ResponseWriter, id auth.Identity, out *onboarding.Outcome, token string) {
	status := http.StatusOK
	if out.State == onboarding.StateStaffDenied || out.State == onboarding.StateManagerDenied {
		status = http.StatusForbidden
	}
	jsonapi.RenderOne(w, status, jsonapi.ResourceObject{
		Type: "onboarding",
		ID:   id.UserID,
		Attributes: outcomeAttrs{
			State:       out.State,
			Redirect:    out.Redirect,
			Message:     out.Message,
			Staff:       out.Staff,
			DiveCenter:  out.DiveCenter,
			accessToken: token,
		},
	})
}

// issueStaffToken binds the user's session to a verified staff record.
func issueStaffToken(id auth.Identity, st *model.Staff, secret string, ttl time.Duration) (string, error) {
	next := auth.Identity{
		UserID:       id.UserID,
		Email:        id.Email,
		Role:         id.Role,
		StaffID:      st.ID,
		DiveCenterID: *st.DiveCenterID,
		Permissions:  st.PermissionNames(),
	}
	return auth.IssueAccessToken(next, secret, ttl)
}
