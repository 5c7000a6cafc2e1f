package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/scubafy-dev/scubafy-app-sub001/internal/api/jsonapi"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/model"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/staff"
)

// StaffHandler handles staff verification and per-center staff routes.
type StaffHandler struct {
	svc       *staff.Service
	logger    *slog.Logger
	jwtSecret string
	accessTTL time.Duration
}

// NewStaffHandler creates a StaffHandler.
func NewStaffHandler(svc *staff.Service, logger *slog.Logger, jwtSecret string, accessTTL time.Duration) *StaffHandler {
	return &StaffHandler{svc: svc, logger: logger, jwtSecret: jwtSecret, accessTTL: accessTTL}
}

type verifyRequest struct {
	StaffCode string `json:"staffCode" validate:"required,max=32"`
	UserEmail string `json:"userEmail" validate:"required,email"`
}

type verifyAttrs struct {
	Success     bool              `json:"success"`
	Staff       *model.Staff      `json:"staff,omitempty"`
	DiveCenter  *model.DiveCenter `json:"diveCenter,omitempty"`
	Message     string            `json:"message,omitempty"`
	accessToken string
}

func (v verifyAttrs) MarshalJSON() ([]byte, error) {
	type plain verifyAttrs
	return marshalWithToken(plain(v), v.accessToken)
}

// Verify handles POST /api/v1/staff/verify. A failed verification is a
// normal 200 response with success=false.
func (h *StaffHandler) Verify(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req verifyRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx := r.Context()
	v, err := h.svc.Verify(ctx, req.StaffCode, req.UserEmail)
	if err != nil {
		renderServiceError(ctx, w, h.logger, "staff verify", err)
		return
	}

	attrs := verifyAttrs{Success: v.Success, Staff: v.Staff, DiveCenter: v.DiveCenter, Message: v.Message}
	if v.Success {
		if attrs.accessToken, err = issueStaffToken(id, v.Staff, h.jwtSecret, h.accessTTL); err != nil {
			renderServiceError(ctx, w, h.logger, "staff verify: issue token", err)
			return
		}
	}
	jsonapi.RenderOne(w, http.StatusOK, jsonapi.ResourceObject{
		Type:       "staff_verification",
		ID:         id.UserID,
		Attributes: attrs,
	})
}

type createStaffRequest struct {
	FullName    string   `json:"fullName" validate:"required,max=200"`
	Email       string   `json:"email" validate:"omitempty,email"`
	Phone       string   `json:"phone" validate:"omitempty,max=40"`
	RoleTitle   string   `json:"roleTitle" validate:"omitempty,max=100"`
	Status      string   `json:"status" validate:"omitempty,oneof=active inactive freelance"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,required,max=64"`
}

// Create handles POST /api/v1/dive-centers/{id}/staff.
func (h *StaffHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req createStaffRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx := r.Context()
	created, err := h.svc.Create(ctx, id, r.PathValue("id"), staff.CreateInput{
		FullName:    req.FullName,
		Email:       req.Email,
		Phone:       req.Phone,
		RoleTitle:   req.RoleTitle,
		Status:      model.StaffStatus(req.Status),
		Permissions: req.Permissions,
	})
	if err != nil {
		renderServiceError(ctx, w, h.logger, "staff create", err)
		return
	}
	jsonapi.RenderOne(w, http.StatusCreated, staffResource(created))
}

// List handles GET /api/v1/dive-centers/{id}/staff.
func (h *StaffHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	rows, err := h.svc.List(ctx, id, r.PathValue("id"))
	if err != nil {
		renderServiceError(ctx, w, h.logger, "staff list", err)
		return
	}
	data := make([]any, 0, len(rows))
	for i := range rows {
		data = append(data, staffResource(&rows[i]))
	}
	jsonapi.RenderList(w, http.StatusOK, data)
}

// Session handles GET /api/v1/staff/session.
func (h *StaffHandler) Session(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	st, err := h.svc.Session(ctx, id)
	if err != nil {
		renderServiceError(ctx, w, h.logger, "staff session", err)
		return
	}
	jsonapi.RenderOne(w, http.StatusOK, staffResource(st))
}

func staffResource(s *model.Staff) jsonapi.ResourceObject {
	return jsonapi.ResourceObject{Type: "staff", ID: s.ID, Attributes: s}
}
