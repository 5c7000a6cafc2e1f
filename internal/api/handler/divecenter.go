package handler

import (
	"log/slog"
	"net/http"

	"github.com/scubafy-dev/scubafy-app-sub001/internal/api/jsonapi"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/divecenter"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/model"
)

// DiveCenterHandler handles /api/v1/dive-centers/* routes.
type DiveCenterHandler struct {
	svc    *divecenter.Service
	logger *slog.Logger
}

// NewDiveCenterHandler creates a DiveCenterHandler.
func NewDiveCenterHandler(svc *divecenter.Service, logger *slog.Logger) *DiveCenterHandler {
	return &DiveCenterHandler{svc: svc, logger: logger}
}

type createCenterRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Location string `json:"location" validate:"omitempty,max=200"`
	Email    string `json:"email" validate:"omitempty,email"`
	Contact  string `json:"contact" validate:"omitempty,max=100"`
}

type deleteAttrs struct {
	Success       bool                     `json:"success"`
	DiveCenters   []jsonapi.ResourceObject `json:"diveCenters"`
	NextCurrentID string                   `json:"nextCurrentId"`
}

// List handles GET /api/v1/dive-centers.
func (h *DiveCenterHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	centers, err := h.svc.List(ctx, id)
	if err != nil {
		renderServiceError(ctx, w, h.logger, "dive center list", err)
		return
	}
	data := make([]any, 0, len(centers))
	for i := range centers {
		data = append(data, centerResource(&centers[i]))
	}
	jsonapi.RenderList(w, http.StatusOK, data)
}

// Create handles POST /api/v1/dive-centers.
func (h *DiveCenterHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req createCenterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	ctx := r.Context()
	c, err := h.svc.Create(ctx, id, divecenter.CreateInput{
		Name:     req.Name,
		Location: req.Location,
		Email:    req.Email,
		Contact:  req.Contact,
	})
	if err != nil {
		renderServiceError(ctx, w, h.logger, "dive center create", err)
		return
	}
	jsonapi.RenderOne(w, http.StatusCreated, centerResource(c))
}

// Summary handles GET /api/v1/dive-centers/{id}/summary.
func (h *DiveCenterHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	sum, err := h.svc.Summary(ctx, id, r.PathValue("id"))
	if err != nil {
		renderServiceError(ctx, w, h.logger, "dive center summary", err)
		return
	}
	jsonapi.RenderOne(w, http.StatusOK, jsonapi.ResourceObject{
		Type:       "dive_center_summary",
		ID:         sum.DiveCenterID,
		Attributes: sum,
	})
}

// Delete handles DELETE /api/v1/dive-centers/{id}. The response lists the
// caller's remaining centers so the client can switch its selection.
func (h *DiveCenterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	centerID := r.PathValue("id")
	res, err := h.svc.Delete(ctx, id, centerID)
	if err != nil {
		renderServiceError(ctx, w, h.logger, "dive center delete", err)
		return
	}

	remaining := make([]jsonapi.ResourceObject, 0, len(res.DiveCenters))
	for i := range res.DiveCenters {
		remaining = append(remaining, centerResource(&res.DiveCenters[i]))
	}
	jsonapi.RenderOneMeta(w, http.StatusOK, jsonapi.ResourceObject{
		Type: "dive_center_deletion",
		ID:   centerID,
		Attributes: deleteAttrs{
			Success:       true,
			DiveCenters:   remaining,
			NextCurrentID: res.NextCurrentID,
		},
	}, jsonapi.Meta{"removed": res.Removed})
}

func centerResource(c *model.DiveCenter) jsonapi.ResourceObject {
	return jsonapi.ResourceObject{Type: "dive_centers", ID: c.ID, Attributes: c}
}
