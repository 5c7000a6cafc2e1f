package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/scubafy-dev/scubafy-app-sub001/internal/api/jsonapi"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/model"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/subscription"
)

// SubscriptionHandler handles /api/v1/subscription/* routes.
type SubscriptionHandler struct {
	gate   *subscription.Gate
	logger *slog.Logger
}

// NewSubscriptionHandler creates a SubscriptionHandler.
func NewSubscriptionHandler(gate *subscription.Gate, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{gate: gate, logger: logger}
}

type checkRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type subscriptionAttrs struct {
	PlanType       string                   `json:"planType"`
	BillingCycle   string                   `json:"billingCycle"`
	MaxDiveCenters int                      `json:"maxDiveCenters"`
	PeriodEnd      int64                    `json:"periodEnd"`
	Status         model.SubscriptionStatus `json:"status"`
}

type checkAttrs struct {
	HasPaidSubscription bool               `json:"hasPaidSubscription"`
	HasFreeSubscription bool               `json:"hasFreeSubscription"`
	Subscription        *subscriptionAttrs `json:"subscription,omitempty"`
	Message             string             `json:"message,omitempty"`
}

// Check handles POST /api/v1/subscription/check. Users may only check their
// own email.
func (h *SubscriptionHandler) Check(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req checkRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if !strings.EqualFold(req.Email, id.Email) {
		jsonapi.RenderError(w, http.StatusForbidden, "forbidden", "Forbidden", "you may only check your own subscription")
		return
	}

	ctx := r.Context()
	st, err := h.gate.Check(ctx, id.Email)
	if err != nil {
		renderServiceError(ctx, w, h.logger, "subscription check", err)
		return
	}

	attrs := checkAttrs{
		HasPaidSubscription: st.HasPaid,
		HasFreeSubscription: st.HasFree,
		Message:             st.Message,
	}
	if st.Granted() {
		attrs.Subscription = &subscriptionAttrs{
			PlanType:       st.Subscription.PlanType,
			BillingCycle:   st.Subscription.BillingCycle,
			MaxDiveCenters: subscription.PlanLimit(st),
			PeriodEnd:      st.Subscription.PeriodEnd,
			Status:         st.Subscription.Status,
		}
	}
	jsonapi.RenderOne(w, http.StatusOK, jsonapi.ResourceObject{
		Type:       "subscription_status",
		ID:         id.UserID,
		Attributes: attrs,
	})
}
