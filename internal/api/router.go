// Package api wires all API routes onto the provided ServeMux.
package api

import (
	"log/slog"
	"net/http"

	"github.com/scubafy-dev/scubafy-app-sub001/internal/api/handler"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/api/middleware"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/health"
	"gorm.io/gorm"
)

// Handlers groups the resource handlers mounted by RegisterRoutes.
type Handlers struct {
	Health       *health.Handler
	Auth         *handler.AuthHandler
	Subscription *handler.SubscriptionHandler
	Onboarding   *handler.OnboardingHandler
	Staff        *handler.StaffHandler
	DiveCenters  *handler.DiveCenterHandler
}

// Deps are the shared dependencies of the route middleware.
type Deps struct {
	DB          *gorm.DB
	Gate        middleware.SubscriptionChecker
	Logger      *slog.Logger
	JWTSecret   string
	StaffLimits *middleware.RateLimiter
}

// RegisterRoutes registers all application routes on mux.
func RegisterRoutes(mux *http.ServeMux, h Handlers, d Deps) {
	// Public health endpoints (no auth required)
	mux.HandleFunc("GET /api/v1/health", h.Health.ServeHealth)
	mux.HandleFunc("GET /api/v1/ready", h.Health.ServeReady)

	// Auth endpoints (no auth required)
	mux.HandleFunc("POST /api/v1/auth/register", h.Auth.Register)
	mux.HandleFunc("POST /api/v1/auth/login", h.Auth.Login)
	mux.HandleFunc("POST /api/v1/auth/refresh", h.Auth.Refresh)

	protected := middleware.RequireAuth(d.JWTSecret)
	mux.Handle("POST /api/v1/auth/logout", protected(http.HandlerFunc(h.Auth.Logout)))

	// Any signed-in user.
	mux.Handle("POST /api/v1/subscription/check", protected(http.HandlerFunc(h.Subscription.Check)))
	mux.Handle("GET /api/v1/onboarding", protected(http.HandlerFunc(h.Onboarding.Show)))
	mux.Handle("POST /api/v1/onboarding/manager", protected(http.HandlerFunc(h.Onboarding.SelectManager)))

	// Staff-code endpoints are rate limited per client.
	limited := func(fn http.HandlerFunc) http.Handler {
		return d.StaffLimits.Handler(protected(fn))
	}
	mux.Handle("POST /api/v1/onboarding/staff", limited(h.Onboarding.SelectStaff))
	mux.Handle("POST /api/v1/staff/verify", limited(h.Staff.Verify))

	// Manager routes re-run the subscription gate on every request.
	manager := func(fn http.HandlerFunc) http.Handler {
		return protected(middleware.RequireManager(d.DB, d.Gate, d.Logger)(fn))
	}
	mux.Handle("GET /api/v1/dive-centers", manager(h.DiveCenters.List))
	mux.Handle("POST /api/v1/dive-centers", manager(h.DiveCenters.Create))
	mux.Handle("GET /api/v1/dive-centers/{id}/summary", manager(h.DiveCenters.Summary))
	mux.Handle("DELETE /api/v1/dive-centers/{id}", manager(h.DiveCenters.Delete))
	mux.Handle("POST /api/v1/dive-centers/{id}/staff", manager(h.Staff.Create))
	mux.Handle("GET /api/v1/dive-centers/{id}/staff", manager(h.Staff.List))

	// Staff sessions read their own binding.
	mux.Handle("GET /api/v1/staff/session", protected(
		middleware.RequireStaff()(http.HandlerFunc(h.Staff.Session)),
	))

	// Catch-all 404
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
}
