// Package health exposes the liveness and readiness endpoints.
package health

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/scubafy-dev/scubafy-app-sub001/internal/api/jsonapi"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/version"
)

const checkTimeout = 3 * time.Second

var errNotInitialised = errors.New("not initialised")

// Pinger is implemented by anything that can check a downstream dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check is one named readiness probe.
type Check struct {
	Name   string
	Pinger Pinger
}

// Handler serves /health and /ready.
type Handler struct {
	checks    []Check
	startTime time.Time
}

// New creates a Handler. Readiness requires at least one check, and every
// check must pass.
func New(checks ...Check) *Handler {
	return &Handler{checks: checks, startTime: time.Now()}
}

type healthAttrs struct {
	Service       string `json:"service"`
	Status        string `json:"status"`
	Version       string `json:"version"`
	Commit        string `json:"commit"`
	BuildDate     string `json:"build_date"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type readyAttrs struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ServeHealth handles GET /api/v1/health. It never touches dependencies.
func (h *Handler) ServeHealth(w http.ResponseWriter, r *http.Request) {
	jsonapi.RenderOne(w, http.StatusOK, jsonapi.ResourceObject{
		Type: "health",
		ID:   "scubafy",
		Attributes: healthAttrs{
			Service:       "scubafy",
			Status:        "ok",
			Version:       version.Version,
			Commit:        version.Commit,
			BuildDate:     version.Date,
			UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		},
	})
}

// ServeReady handles GET /api/v1/ready. Each failing check is reported as
// its own error object.
func (h *Handler) ServeReady(w http.ResponseWriter, r *http.Request) {
	if len(h.checks) == 0 {
		jsonapi.RenderError(w, http.StatusServiceUnavailable,
			"dependency_unavailable", "Service Unavailable", "no readiness checks registered")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	var failed []jsonapi.ErrorObject
	for _, c := range h.checks {
		err := ping(ctx, c.Pinger)
		if err == nil {
			results[c.Name] = "ok"
			continue
		}
		results[c.Name] = "unavailable"
		failed = append(failed, jsonapi.ErrorObject{
			Status: http.StatusText(http.StatusServiceUnavailable),
			Code:   "dependency_unavailable",
			Title:  "Service Unavailable",
			Detail: c.Name + ": " + err.Error(),
			Source: &jsonapi.ErrorSource{Parameter: c.Name},
		})
	}
	if len(failed) > 0 {
		jsonapi.RenderErrors(w, http.StatusServiceUnavailable, failed)
		return
	}

	jsonapi.RenderOne(w, http.StatusOK, jsonapi.ResourceObject{
		Type:       "ready",
		ID:         "scubafy",
		Attributes: readyAttrs{Status: "ok", Checks: results},
	})
}

func ping(ctx context.Context, p Pinger) error {
	if p == nil {
		return errNotInitialised
	}
	return p.Ping(ctx)
}
