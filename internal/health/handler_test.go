package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/scubafy-dev/scubafy-app-sub001/internal/api/jsonapi"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (s *stubPinger) Ping(_ context.Context) error { return s.err }

func serve(h http.HandlerFunc, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestServeHealth_IgnoresDependencies(t *testing.T) {
	h := health.New(health.Check{Name: "database", Pinger: &stubPinger{err: errors.New("down")}})
	w := serve(h.ServeHealth, "/api/v1/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.api+json", w.Header().Get("Content-Type"))

	var doc struct {
		Data jsonapi.ResourceObject `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	attrs := doc.Data.Attributes.(map[string]any)
	assert.Equal(t, "scubafy", attrs["service"])
	assert.Equal(t, "ok", attrs["status"])
}

func TestServeReady_AllChecksPass(t *testing.T) {
	h := health.New(
		health.Check{Name: "database", Pinger: &stubPinger{}},
		health.Check{Name: "schema", Pinger: &stubPinger{}},
	)
	w := serve(h.ServeReady, "/api/v1/ready")

	require.Equal(t, http.StatusOK, w.Code)
	var doc struct {
		Data struct {
			Attributes struct {
				Checks map[string]string `json:"checks"`
			} `json:"attributes"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, map[string]string{"database": "ok", "schema": "ok"}, doc.Data.Attributes.Checks)
}

func TestServeReady_ReportsEachFailure(t *testing.T) {
	h := health.New(
		health.Check{Name: "database", Pinger: &stubPinger{}},
		health.Check{Name: "schema", Pinger: &stubPinger{err: errors.New("missing table dive_centers")}},
		health.Check{Name: "queue"},
	)
	w := serve(h.ServeReady, "/api/v1/ready")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var doc jsonapi.ErrorDocument
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	require.Len(t, doc.Errors, 2)
	assert.Equal(t, "dependency_unavailable", doc.Errors[0].Code)
	assert.Equal(t, "schema", doc.Errors[0].Source.Parameter)
	assert.Equal(t, "queue: not initialised", doc.Errors[1].Detail)
}

func TestServeReady_NoChecks(t *testing.T) {
	w := serve(health.New().ServeReady, "/api/v1/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
