package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/scubafy-dev/scubafy-app-sub001/internal/api"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/api/handler"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/api/middleware"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/db"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/dbtest"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/divecenter"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/health"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/model"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/onboarding"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/staff"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/subscription"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "router-test-secret"

type document struct {
	Data struct {
		ID         string         `json:"id"`
		Attributes map[string]any `json:"attributes"`
	} `json:"data"`
	Errors []struct {
		Code   string `json:"code"`
		Detail string `json:"detail"`
	} `json:"errors"`
	Meta map[string]any `json:"meta"`
}

func setupServer(t *testing.T) (*httptest.Server, *gorm.DB) {
	t.Helper()
	gdb := dbtest.New(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	gate := subscription.NewGate(gdb, log)
	staffSvc := staff.NewService(gdb, log)
	flow := onboarding.NewFlow(gdb, staffSvc, log, onboarding.DefaultRedirect)
	centers := divecenter.NewService(gdb, gate, log)

	mux := http.NewServeMux()
	api.RegisterRoutes(mux, api.Handlers{
		Health:       health.New(health.Check{Name: "database", Pinger: db.NewPinger(gdb)}),
		Auth:         handler.NewAuthHandler(gdb, gate, log, testSecret, time.Hour, 24*time.Hour),
		Subscription: handler.NewSubscriptionHandler(gate, log),
		Onboarding:   handler.NewOnboardingHandler(flow, log, testSecret, time.Hour),
		Staff:        handler.NewStaffHandler(staffSvc, log, testSecret, time.Hour),
		DiveCenters:  handler.NewDiveCenterHandler(centers, log),
	}, api.Deps{
		DB:          gdb,
		Gate:        gate,
		Logger:      log,
		JWTSecret:   testSecret,
		StaffLimits: middleware.NewRateLimiter(600, 100),
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, gdb
}

func call(t *testing.T, ts *httptest.Server, method, path, token string, body any) (int, document) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, rdr)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var doc document
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &doc), string(raw))
	}
	return res.StatusCode, doc
}

func register(t *testing.T, ts *httptest.Server, email string) string {
	t.Helper()
	status, doc := call(t, ts, http.MethodPost, "/api/v1/auth/register", "",
		map[string]string{"email": email, "password": "correct-horse", "name": "Diver"})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, true, doc.Meta["role_required"])
	return doc.Data.Attributes["access_token"].(string)
}

func login(t *testing.T, ts *httptest.Server, email string) (int, document) {
	t.Helper()
	return call(t, ts, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"email": email, "password": "correct-horse"})
}

func becomeManager(t *testing.T, ts *httptest.Server, token string) string {
	t.Helper()
	status, doc := call(t, ts, http.MethodPost, "/api/v1/onboarding/manager", token,
		map[string]string{"callbackUrl": "/centers"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(onboarding.StateManagerGranted), doc.Data.Attributes["state"])
	assert.Equal(t, "/centers", doc.Data.Attributes["redirect"])
	return doc.Data.Attributes["accessToken"].(string)
}

func TestLoginBlocksExpiredManager(t *testing.T) {
	ts, gdb := setupServer(t)
	register(t, ts, "lapsed@reef.test")
	require.NoError(t, gdb.Model(&model.User{}).Where("email = ?", "lapsed@reef.test").
		Update("role", model.RoleManager).Error)
	dbtest.Subscription(t, gdb, "lapsed@reef.test", model.StatusPaid,
		time.Now().Add(-time.Hour), time.Now().Add(-48*time.Hour))

	status, doc := login(t, ts, "lapsed@reef.test")
	require.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "/auth/error?error=SubscriptionExpired", doc.Meta["redirect"])

	var u model.User
	require.NoError(t, gdb.Where("email = ?", "lapsed@reef.test").First(&u).Error)
	assert.Nil(t, u.Role, "expired manager role is revoked")

	// The role is gone, so the next sign-in is no longer gated.
	status, doc = login(t, ts, "lapsed@reef.test")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, doc.Meta["role_required"])
}

func TestSubscriptionCheckOwnEmailOnly(t *testing.T) {
	ts, gdb := setupServer(t)
	token := register(t, ts, "free@reef.test")
	dbtest.Subscription(t, gdb, "free@reef.test", model.StatusFree,
		time.Now().Add(-time.Hour), time.Now())

	status, doc := call(t, ts, http.MethodPost, "/api/v1/subscription/check", token,
		map[string]string{"email": "free@reef.test"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, doc.Data.Attributes["hasPaidSubscription"])
	assert.Equal(t, true, doc.Data.Attributes["hasFreeSubscription"])
	assert.NotNil(t, doc.Data.Attributes["subscription"])

	status, _ = call(t, ts, http.MethodPost, "/api/v1/subscription/check", token,
		map[string]string{"email": "someone@else.test"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = call(t, ts, http.MethodPost, "/api/v1/subscription/check", "",
		map[string]string{"email": "free@reef.test"})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestManagerRoutesRequireSubscription(t *testing.T) {
	ts, _ := setupServer(t)
	token := becomeManager(t, ts, register(t, ts, "nosub@reef.test"))

	status, doc := call(t, ts, http.MethodGet, "/api/v1/dive-centers", token, nil)
	require.Equal(t, http.StatusForbidden, status)
	require.Len(t, doc.Errors, 1)
	assert.Equal(t, string(subscription.ReasonNoSubscription), doc.Errors[0].Code)
	assert.Equal(t, "/auth/error?error=NoSubscription", doc.Meta["redirect"])
}

func TestDiveCenterCreateAndDelete(t *testing.T) {
	ts, gdb := setupServer(t)
	token := becomeManager(t, ts, register(t, ts, "owner@reef.test"))
	dbtest.Subscription(t, gdb, "owner@reef.test", model.StatusFree, time.Now(), time.Now())

	status, doc := call(t, ts, http.MethodPost, "/api/v1/dive-centers", token,
		map[string]string{"name": "Blue Hole", "location": "Dahab"})
	require.Equal(t, http.StatusCreated, status)
	centerID := doc.Data.ID
	require.NotEmpty(t, centerID)

	// Free plan allows one center.
	status, doc = call(t, ts, http.MethodPost, "/api/v1/dive-centers", token,
		map[string]string{"name": "Second"})
	require.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "plan_limit_reached", doc.Errors[0].Code)

	status, _ = call(t, ts, http.MethodPost, "/api/v1/dive-centers/"+centerID+"/staff", token,
		map[string]any{"fullName": "Ana Reef", "permissions": []string{"trips:read"}})
	require.Equal(t, http.StatusCreated, status)

	status, doc = call(t, ts, http.MethodDelete, "/api/v1/dive-centers/"+centerID, token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, doc.Data.Attributes["success"])
	assert.Equal(t, "", doc.Data.Attributes["nextCurrentId"])
	assert.Empty(t, doc.Data.Attributes["diveCenters"])
	assert.Zero(t, dbtest.Count(t, gdb, &model.Staff{}))

	status, doc = call(t, ts, http.MethodDelete, "/api/v1/dive-centers/"+centerID, token, nil)
	require.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, divecenter.MessageNotFound, doc.Errors[0].Detail)
}

func TestStaffVerifyIssuesStaffSession(t *testing.T) {
	ts, gdb := setupServer(t)
	owner := dbtest.User(t, gdb, "boss@reef.test", true)
	center := dbtest.Center(t, gdb, owner.ID, "Coral Garden")
	dbtest.Staff(t, gdb, &center.ID, "AB12CD", model.StaffActive, "trips:read")

	token := register(t, ts, "ana@reef.test")

	status, doc := call(t, ts, http.MethodPost, "/api/v1/staff/verify", token,
		map[string]string{"staffCode": "ZZZZZZ", "userEmail": "ana@reef.test"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, doc.Data.Attributes["success"])
	assert.Equal(t, staff.MessageInvalidCode, doc.Data.Attributes["message"])
	assert.Nil(t, doc.Data.Attributes["accessToken"])

	status, doc = call(t, ts, http.MethodPost, "/api/v1/staff/verify", token,
		map[string]string{"staffCode": "AB12CD", "userEmail": "ana@reef.test"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, doc.Data.Attributes["success"])
	staffToken, ok := doc.Data.Attributes["accessToken"].(string)
	require.True(t, ok)

	// A plain user token is not a staff session.
	status, _ = call(t, ts, http.MethodGet, "/api/v1/staff/session", token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, doc = call(t, ts, http.MethodGet, "/api/v1/staff/session", staffToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "AB12CD", doc.Data.Attributes["staffCode"])
}

func TestUnknownRouteIs404(t *testing.T) {
	ts, _ := setupServer(t)
	res, err := ts.Client().Get(ts.URL + "/nope")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}
