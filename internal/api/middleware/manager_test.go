package middleware_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/scubafy-dev/scubafy-app-sub001/internal/api/jsonapi"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/api/middleware"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/auth"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/dbtest"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/model"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/subscription"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireManager(t *testing.T) {
	gdb := dbtest.New(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gate := subscription.NewGate(gdb, logger)

	active := dbtest.User(t, gdb, "active@x.com", true)
	dbtest.Subscription(t, gdb, active.Email, model.StatusPaid, time.Now().Add(time.Hour), time.Now())
	lapsed := dbtest.User(t, gdb, "lapsed@x.com", true)
	dbtest.Subscription(t, gdb, lapsed.Email, model.StatusPaid, time.Now().Add(-time.Hour), time.Now().Add(-48*time.Hour))
	plain := dbtest.User(t, gdb, "plain@x.com", false)

	chain := middleware.RequireAuth(secret)(middleware.RequireManager(gdb, gate, logger)(okHandler(http.StatusOK)))
	call := func(u *model.User) *httptest.ResponseRecorder {
		// The token claims manager for everyone; only the stored role counts.
		id := auth.Identity{UserID: u.ID, Email: u.Email, Role: model.RoleManager}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/dive-centers", http.NoBody)
		req.Header.Set("Authorization", "Bearer "+issueToken(t, id))
		w := httptest.NewRecorder()
		chain.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, call(active).Code)
	assert.Equal(t, http.StatusForbidden, call(plain).Code)

	w := call(lapsed)
	assert.Equal(t, http.StatusForbidden, w.Code)
	var doc jsonapi.ErrorDocument
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "SubscriptionExpired", doc.Errors[0].Code)
	assert.Equal(t, "/auth/error?error=SubscriptionExpired", doc.Meta["redirect"])

	// The lapsed manager has been downgraded, so the next request is a plain 403.
	var reloaded model.User
	require.NoError(t, gdb.First(&reloaded, "id = ?", lapsed.ID).Error)
	assert.Nil(t, reloaded.Role)
	w = call(lapsed)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "manager_required", doc.Errors[0].Code)
}
