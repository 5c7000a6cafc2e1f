package auth_test

import (
	"testing"
	"time"

	"github.com/scubafy-dev/scubafy-app-sub001/internal/auth"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-at-least-32-bytes-long"

func TestIssueAndParseAccessToken(t *testing.T) {
	id := auth.Identity{UserID: "user-1", Email: "user@example.com", Role: model.RoleManager}
	token, err := auth.IssueAccessToken(id, testSecret, 15*time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := auth.ParseAccessToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, id, claims.Identity())
	assert.True(t, claims.Identity().IsManager())
	assert.False(t, claims.Identity().IsStaff())
}

func TestIssueAccessToken_StaffSession(t *testing.T) {
	id := auth.Identity{
		UserID:       "user-2",
		Email:        "diver@example.com",
		StaffID:      "staff-1",
		DiveCenterID: "center-1",
		Permissions:  []string{"customers:read", "trips:write"},
	}
	token, err := auth.IssueAccessToken(id, testSecret, 15*time.Minute)
	require.NoError(t, err)

	claims, err := auth.ParseAccessToken(token, testSecret)
	require.NoError(t, err)
	got := claims.Identity()
	assert.True(t, got.IsStaff())
	assert.False(t, got.IsManager())
	assert.Equal(t, "center-1", got.DiveCenterID)
	assert.True(t, got.HasPermission("trips:write"))
	assert.False(t, got.HasPermission("finance:read"))
}

func TestParseAccessToken_ExpiredToken(t *testing.T) {
	// Issue a token with a -1 minute TTL so it is already expired.
	token, err := auth.IssueAccessToken(auth.Identity{UserID: "user-1"}, testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = auth.ParseAccessToken(token, testSecret)
	require.Error(t, err)
}

func TestParseAccessToken_WrongSecret(t *testing.T) {
	token, err := auth.IssueAccessToken(auth.Identity{UserID: "user-1"}, testSecret, 15*time.Minute)
	require.NoError(t, err)

	_, err = auth.ParseAccessToken(token, "wrong-secret")
	require.Error(t, err)
}

func TestParseAccessToken_Garbage(t *testing.T) {
	_, err := auth.ParseAccessToken("not.a.jwt", testSecret)
	require.Error(t, err)
}

func TestIdentity_Authenticated(t *testing.T) {
	assert.False(t, auth.Identity{}.Authenticated())
	assert.True(t, auth.Identity{UserID: "u"}.Authenticated())
}
