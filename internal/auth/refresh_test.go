package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/scubafy-dev/scubafy-app-sub001/internal/auth"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshStore_RotateAndRevoke(t *testing.T) {
	gdb := dbtest.New(t)
	u := dbtest.User(t, gdb, "owner@example.com", true)
	store := auth.NewRefreshStore(gdb, time.Hour)
	ctx := context.Background()

	raw, err := store.IssueRefreshToken(ctx, u.ID)
	require.NoError(t, err)

	next, userID, err := store.RotateRefreshToken(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, u.ID, userID)
	assert.NotEqual(t, raw, next)

	// The rotated-out token cannot be reused.
	_, _, err = store.RotateRefreshToken(ctx, raw)
	assert.ErrorIs(t, err, auth.ErrRefreshTokenInvalid)

	require.NoError(t, store.RevokeRefreshToken(ctx, next))
	_, _, err = store.RotateRefreshToken(ctx, next)
	assert.ErrorIs(t, err, auth.ErrRefreshTokenInvalid)
}

func TestRefreshStore_ExpiredToken(t *testing.T) {
	gdb := dbtest.New(t)
	u := dbtest.User(t, gdb, "owner@example.com", false)
	store := auth.NewRefreshStore(gdb, -time.Minute)

	raw, err := store.IssueRefreshToken(context.Background(), u.ID)
	require.NoError(t, err)

	_, _, err = store.RotateRefreshToken(context.Background(), raw)
	assert.ErrorIs(t, err, auth.ErrRefreshTokenInvalid)
}
