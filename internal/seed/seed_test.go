package seed_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/scubafy-dev/scubafy-app-sub001/internal/dbtest"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/model"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/seed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newNullLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestEnsureOwner_CreatesManagerWithFreePlan(t *testing.T) {
	gdb := dbtest.New(t)
	opts := seed.OwnerOptions{Email: "owner@example.com", Password: "my-supplied-password"}

	require.NoError(t, seed.EnsureOwner(context.Background(), gdb, opts, newNullLogger()))

	var u model.User
	require.NoError(t, gdb.First(&u, "email = ?", "owner@example.com").Error)
	assert.True(t, u.IsManager())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("my-supplied-password")))

	var sub model.UserSubscription
	require.NoError(t, gdb.First(&sub, "customer_email = ?", "owner@example.com").Error)
	assert.Equal(t, model.StatusFree, sub.Status)
}

func TestEnsureOwner_Idempotent(t *testing.T) {
	gdb := dbtest.New(t)
	opts := seed.OwnerOptions{Email: "owner@example.com", Password: "my-supplied-password"}

	require.NoError(t, seed.EnsureOwner(context.Background(), gdb, opts, newNullLogger()))
	require.NoError(t, seed.EnsureOwner(context.Background(), gdb, opts, newNullLogger()))

	assert.Equal(t, int64(1), dbtest.Count(t, gdb, &model.User{}))
	assert.Equal(t, int64(1), dbtest.Count(t, gdb, &model.UserSubscription{}))
}

func TestEnsureOwner_DisabledWithoutEmail(t *testing.T) {
	gdb := dbtest.New(t)
	require.NoError(t, seed.EnsureOwner(context.Background(), gdb, seed.OwnerOptions{}, newNullLogger()))
	assert.Zero(t, dbtest.Count(t, gdb, &model.User{}))
}
