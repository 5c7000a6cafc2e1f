package model_test

import (
	"testing"
	"time"

	"github.com/scubafy-dev/scubafy-app-sub001/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSubscriptionStatus(t *testing.T) {
	cases := map[string]model.SubscriptionStatus{
		"paid":     model.StatusPaid,
		"free":     model.StatusFree,
		"active":   model.StatusActive,
		"canceled": model.StatusOther,
		"":         model.StatusOther,
		"PAID":     model.StatusOther,
	}
	for in, want := range cases {
		assert.Equal(t, want, model.ParseSubscriptionStatus(in), "input %q", in)
	}
}

func TestSubscriptionStatus_GrantsAccess(t *testing.T) {
	assert.True(t, model.StatusPaid.GrantsAccess())
	assert.True(t, model.StatusFree.GrantsAccess())
	assert.True(t, model.StatusActive.GrantsAccess())
	assert.False(t, model.StatusOther.GrantsAccess())
}

func TestSubscriptionStatus_Scan(t *testing.T) {
	var s model.SubscriptionStatus
	require.NoError(t, s.Scan([]byte("active")))
	assert.Equal(t, model.StatusActive, s)
	require.NoError(t, s.Scan("trialing"))
	assert.Equal(t, model.StatusOther, s)
	require.Error(t, s.Scan(42))
}

func TestUserSubscription_ExpiredAt(t *testing.T) {
	end := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	paid := &model.UserSubscription{Status: model.StatusPaid, PeriodEnd: end.Unix()}
	assert.False(t, paid.ExpiredAt(end))
	assert.True(t, paid.ExpiredAt(end.Add(time.Millisecond)))

	free := &model.UserSubscription{Status: model.StatusFree, PeriodEnd: 0}
	assert.False(t, free.ExpiredAt(end))
}

func TestStaffStatus_Valid(t *testing.T) {
	assert.True(t, model.StaffActive.Valid())
	assert.True(t, model.StaffFreelance.Valid())
	assert.False(t, model.StaffStatus("retired").Valid())
}
