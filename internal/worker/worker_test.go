package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/riverqueue/river"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	n     int
	err   error
	calls int
}

func (f *fakeSweeper) SweepExpired(context.Context) (int, error) {
	f.calls++
	return f.n, f.err
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestSweepWorker(t *testing.T) {
	s := &fakeSweeper{n: 2}
	w := &sweepWorker{sweeper: s, log: discard}
	require.NoError(t, w.Work(context.Background(), &river.Job[SubscriptionSweepArgs]{}))
	assert.Equal(t, 1, s.calls)

	s.err = errors.New("db down")
	assert.Error(t, w.Work(context.Background(), &river.Job[SubscriptionSweepArgs]{}))
}

func TestNew_SQLiteIsNoop(t *testing.T) {
	q, err := New(nil, Options{Driver: "sqlite", Sweeper: &fakeSweeper{}}, discard)
	require.NoError(t, err)
	require.NoError(t, q.Start(context.Background()))
	require.NoError(t, q.Stop(context.Background()))
}

func TestSubscriptionSweepArgs_Kind(t *testing.T) {
	assert.Equal(t, "subscription_sweep", SubscriptionSweepArgs{}.Kind())
}
