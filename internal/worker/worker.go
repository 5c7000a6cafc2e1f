// Package worker bootstraps the River job queue and the periodic
// expired-subscription sweep.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
)

// Sweeper downgrades managers whose subscription has lapsed.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// SubscriptionSweepArgs schedules one pass of the expired-manager sweep.
type SubscriptionSweepArgs struct{}

// Kind returns the unique job type identifier for sweep jobs.
func (SubscriptionSweepArgs) Kind() string { return "subscription_sweep" }

type sweepWorker struct {
	river.WorkerDefaults[SubscriptionSweepArgs]
	sweeper Sweeper
	log     *slog.Logger
}

func (w *sweepWorker) Work(ctx context.Context, _ *river.Job[SubscriptionSweepArgs]) error {
	n, err := w.sweeper.SweepExpired(ctx)
	if err != nil {
		return fmt.Errorf("sweep expired subscriptions: %w", err)
	}
	w.log.InfoContext(ctx, "subscription sweep finished", "downgraded", n)
	return nil
}

// Queue is the interface exposed by both the real River client and noopQueue.
type Queue interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Client wraps river.Client and exposes a Start/Stop lifecycle.
type Client struct {
	client *river.Client[pgx.Tx]
	log    *slog.Logger
}

// Start begins processing queued jobs.
func (c *Client) Start(ctx context.Context) error { return c.client.Start(ctx) }

// Stop gracefully shuts down the worker client.
func (c *Client) Stop(ctx context.Context) error { return c.client.Stop(ctx) }

// noopQueue is used when River is unavailable (e.g. DB_DRIVER=sqlite).
type noopQueue struct{ log *slog.Logger }

func (n *noopQueue) Start(_ context.Context) error {
	n.log.Info("worker queue disabled (sqlite driver; River requires postgres)")
	return nil
}
func (n *noopQueue) Stop(_ context.Context) error { return nil }

// Options configures the queue.
type Options struct {
	Driver        string
	Concurrency   int
	SweepInterval time.Duration
	Sweeper       Sweeper
}

// New creates a queue implementation appropriate for the given driver.
//   - "postgres": returns a River client backed by pool that runs the
//     subscription sweep every SweepInterval.
//   - anything else: returns a no-op queue that logs a startup notice.
//
// pool may be nil when driver != "postgres".
func New(pool *pgxpool.Pool, opts Options, log *slog.Logger) (Queue, error) {
	if opts.Driver != "postgres" {
		return &noopQueue{log: log}, nil
	}
	workers := river.NewWorkers()
	river.AddWorker(workers, &sweepWorker{sweeper: opts.Sweeper, log: log})

	cfg := &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: opts.Concurrency},
		},
		Workers: workers,
		Logger:  log,
	}
	if opts.SweepInterval > 0 {
		cfg.PeriodicJobs = []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(opts.SweepInterval),
				func() (river.JobArgs, *river.InsertOpts) {
					return SubscriptionSweepArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
		}
	}

	client, err := river.NewClient(riverpgxv5.New(pool), cfg)
	if err != nil {
		return nil, fmt.Errorf("create river client: %w", err)
	}
	return &Client{client: client, log: log}, nil
}

// MigrateRiver runs River's built-in schema migrations against the given pool.
// Only call this when DB_DRIVER=postgres.
func MigrateRiver(ctx context.Context, db *pgxpool.Pool) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(db), nil)
	if err != nil {
		return fmt.Errorf("create river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return fmt.Errorf("run river migrations: %w", err)
	}
	return nil
}
