// Package subscription decides whether a user's billing state backs the
// manager role, and revokes the role when a paid period has lapsed.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/scubafy-dev/scubafy-app-sub001/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/gorm"
)

// Reason names why access was denied. The zero value means granted.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonNoSubscription      Reason = "NoSubscription"
	ReasonSubscriptionExpired Reason = "SubscriptionExpired"
)

// Messages returned alongside a denial.
const (
	MessageNoSubscription = "No active subscription found"
	MessageExpired        = "Subscription has expired"
)

var (
	// ErrEmailRequired is returned before any query when the email is blank.
	ErrEmailRequired = errors.New("email is required")
	// ErrLookupFailed wraps database errors from the subscription lookup.
	ErrLookupFailed = errors.New("subscription lookup failed")
)

// Status is the outcome of one gate evaluation.
type Status struct {
	HasPaid      bool
	HasFree      bool
	Subscription *model.UserSubscription
	Reason       Reason
	Message      string
}

// Granted reports whether the evaluated subscription backs the manager role.
func (s *Status) Granted() bool { return s.HasPaid || s.HasFree }

// Gate evaluates subscriptions against the current time.
type Gate struct {
	db        *gorm.DB
	logger    *slog.Logger
	now       func() time.Time
	decisions metric.Int64Counter
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock replaces time.Now for expiry comparisons.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// NewGate returns a Gate backed by db.
func NewGate(db *gorm.DB, logger *slog.Logger, opts ...Option) *Gate {
	g := &Gate{db: db, logger: logger, now: time.Now}
	for _, o := range opts {
		o(g)
	}
	counter, err := otel.Meter("scubafy/subscription").Int64Counter(
		"subscription.gate.decisions",
		metric.WithDescription("Subscription gate decisions by reason"),
	)
	if err != nil {
		logger.Warn("subscription: register decision counter", "err", err)
	}
	g.decisions = counter
	return g
}

// Check evaluates the most recent access-granting subscription for email.
// An expired paid or active subscription revokes the user's manager role;
// a failed revocation is logged and the expiry is still reported.
func (g *Gate) Check(ctx context.Context, email string) (*Status, error) {
	if email == "" {
		return nil, ErrEmailRequired
	}

	ctx, span := otel.Tracer("scubafy/subscription").Start(ctx, "subscription.Check")
	defer span.End()

	var sub model.UserSubscription
	err := g.db.WithContext(ctx).
		Where("customer_email = ? AND status IN ?", email, model.AccessGrantingStatuses()).
		Order("created_at DESC").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		g.record(ctx, ReasonNoSubscription)
		return &Status{Reason: ReasonNoSubscription, Message: MessageNoSubscription}, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}

	if sub.Status == model.StatusFree {
		g.record(ctx, ReasonNone)
		return &Status{HasFree: true, Subscription: &sub}, nil
	}

	if sub.ExpiredAt(g.now()) {
		if err := g.revoke(ctx, email); err != nil {
			g.logger.ErrorContext(ctx, "subscription: revoke manager role", "email", email, "err", err)
		}
		g.record(ctx, ReasonSubscriptionExpired)
		return &Status{Subscription: &sub, Reason: ReasonSubscriptionExpired, Message: MessageExpired}, nil
	}

	g.record(ctx, ReasonNone)
	return &Status{HasPaid: true, Subscription: &sub}, nil
}

// SignIn gates a sign-in attempt. Only users whose stored role is manager are
// evaluated. A non-empty redirect means the sign-in must not proceed.
func (g *Gate) SignIn(ctx context.Context, user *model.User) (string, error) {
	if !user.IsManager() {
		return "", nil
	}
	st, err := g.Check(ctx, user.Email)
	if err != nil {
		return "", err
	}
	if st.Granted() {
		return "", nil
	}
	return ErrorRedirect(st.Reason), nil
}

// ErrorRedirect builds the auth error path for a denial reason.
func ErrorRedirect(r Reason) string {
	return "/auth/error?error=" + url.QueryEscape(string(r))
}

// PlanLimit returns how many dive centers the evaluated subscription allows.
func PlanLimit(st *Status) int {
	if st == nil || st.Subscription == nil || st.HasFree {
		return 1
	}
	if st.Subscription.MaxDiveCenters <= 0 {
		return 1
	}
	return st.Subscription.MaxDiveCenters
}

// SweepExpired re-evaluates every manager and returns how many were
// downgraded because their subscription had lapsed.
func (g *Gate) SweepExpired(ctx context.Context) (int, error) {
	var emails []string
	if err := g.db.WithContext(ctx).Model(&model.User{}).
		Where("role = ?", model.RoleManager).
		Pluck("email", &emails).Error; err != nil {
		return 0, fmt.Errorf("list managers: %w", err)
	}

	downgraded := 0
	for _, email := range emails {
		st, err := g.Check(ctx, email)
		if err != nil {
			return downgraded, err
		}
		if st.Reason == ReasonSubscriptionExpired {
			downgraded++
		}
	}
	return downgraded, nil
}

func (g *Gate) revoke(ctx context.Context, email string) error {
	return g.db.WithContext(ctx).Model(&model.User{}).
		Where("email = ?", email).
		Update("role", gorm.Expr("NULL")).Error
}

func (g *Gate) record(ctx context.Context, r Reason) {
	if g.decisions == nil {
		return
	}
	reason := string(r)
	if reason == "" {
		reason = "Granted"
	}
	g.decisions.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
