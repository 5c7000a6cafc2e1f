// Package divecenter owns the dive-center tenant root: creation under a
// subscription plan limit, listing, reporting and cascading deletion.
package divecenter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/scubafy-dev/scubafy-app-sub001/internal/auth"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/model"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/observability"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/subscription"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/gorm"
)

// Client-facing messages. Causes are logged, never returned.
const (
	MessageNotFound     = "Dive center not found or access denied"
	MessageDeleteFailed = "Failed to delete dive center"
)

var (
	ErrUnauthenticated  = errors.New("authentication required")
	ErrCenterIDRequired = errors.New("dive center id is required")
	ErrNameRequired     = errors.New("dive center name is required")
	ErrCenterNotFound   = errors.New("dive center not found or access denied")
	ErrDeleteFailed     = errors.New("failed to delete dive center")
	ErrNoSubscription   = errors.New("an active subscription is required")
	ErrPlanLimitReached = errors.New("dive center limit for current plan reached")
)

// SubscriptionChecker evaluates a user's subscription.
type SubscriptionChecker interface {
	Check(ctx context.Context, email string) (*subscription.Status, error)
}

// CreateInput describes a new dive center.
type CreateInput struct {
	Name     string
	Location string
	Email    string
	Contact  string
}

// DeleteResult is returned after a successful cascade. NextCurrentID is the
// first remaining center, or empty when none are left.
type DeleteResult struct {
	DiveCenters   []model.DiveCenter
	NextCurrentID string
	Removed       map[string]int64
}

// Service implements dive-center workflows.
type Service struct {
	db        *gorm.DB
	subs      SubscriptionChecker
	logger    *slog.Logger
	deletions metric.Int64Counter
}

// NewService returns a Service backed by db.
func NewService(db *gorm.DB, subs SubscriptionChecker, logger *slog.Logger) *Service {
	counter, err := otel.Meter("scubafy/divecenter").Int64Counter(
		"divecenter.deletions",
		metric.WithDescription("Dive center cascade deletions by outcome"),
	)
	if err != nil {
		logger.Warn("divecenter: register deletion counter", "err", err)
	}
	return &Service{db: db, subs: subs, logger: logger, deletions: counter}
}

// Create adds a center owned by id after checking the subscription and the
// plan's center limit.
func (s *Service) Create(ctx context.Context, id auth.Identity, in CreateInput) (*model.DiveCenter, error) {
	if !id.Authenticated() {
		return nil, ErrUnauthenticated
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	st, err := s.subs.Check(ctx, id.Email)
	if err != nil {
		return nil, err
	}
	if !st.Granted() {
		return nil, ErrNoSubscription
	}
	limit := subscription.PlanLimit(st)

	center := &model.DiveCenter{
		Name:     name,
		Location: in.Location,
		Email:    in.Email,
		Contact:  in.Contact,
		OwnerID:  id.UserID,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owned int64
		if err := tx.Model(&model.DiveCenter{}).Where("owner_id = ?", id.UserID).Count(&owned).Error; err != nil {
			return fmt.Errorf("count owned centers: %w", err)
		}
		if owned >= int64(limit) {
			return ErrPlanLimitReached
		}
		if err := tx.Create(center).Error; err != nil {
			return fmt.Errorf("insert dive center: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "dive center created", "dive_center_id", center.ID, "owner_id", id.UserID)
	return center, nil
}

// List returns the centers owned by id, oldest first.
func (s *Service) List(ctx context.Context, id auth.Identity) ([]model.DiveCenter, error) {
	if !id.Authenticated() {
		return nil, ErrUnauthenticated
	}
	return listOwned(s.db.WithContext(ctx), id.UserID)
}

// Delete removes a center owned by id together with every row that
// references it. Either everything is removed or nothing is.
func (s *Service) Delete(ctx context.Context, id auth.Identity, centerID string) (*DeleteResult, error) {
	if !id.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if centerID == "" {
		return nil, ErrCenterIDRequired
	}

	ctx, span := otel.Tracer("scubafy/divecenter").Start(ctx, "divecenter.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("dive_center.id", centerID))

	plan := newCascadePlan(centerID)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.DiveCenter{}).
			Where("id = ? AND owner_id = ?", centerID, id.UserID).
			Count(&n).Error; err != nil {
			return fmt.Errorf("look up dive center: %w", err)
		}
		if n == 0 {
			return ErrCenterNotFound
		}
		if err := plan.collect(tx); err != nil {
			return err
		}
		return plan.execute(ctx, tx)
	})
	if errors.Is(err, ErrCenterNotFound) {
		s.recordDeletion(ctx, "not_found")
		return nil, err
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cascade failed")
		s.logger.ErrorContext(ctx, "dive center cascade failed", "dive_center_id", centerID, "owner_id", id.UserID, "err", err)
		observability.CaptureError(ctx, err)
		s.recordDeletion(ctx, "failed")
		return nil, ErrDeleteFailed
	}
	s.recordDeletion(ctx, "deleted")
	s.logger.InfoContext(ctx, "dive center deleted", "dive_center_id", centerID, "owner_id", id.UserID, "removed", plan.removed)

	remaining, err := listOwned(s.db.WithContext(ctx), id.UserID)
	if err != nil {
		return nil, err
	}
	res := &DeleteResult{DiveCenters: remaining, Removed: plan.removed}
	if len(remaining) > 0 {
		res.NextCurrentID = remaining[0].ID
	}
	return res, nil
}

func (s *Service) recordDeletion(ctx context.Context, outcome string) {
	if s.deletions == nil {
		return
	}
	s.deletions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func listOwned(db *gorm.DB, ownerID string) ([]model.DiveCenter, error) {
	centers := []model.DiveCenter{}
	if err := db.Where("owner_id = ?", ownerID).Order("created_at ASC, id ASC").Find(&centers).Error; err != nil {
		return nil, fmt.Errorf("list dive centers: %w", err)
	}
	return centers, nil
}
