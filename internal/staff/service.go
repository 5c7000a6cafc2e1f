// Package staff manages dive-center staff records and verifies the staff
// codes users present to bind their session to a dive center.
package staff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/scubafy-dev/scubafy-app-sub001/internal/auth"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/model"
	"gorm.io/gorm"
)

// Failure messages carried by an unsuccessful Verification.
const (
	MessageInvalidCode = "Invalid staff code or staff not found"
	MessageNoCenter    = "Staff is not assigned to any dive center"
)

var (
	ErrStaffCodeRequired = errors.New("staff code is required")
	ErrEmailRequired     = errors.New("email is required")
	ErrFullNameRequired  = errors.New("full name is required")
	ErrInvalidStatus     = errors.New("invalid staff status")
	ErrUnauthenticated   = errors.New("authentication required")
	// ErrCenterNotFound covers both a missing center and one owned by
	// someone else.
	ErrCenterNotFound = errors.New("dive center not found or access denied")
	// ErrCodeExhausted is returned when no unused code was found within the
	// retry budget.
	ErrCodeExhausted = errors.New("could not allocate a unique staff code")
	// ErrStaffRevoked means a staff session no longer matches an active
	// staff row at its dive center.
	ErrStaffRevoked = errors.New("staff access revoked")
)

// Verification is the result of checking a staff code. A failed verification
// is not an error; Message says why.
type Verification struct {
	Success    bool
	Staff      *model.Staff
	DiveCenter *model.DiveCenter
	Message    string
}

// CreateInput describes a new staff member.
type CreateInput struct {
	FullName    string
	Email       string
	Phone       string
	RoleTitle   string
	Status      model.StaffStatus
	Permissions []string
}

// Service implements staff creation and code verification.
type Service struct {
	db      *gorm.DB
	logger  *slog.Logger
	newCode func() (string, error)
}

// Option configures a Service.
type Option func(*Service)

// WithCodeGenerator replaces GenerateCode.
func WithCodeGenerator(fn func() (string, error)) Option {
	return func(s *Service) { s.newCode = fn }
}

// NewService returns a Service backed by db.
func NewService(db *gorm.DB, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{db: db, logger: logger, newCode: GenerateCode}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Verify looks up an active staff member by exact code. The email is
// required but not used to filter the lookup. Repeated calls with the same
// input return the same result.
func (s *Service) Verify(ctx context.Context, staffCode, userEmail string) (*Verification, error) {
	code := strings.TrimSpace(staffCode)
	if code == "" {
		return nil, ErrStaffCodeRequired
	}
	if strings.TrimSpace(userEmail) == "" {
		return nil, ErrEmailRequired
	}

	var st model.Staff
	err := s.db.WithContext(ctx).
		Preload("Permissions").
		Preload("DiveCenter").
		Where("staff_code = ? AND status = ?", code, model.StaffActive).
		First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Verification{Message: MessageInvalidCode}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("look up staff code: %w", err)
	}

	if st.DiveCenterID == nil || st.DiveCenter == nil {
		return &Verification{Message: MessageNoCenter}, nil
	}

	s.logger.InfoContext(ctx, "staff code verified", "staff_id", st.ID, "dive_center_id", st.DiveCenter.ID)
	return &Verification{Success: true, Staff: &st, DiveCenter: st.DiveCenter}, nil
}

// Create adds a staff member with a freshly allocated code to a center owned
// by id.
func (s *Service) Create(ctx context.Context, id auth.Identity, centerID string, in CreateInput) (*model.Staff, error) {
	if !id.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if strings.TrimSpace(in.FullName) == "" {
		return nil, ErrFullNameRequired
	}
	if in.Status == "" {
		in.Status = model.StaffActive
	}
	if !in.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	var created *model.Staff
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ownedCenter(tx, id.UserID, centerID); err != nil {
			return err
		}

		code, err := s.allocateCode(tx)
		if err != nil {
			return err
		}

		row := &model.Staff{
			FullName:     strings.TrimSpace(in.FullName),
			Email:        in.Email,
			Phone:        in.Phone,
			RoleTitle:    in.RoleTitle,
			StaffCode:    code,
			DiveCenterID: &centerID,
			Status:       in.Status,
		}
		for _, p := range in.Permissions {
			row.Permissions = append(row.Permissions, model.StaffPermission{Permission: p})
		}
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("insert staff: %w", err)
		}
		created = row
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "staff created", "staff_id", created.ID, "dive_center_id", centerID)
	return created, nil
}

// List returns the staff of a center owned by id, with permissions.
func (s *Service) List(ctx context.Context, id auth.Identity, centerID string) ([]model.Staff, error) {
	if !id.Authenticated() {
		return nil, ErrUnauthenticated
	}
	db := s.db.WithContext(ctx)
	if err := ownedCenter(db, id.UserID, centerID); err != nil {
		return nil, err
	}

	var rows []model.Staff
	if err := db.Preload("Permissions").
		Where("dive_center_id = ?", centerID).
		Order("full_name").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	return rows, nil
}

// Session reloads the staff record a staff-bound session points at. The row
// must still be active and assigned to the same dive center.
func (s *Service) Session(ctx context.Context, id auth.Identity) (*model.Staff, error) {
	if !id.IsStaff() {
		return nil, ErrStaffRevoked
	}
	var st model.Staff
	err := s.db.WithContext(ctx).
		Preload("Permissions").
		Preload("DiveCenter").
		Where("id = ? AND dive_center_id = ? AND status = ?", id.StaffID, id.DiveCenterID, model.StaffActive).
		First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStaffRevoked
	}
	if err != nil {
		return nil, fmt.Errorf("load staff session: %w", err)
	}
	return &st, nil
}

func (s *Service) allocateCode(tx *gorm.DB) (string, error) {
	for range maxCodeAttempts {
		code, err := s.newCode()
		if err != nil {
			return "", err
		}
		var n int64
		if err := tx.Model(&model.Staff{}).Where("staff_code = ?", code).Count(&n).Error; err != nil {
			return "", fmt.Errorf("check staff code: %w", err)
		}
		if n == 0 {
			return code, nil
		}
	}
	return "", ErrCodeExhausted
}

func ownedCenter(db *gorm.DB, ownerID, centerID string) error {
	if centerID == "" {
		return ErrCenterNotFound
	}
	var n int64
	if err := db.Model(&model.DiveCenter{}).
		Where("id = ? AND owner_id = ?", centerID, ownerID).
		Count(&n).Error; err != nil {
		return fmt.Errorf("look up dive center: %w", err)
	}
	if n == 0 {
		return ErrCenterNotFound
	}
	return nil
}
