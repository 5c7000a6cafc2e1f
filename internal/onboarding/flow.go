// Package onboarding drives the role-assignment flow a signed-in user goes
// through before reaching the dashboard: become a manager, or bind the
// session to a dive center with a staff code.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/scubafy-dev/scubafy-app-sub001/internal/auth"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/model"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/staff"
	"gorm.io/gorm"
)

// State is a step of the role-assignment flow.
type State string

const (
	StateUnassigned     State = "unassigned"
	StatePromptingRole  State = "prompting_role"
	StateManagerPending State = "manager_pending"
	StateManagerGranted State = "manager_granted"
	StateManagerDenied  State = "manager_denied"
	StateStaffPending   State = "staff_pending"
	StateStaffVerifying State = "staff_verifying"
	StateStaffGranted   State = "staff_granted"
	StateStaffDenied    State = "staff_denied"
)

// Terminal reports whether the flow stops at s.
func (s State) Terminal() bool {
	switch s {
	case StateManagerGranted, StateStaffGranted:
		return true
	}
	return false
}

// DefaultRedirect is used when no usable callback URL is supplied.
const DefaultRedirect = "/dashboard"

// ErrUnauthenticated is returned when the identity carries no user.
var ErrUnauthenticated = errors.New("authentication required")

// Outcome is the state reached by one step plus what the caller needs to
// continue. Redirect is set only for granted states.
type Outcome struct {
	State      State
	Redirect   string
	Message    string
	Staff      *model.Staff
	DiveCenter *model.DiveCenter
}

// Verifier checks staff codes.
type Verifier interface {
	Verify(ctx context.Context, staffCode, userEmail string) (*staff.Verification, error)
}

// Flow runs the role-assignment transitions.
type Flow struct {
	db              *gorm.DB
	staff           Verifier
	logger          *slog.Logger
	defaultRedirect string
}

// NewFlow returns a Flow. An empty defaultRedirect means DefaultRedirect.
func NewFlow(db *gorm.DB, v Verifier, logger *slog.Logger, defaultRedirect string) *Flow {
	if defaultRedirect == "" {
		defaultRedirect = DefaultRedirect
	}
	return &Flow{db: db, staff: v, logger: logger, defaultRedirect: defaultRedirect}
}

// Resolve reports where a freshly signed-in user stands. The stored role is
// authoritative; a manager skips the prompt.
func (f *Flow) Resolve(ctx context.Context, id auth.Identity, callbackURL string) (*Outcome, error) {
	if !id.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if id.IsStaff() {
		return &Outcome{State: StateStaffGranted, Redirect: f.sanitize(callbackURL)}, nil
	}

	var u model.User
	if err := f.db.WithContext(ctx).Select("id", "role").First(&u, "id = ?", id.UserID).Error; err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u.IsManager() {
		return &Outcome{State: StateManagerGranted, Redirect: f.sanitize(callbackURL)}, nil
	}
	return &Outcome{State: StatePromptingRole}, nil
}

// SelectManager records the manager role for the user. Repeating it is a
// no-op. The subscription gate runs on the next sign-in or check, not here.
func (f *Flow) SelectManager(ctx context.Context, id auth.Identity, callbackURL string) (*Outcome, error) {
	if !id.Authenticated() {
		return nil, ErrUnauthenticated
	}

	// ManagerPending: the role write is in flight.
	res := f.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id.UserID).
		Update("role", model.RoleManager)
	if res.Error != nil {
		f.logger.ErrorContext(ctx, "onboarding: set manager role", "user_id", id.UserID, "err", res.Error)
		return &Outcome{State: StateManagerDenied, Message: "Failed to update role"}, fmt.Errorf("set manager role: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return &Outcome{State: StateManagerDenied, Message: "User not found"}, nil
	}

	f.logger.InfoContext(ctx, "onboarding: manager role selected", "user_id", id.UserID)
	return &Outcome{State: StateManagerGranted, Redirect: f.sanitize(callbackURL)}, nil
}

// SelectStaff verifies a staff code and, on success, returns the staff and
// dive center the session should be bound to. The user's stored role is not
// changed.
func (f *Flow) SelectStaff(ctx context.Context, id auth.Identity, staffCode, callbackURL string) (*Outcome, error) {
	if !id.Authenticated() {
		return nil, ErrUnauthenticated
	}

	// StaffPending until a code is present, then StaffVerifying.
	code := strings.TrimSpace(staffCode)
	if code == "" {
		return &Outcome{State: StateStaffPending, Message: "Staff code is required"}, nil
	}

	v, err := f.staff.Verify(ctx, code, id.Email)
	if err != nil {
		return nil, err
	}
	if !v.Success {
		return &Outcome{State: StateStaffDenied, Message: v.Message}, nil
	}
	return &Outcome{
		State:      StateStaffGranted,
		Redirect:   f.sanitize(callbackURL),
		Staff:      v.Staff,
		DiveCenter: v.DiveCenter,
	}, nil
}

// sanitize keeps only same-origin relative paths.
func (f *Flow) sanitize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, `\`) {
		return f.defaultRedirect
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return f.defaultRedirect
	}
	return raw
}
