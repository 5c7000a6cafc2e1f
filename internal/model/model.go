// Package model contains GORM model definitions shared across packages.
// All models are driver-agnostic: they work with both PostgreSQL and SQLite.
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the administrative role persisted on a User row. Staff access is
// never stored here; it lives in Staff rows and staff-scoped sessions.
type Role string

// RoleManager grants administrative access to the user's own dive centers.
const RoleManager Role = "manager"

// Base carries the text UUID primary key and creation time shared by every
// dive-center dependent table.
type Base struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
}

// BeforeCreate generates a UUID primary key if not set.
func (b *Base) BeforeCreate(_ *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}

// User is the GORM model for the users table.
type User struct {
	ID           string    `gorm:"type:text;primaryKey" json:"id"`
	Email        string    `gorm:"type:text;not null;uniqueIndex" json:"email"`
	Name         string    `gorm:"type:text;not null;default:''" json:"name"`
	PasswordHash string    `gorm:"type:text;not null;default:''" json:"-"`
	Role         *Role     `gorm:"type:text" json:"role"`
	CreatedAt    time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"not null" json:"updatedAt"`
}

// BeforeCreate generates a UUID primary key if not set.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// IsManager reports whether the stored role is manager.
func (u *User) IsManager() bool {
	return u.Role != nil && *u.Role == RoleManager
}

// RefreshToken is the GORM model for the refresh_tokens table.
type RefreshToken struct {
	ID        string    `gorm:"type:text;primaryKey"`
	UserID    string    `gorm:"type:text;not null;index"`
	TokenHash string    `gorm:"type:text;not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"not null"`
	RevokedAt *time.Time
	CreatedAt time.Time `gorm:"not null"`
}

// BeforeCreate generates a UUID primary key if not set.
func (rt *RefreshToken) BeforeCreate(_ *gorm.DB) error {
	if rt.ID == "" {
		rt.ID = uuid.New().String()
	}
	return nil
}

// All lists every model in foreign-key dependency order. SQLite AutoMigrate
// and the test harness both use it.
func All() []any {
	return []any{
		&User{},
		&RefreshToken{},
		&UserSubscription{},
		&DiveCenter{},
		&Customer{},
		&Staff{},
		&StaffPermission{},
		&Task{},
		&TaskAssignment{},
		&DiveTrip{},
		&Participant{},
		&Vehicle{},
		&TripDiveMasterAssignment{},
		&TripInstructorAssignment{},
		&Course{},
		&CourseStudent{},
		&Equipment{},
		&EquipmentRental{},
		&FleetVehicle{},
		&VehicleCrewAssignment{},
	}
}
