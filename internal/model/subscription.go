package model

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubscriptionStatus is the closed set of statuses a UserSubscription row can
// carry. Any string outside the known set is read back as StatusOther.
type SubscriptionStatus string

const (
	StatusPaid   SubscriptionStatus = "paid"
	StatusFree   SubscriptionStatus = "free"
	StatusActive SubscriptionStatus = "active"
	StatusOther  SubscriptionStatus = "other"
)

// ParseSubscriptionStatus maps a stored string onto the closed set.
func ParseSubscriptionStatus(s string) SubscriptionStatus {
	switch SubscriptionStatus(s) {
	case StatusPaid, StatusFree, StatusActive:
		return SubscriptionStatus(s)
	default:
		return StatusOther
	}
}

// GrantsAccess reports whether the status can back a manager role.
func (s SubscriptionStatus) GrantsAccess() bool {
	switch s {
	case StatusPaid, StatusFree, StatusActive:
		return true
	default:
		return false
	}
}

// Expires reports whether rows with this status are bound by period_end.
// Free plans never expire.
func (s SubscriptionStatus) Expires() bool { return s != StatusFree }

// AccessGrantingStatuses returns the statuses accepted by the gate, as plain
// strings for use in IN clauses.
func AccessGrantingStatuses() []string {
	return []string{string(StatusPaid), string(StatusFree), string(StatusActive)}
}

// Scan implements sql.Scanner.
func (s *SubscriptionStatus) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*s = StatusOther
	case string:
		*s = ParseSubscriptionStatus(v)
	case []byte:
		*s = ParseSubscriptionStatus(string(v))
	default:
		return fmt.Errorf("subscription status: unsupported type %T", value)
	}
	return nil
}

// Value implements driver.Valuer.
func (s SubscriptionStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// UserSubscription is a billing record keyed by customer email. Several rows
// may exist per email; the newest access-granting row is authoritative.
type UserSubscription struct {
	ID             string             `gorm:"type:text;primaryKey" json:"id"`
	CustomerEmail  string             `gorm:"type:text;not null;index" json:"customerEmail"`
	Status         SubscriptionStatus `gorm:"type:text;not null;index" json:"status"`
	PeriodEnd      int64              `gorm:"not null;default:0" json:"periodEnd"`
	PlanType       string             `gorm:"type:text;not null;default:''" json:"planType"`
	BillingCycle   string             `gorm:"type:text;not null;default:''" json:"billingCycle"`
	MaxDiveCenters int                `gorm:"not null;default:1" json:"maxDiveCenters"`
	CreatedAt      time.Time          `gorm:"not null;index" json:"createdAt"`
}

// BeforeCreate generates a UUID primary key if not set.
func (us *UserSubscription) BeforeCreate(_ *gorm.DB) error {
	if us.ID == "" {
		us.ID = uuid.New().String()
	}
	return nil
}

// ExpiredAt reports whether the paid period has ended at now. The comparison
// is done in milliseconds against period_end seconds.
func (us *UserSubscription) ExpiredAt(now time.Time) bool {
	if !us.Status.Expires() {
		return false
	}
	return now.UnixMilli() > us.PeriodEnd*1000
}
