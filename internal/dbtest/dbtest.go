// Package dbtest opens throwaway in-memory SQLite databases with the full
// schema applied, plus a few fixture helpers shared by package tests.
package dbtest

import (
	"testing"
	"time"

	"github.com/scubafy-dev/scubafy-app-sub001/internal/db"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/model"
	"gorm.io/gorm"
)

// New returns a migrated, foreign-key-enforcing in-memory database that is
// closed when the test ends.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	gdb, err := db.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

// User inserts a user with the given email and optional manager role.
func User(t testing.TB, gdb *gorm.DB, email string, manager bool) *model.User {
	t.Helper()
	u := &model.User{Email: email, Name: email}
	if manager {
		r := model.RoleManager
		u.Role = &r
	}
	if err := gdb.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// Subscription inserts a subscription row. createdAt orders rows for the
// same email.
func Subscription(t testing.TB, gdb *gorm.DB, email string, status model.SubscriptionStatus, periodEnd time.Time, createdAt time.Time) *model.UserSubscription {
	t.Helper()
	sub := &model.UserSubscription{
		CustomerEmail:  email,
		Status:         status,
		PeriodEnd:      periodEnd.Unix(),
		PlanType:       "pro",
		BillingCycle:   "monthly",
		MaxDiveCenters: 3,
		CreatedAt:      createdAt,
	}
	if err := gdb.Create(sub).Error; err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	return sub
}

// Center inserts a dive center owned by ownerID.
func Center(t testing.TB, gdb *gorm.DB, ownerID, name string) *model.DiveCenter {
	t.Helper()
	c := &model.DiveCenter{Name: name, OwnerID: ownerID, Location: "Reef Bay"}
	if err := gdb.Create(c).Error; err != nil {
		t.Fatalf("create dive center: %v", err)
	}
	return c
}

// Staff inserts a staff row with the given code and permissions. centerID
// may be nil.
func Staff(t testing.TB, gdb *gorm.DB, centerID *string, code string, status model.StaffStatus, perms ...string) *model.Staff {
	t.Helper()
	s := &model.Staff{
		FullName:     "Staff " + code,
		Email:        code + "@staff.test",
		StaffCode:    code,
		DiveCenterID: centerID,
		Status:       status,
	}
	for _, p := range perms {
		s.Permissions = append(s.Permissions, model.StaffPermission{Permission: p})
	}
	if err := gdb.Create(s).Error; err != nil {
		t.Fatalf("create staff: %v", err)
	}
	return s
}

// Create inserts any row and fails the test on error.
func Create(t testing.TB, gdb *gorm.DB, row any) {
	t.Helper()
	if err := gdb.Create(row).Error; err != nil {
		t.Fatalf("create %T: %v", row, err)
	}
}

// Count returns the number of rows in the model's table matching the
// optional where clause.
func Count(t testing.TB, gdb *gorm.DB, m any, where ...any) int64 {
	t.Helper()
	var n int64
	q := gdb.Model(m)
	if len(where) > 0 {
		q = q.Where(where[0], where[1:]...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count %T: %v", m, err)
	}
	return n
}
