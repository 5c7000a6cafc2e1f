// Package seed creates a first owner account on first boot when the users
// table is empty.
package seed

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/scubafy-dev/scubafy-app-sub001/internal/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// OwnerOptions configures the seed owner.
type OwnerOptions struct {
	Email    string // empty disables seeding
	Password string // if empty, a random password is generated
}

// EnsureOwner creates a manager with a free subscription if no users exist,
// so a fresh install can create its first dive center. It is idempotent and
// safe to call on every startup. The generated password, if any, is printed
// to stdout once.
func EnsureOwner(ctx context.Context, db *gorm.DB, opts OwnerOptions, log *slog.Logger) error {
	if opts.Email == "" {
		log.Debug("seed owner disabled")
		return nil
	}

	var count int64
	if err := db.WithContext(ctx).Model(&model.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		log.Info("seed owner skipped, users already exist")
		return nil
	}

	password := opts.Password
	if password == "" {
		var err error
		password, err = generatePassword()
		if err != nil {
			return fmt.Errorf("generate seed password: %w", err)
		}
		fmt.Printf("[scubafy] seed owner password: %s\n", password)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	role := model.RoleManager
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u := &model.User{
			Email:        opts.Email,
			Name:         "Seed Owner",
			PasswordHash: string(hash),
			Role:         &role,
		}
		if err := tx.Create(u).Error; err != nil {
			return fmt.Errorf("insert seed owner: %w", err)
		}
		sub := &model.UserSubscription{
			CustomerEmail:  opts.Email,
			Status:         model.StatusFree,
			PlanType:       "free",
			BillingCycle:   "none",
			MaxDiveCenters: 1,
		}
		if err := tx.Create(sub).Error; err != nil {
			return fmt.Errorf("insert seed subscription: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info("seed owner created", "email", opts.Email)
	return nil
}

func generatePassword() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
