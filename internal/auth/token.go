// Package auth provides JWT token issuance and validation and the explicit
// session Identity passed into every workflow.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/model"
)

// Identity is the resolved session of a signed-in user. Workflows receive it
// as an argument; nothing reads it from ambient state.
type Identity struct {
	UserID string
	Email  string
	// Role is empty until the user picks one during onboarding.
	Role model.Role
	// Staff fields are set only for sessions bound through a staff code.
	StaffID      string
	DiveCenterID string
	Permissions  []string
}

// Authenticated reports whether the identity carries a user id.
func (i Identity) Authenticated() bool { return i.UserID != "" }

// IsManager reports whether the session claims the manager role.
func (i Identity) IsManager() bool { return i.Role == model.RoleManager }

// IsStaff reports whether the session is bound to a staff record.
func (i Identity) IsStaff() bool { return i.StaffID != "" }

// HasPermission reports whether a staff session carries perm.
func (i Identity) HasPermission(perm string) bool {
	for _, p := range i.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// Claims is the set of custom claims stored inside a Scubafy access token.
type Claims struct {
	UserID       string   `json:"uid"`
	Email        string   `json:"email"`
	Role         string   `json:"role,omitempty"`
	StaffID      string   `json:"staff_id,omitempty"`
	DiveCenterID string   `json:"dive_center_id,omitempty"`
	Permissions  []string `json:"perms,omitempty"`
	jwt.RegisteredClaims
}

// Identity converts the claims back into a session Identity.
func (c *Claims) Identity() Identity {
	return Identity{
		UserID:       c.UserID,
		Email:        c.Email,
		Role:         model.Role(c.Role),
		StaffID:      c.StaffID,
		DiveCenterID: c.DiveCenterID,
		Permissions:  c.Permissions,
	}
}

// IssueAccessToken creates and signs a new JWT access token for id.
func IssueAccessToken(id Identity, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:       id.UserID,
		Email:        id.Email,
		Role:         string(id.Role),
		StaffID:      id.StaffID,
		DiveCenterID: id.DiveCenterID,
		Permissions:  id.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "scubafy",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseAccessToken validates the token string and returns its Claims.
// Returns an error if the token is invalid, expired, or signed with a different key.
func ParseAccessToken(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
