// Package handler contains HTTP handlers grouped by resource.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/scubafy-dev/scubafy-app-sub001/internal/api/jsonapi"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/auth"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/model"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/subscription"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

// AuthHandler handles /api/v1/auth/* routes.
type AuthHandler struct {
	db        *gorm.DB
	refresh   *auth.RefreshStore
	gate      *subscription.Gate
	logger    *slog.Logger
	jwtSecret string
	accessTTL time.Duration
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(db *gorm.DB, gate *subscription.Gate, logger *slog.Logger, jwtSecret string, accessTTL, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		db:        db,
		refresh:   auth.NewRefreshStore(db, refreshTTL),
		gate:      gate,
		logger:    logger,
		jwtSecret: jwtSecret,
		accessTTL: accessTTL,
	}
}

// credentials holds an email and password. The password field is unexported
// and decoded by hand so it never round-trips through encoding.
type credentials struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Name  string `json:"name" validate:"omitempty,max=100"`
	pass  string
}

func (c *credentials) UnmarshalJSON(data []byte) error {
	obj := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	for key, dst := range map[string]*string{"email": &c.Email, "name": &c.Name, "password": &c.pass} {
		if v, ok := obj[key]; ok {
			if err := json.Unmarshal(v, dst); err != nil {
				return err
			}
		}
	}
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	return nil
}

// tokenAttrs are the JSON attributes returned in successful auth responses.
// Sensitive fields are unexported and serialised via MarshalJSON.
type tokenAttrs struct {
	accessToken  string
	refreshToken string
	TokenType    string
	Role         *model.Role
}

func (t tokenAttrs) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"access_token":  t.accessToken,
		"refresh_token": t.refreshToken,
		"token_type":    t.TokenType,
		"role":          t.Role,
	})
}

// Register handles POST /api/v1/auth/register. New users have no role until
// they complete onboarding.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if len(req.pass) < minPasswordLength {
		jsonapi.RenderError(w, http.StatusUnprocessableEntity, "invalid_field", "Unprocessable Entity", "password must be at least 8 characters")
		return
	}

	ctx := r.Context()
	var existing int64
	if err := h.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", req.Email).Count(&existing).Error; err != nil {
		renderServiceError(ctx, w, h.logger, "register: count users", err)
		return
	}
	if existing > 0 {
		jsonapi.RenderError(w, http.StatusConflict, "email_taken", "Conflict", "an account with this email already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.pass), bcrypt.DefaultCost)
	if err != nil {
		renderServiceError(ctx, w, h.logger, "register: hash password", err)
		return
	}
	u := &model.User{Email: req.Email, Name: req.Name, PasswordHash: string(hash)}
	if err := h.db.WithContext(ctx).Create(u).Error; err != nil {
		renderServiceError(ctx, w, h.logger, "register: insert user", err)
		return
	}

	h.logger.InfoContext(ctx, "user registered", "user_id", u.ID)
	h.issueTokens(w, r, http.StatusCreated, u)
}

// Login handles POST /api/v1/auth/login. Managers pass through the
// subscription gate; a denial returns 403 with the redirect in meta.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonapi.RenderError(w, http.StatusBadRequest, "invalid_body", "Bad Request", "request body must be valid JSON")
		return
	}
	if req.Email == "" || req.pass == "" {
		jsonapi.RenderError(w, http.StatusUnprocessableEntity, "missing_field", "Unprocessable Entity", "email and password are required")
		return
	}

	ctx := r.Context()

	var u model.User
	if err := h.db.WithContext(ctx).Where("email = ?", req.Email).First(&u).Error; err != nil {
		jsonapi.RenderError(w, http.StatusUnauthorized, "invalid_credentials", "Unauthorized", "email or password is incorrect")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.pass)); err != nil {
		jsonapi.RenderError(w, http.StatusUnauthorized, "invalid_credentials", "Unauthorized", "email or password is incorrect")
		return
	}

	redirect, err := h.gate.SignIn(ctx, &u)
	if err != nil {
		renderServiceError(ctx, w, h.logger, "login: subscription gate", err)
		return
	}
	if redirect != "" {
		reason := strings.TrimPrefix(redirect, "/auth/error?error=")
		jsonapi.RenderErrorMeta(w, http.StatusForbidden, reason, "Forbidden", "sign-in blocked by subscription state",
			jsonapi.Meta{"redirect": redirect})
		return
	}

	h.issueTokens(w, r, http.StatusOK, &u)
}

func (h *AuthHandler) issueTokens(w http.ResponseWriter, r *http.Request, status int, u *model.User) {
	ctx := r.Context()
	id := auth.Identity{UserID: u.ID, Email: u.Email}
	if u.Role != nil {
		id.Role = *u.Role
	}

	accessToken, err := auth.IssueAccessToken(id, h.jwtSecret, h.accessTTL)
	if err != nil {
		jsonapi.RenderError(w, http.StatusInternalServerError, "token_error", "Internal Server Error", "failed to issue access token")
		return
	}

	refreshToken, err := h.refresh.IssueRefreshToken(ctx, u.ID)
	if err != nil {
		jsonapi.RenderError(w, http.StatusInternalServerError, "token_error", "Internal Server Error", "failed to issue refresh token")
		return
	}

	jsonapi.RenderOneMeta(w, status, jsonapi.ResourceObject{
		Type: "auth_token",
		ID:   u.ID,
		Attributes: tokenAttrs{
			accessToken:  accessToken,
			refreshToken: refreshToken,
			TokenType:    "Bearer",
			Role:         u.Role,
		},
	}, jsonapi.Meta{"role_required": u.Role == nil})
}

// refreshRequest holds the token submitted via POST /api/v1/auth/refresh
// and /api/v1/auth/logout.
type refreshRequest struct {
	token string // unexported; decoded via UnmarshalJSON
}

func (r *refreshRequest) UnmarshalJSON(data []byte) error {
	obj := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if v, ok := obj["refresh_token"]; ok {
		if err := json.Unmarshal(v, &r.token); err != nil {
			return err
		}
	}
	return nil
}

// Refresh handles POST /api/v1/auth/refresh. The new access token carries
// the user's stored role; staff bindings are not carried over.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.token == "" {
		jsonapi.RenderError(w, http.StatusBadRequest, "invalid_body", "Bad Request", "refresh_token is required")
		return
	}

	ctx := r.Context()
	newRefresh, userID, err := h.refresh.RotateRefreshToken(ctx, req.token)
	if errors.Is(err, auth.ErrRefreshTokenInvalid) {
		jsonapi.RenderError(w, http.StatusUnauthorized, "invalid_token", "Unauthorized", "refresh token is invalid or expired")
		return
	}
	if err != nil {
		renderServiceError(ctx, w, h.logger, "refresh: rotate token", err)
		return
	}

	var u model.User
	if err := h.db.WithContext(ctx).Where("id = ?", userID).First(&u).Error; err != nil {
		jsonapi.RenderError(w, http.StatusUnauthorized, "user_not_found", "Unauthorized", "user account does not exist")
		return
	}

	id := auth.Identity{UserID: u.ID, Email: u.Email}
	if u.Role != nil {
		id.Role = *u.Role
	}
	accessToken, err := auth.IssueAccessToken(id, h.jwtSecret, h.accessTTL)
	if err != nil {
		jsonapi.RenderError(w, http.StatusInternalServerError, "token_error", "Internal Server Error", "failed to issue access token")
		return
	}

	jsonapi.RenderOne(w, http.StatusOK, jsonapi.ResourceObject{
		Type: "auth_token",
		ID:   u.ID,
		Attributes: tokenAttrs{
			accessToken:  accessToken,
			refreshToken: newRefresh,
			TokenType:    "Bearer",
			Role:         u.Role,
		},
	})
}

// Logout handles POST /api/v1/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.token == "" {
		jsonapi.RenderError(w, http.StatusBadRequest, "invalid_body", "Bad Request", "refresh_token is required")
		return
	}
	// Ignore error: even if token not found, return 204 to avoid token probing.
	_ = h.refresh.RevokeRefreshToken(r.Context(), req.token)
	w.WriteHeader(http.StatusNoContent)
}
