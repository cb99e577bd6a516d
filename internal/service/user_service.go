package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mindbridge/consult-api/internal/models"
	appErrors "github.com/mindbridge/consult-api/pkg/errors"
)

type userProfileRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByEmailOrPhone(ctx context.Context, email, phone, excludeID string) (bool, error)
	UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) error
	Deactivate(ctx context.Context, id, reactivationCode string) error
	Reactivate(ctx context.Context, email, reactivationCode string) error
	DeleteAccount(ctx context.Context, id string) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
}

// ReactivateRequest is the payload for restoring a deactivated account.
type ReactivateRequest struct {
	Email            string `json:"email" validate:"required,email"`
	ReactivationCode string `json:"reactivation_code" validate:"required"`
}

// UserService manages account profiles and lifecycle.
type UserService struct {
	repo      userProfileRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(repo userProfileRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// Profile returns the account for the given user ID.
func (s *UserService) Profile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load user")
	}
	return user, nil
}

// UpdateProfile applies a partial profile update. Fields not present in the
// payload keep their stored values. Nothing is written when validation or
// the uniqueness check fails.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.User, error) {
	if err := s.validator.Struct(update); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	if update.IsEmpty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no updatable fields provided")
	}

	if update.Email != nil || update.Phone != nil {
		email := ""
		if update.Email != nil {
			email = *update.Email
		}
		phone := ""
		if update.Phone != nil {
			phone = *update.Phone
		}
		taken, err := s.repo.ExistsByEmailOrPhone(ctx, email, phone, userID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to check account uniqueness")
		}
		if taken {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email or phone already in use")
		}
	}

	if err := s.repo.UpdateProfile(ctx, userID, update); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to update profile")
	}

	return s.Profile(ctx, userID)
}

// Deactivate disables the account, revokes its sessions and returns a
// one-time reactivation code the user must present to restore access.
func (s *UserService) Deactivate(ctx context.Context, userID string) (string, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return "", err
	}
	if !user.Active {
		return "", appErrors.Clone(appErrors.ErrConflict, "account is already deactivated")
	}

	code, err := generateReactivationCode()
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate reactivation code")
	}

	if err := s.repo.Deactivate(ctx, userID, code); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to deactivate account")
	}

	if err := s.repo.RevokeUserRefreshTokens(ctx, userID); err != nil {
		s.logger.Warn("failed to revoke sessions on deactivation", zap.String("user_id", userID), zap.Error(err))
	}

	return code, nil
}

// Reactivate restores a deactivated account matching the email and code.
func (s *UserService) Reactivate(ctx context.Context, req ReactivateRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reactivation payload")
	}

	if err := s.repo.Reactivate(ctx, req.Email, req.ReactivationCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "no deactivated account matches the email and code")
		}
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to reactivate account")
	}
	return nil
}

// DeleteAccount permanently deletes the account and all data keyed by it.
// The caller proves intent with their password and a typed DELETE confirmation.
func (s *UserService) DeleteAccount(ctx context.Context, userID string, req models.DeleteAccountRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "type DELETE to confirm account deletion")
	}

	user, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return appErrors.Clone(appErrors.ErrForbidden, "password does not match")
	}

	if err := s.repo.DeleteAccount(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to delete account")
	}
	return nil
}

func generateReactivationCode() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
