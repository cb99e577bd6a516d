package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mindbridge/consult-api/internal/models"
	appErrors "github.com/mindbridge/consult-api/pkg/errors"
)

type mockUserProfileRepo struct {
	user        *models.User
	findErr     error
	deleted     []string
	deleteErr   error
	deactivated bool
}

func (m *mockUserProfileRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.user, nil
}

func (m *mockUserProfileRepo) ExistsByEmailOrPhone(ctx context.Context, email, phone, excludeID string) (bool, error) {
	return false, nil
}

func (m *mockUserProfileRepo) UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) error {
	return nil
}

func (m *mockUserProfileRepo) Deactivate(ctx context.Context, id, reactivationCode string) error {
	m.deactivated = true
	return nil
}

func (m *mockUserProfileRepo) Reactivate(ctx context.Context, email, reactivationCode string) error {
	return nil
}

func (m *mockUserProfileRepo) DeleteAccount(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockUserProfileRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return nil
}

func newUserServiceFixture(t *testing.T) (*mockUserProfileRepo, *UserService) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	require.NoError(t, err)
	repo := &mockUserProfileRepo{user: &models.User{ID: "user-1", PasswordHash: string(hash), Active: true}}
	return repo, NewUserService(repo, validator.New(), zap.NewNop())
}

func TestUserServiceDeleteAccount(t *testing.T) {
	repo, svc := newUserServiceFixture(t)

	err := svc.DeleteAccount(context.Background(), "user-1", models.DeleteAccountRequest{
		Password:     "password",
		Confirmation: "DELETE",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"user-1"}, repo.deleted)
}

func TestUserServiceDeleteAccountWrongConfirmation(t *testing.T) {
	repo, svc := newUserServiceFixture(t)

	err := svc.DeleteAccount(context.Background(), "user-1", models.DeleteAccountRequest{
		Password:     "password",
		Confirmation: "delete",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}

func TestUserServiceDeleteAccountWrongPassword(t *testing.T) {
	repo, svc := newUserServiceFixture(t)

	err := svc.DeleteAccount(context.Background(), "user-1", models.DeleteAccountRequest{
		Password:     "not-it",
		Confirmation: "DELETE",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}

func TestUserServiceDeactivateAlreadyInactive(t *testing.T) {
	repo, svc := newUserServiceFixture(t)
	repo.user.Active = false

	_, err := svc.Deactivate(context.Background(), "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.False(t, repo.deactivated)
}
