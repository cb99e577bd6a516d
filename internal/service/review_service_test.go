package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mindbridge/consult-api/internal/models"
	appErrors "github.com/mindbridge/consult-api/pkg/errors"
)

type mockReviewRepo struct {
	exists  bool
	created *models.Review
	listed  []models.Review
}

func (m *mockReviewRepo) ExistsForConsultation(ctx context.Context, consultationID string) (bool, error) {
	return m.exists, nil
}

func (m *mockReviewRepo) Create(ctx context.Context, review *models.Review) error {
	m.created = review
	return nil
}

func (m *mockReviewRepo) ListByConsultant(ctx context.Context, consultantID string) ([]models.Review, error) {
	return m.listed, nil
}

type mockConsultationReader struct {
	consultation *models.Consultation
	err          error
}

func (m *mockConsultationReader) FindByID(ctx context.Context, id string) (*models.Consultation, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.consultation, nil
}

func reviewRequestFixture() ReviewRequest {
	return ReviewRequest{
		ConsultationID: "4d3c6a9e-1b2f-4c8d-9e0a-5f6b7c8d9e0f",
		Rating:         5,
		Comment:        "Clear and helpful advice.",
	}
}

func TestReviewServiceSubmit(t *testing.T) {
	repo := &mockReviewRepo{}
	consultations := &mockConsultationReader{consultation: &models.Consultation{
		ID: "4d3c6a9e-1b2f-4c8d-9e0a-5f6b7c8d9e0f", UserID: "user-1", Status: models.ConsultationCompleted,
	}}
	svc := NewReviewService(repo, consultations, nil, validator.New(), zap.NewNop())

	review, err := svc.Submit(context.Background(), "user-1", reviewRequestFixture())
	require.NoError(t, err)
	assert.Equal(t, 5, review.Rating)
	require.NotNil(t, repo.created)
	assert.Equal(t, "user-1", repo.created.UserID)
}

func TestReviewServiceSubmitNotCompleted(t *testing.T) {
	repo := &mockReviewRepo{}
	consultations := &mockConsultationReader{consultation: &models.Consultation{
		ID: "4d3c6a9e-1b2f-4c8d-9e0a-5f6b7c8d9e0f", UserID: "user-1", Status: models.ConsultationScheduled,
	}}
	svc := NewReviewService(repo, consultations, nil, validator.New(), zap.NewNop())

	_, err := svc.Submit(context.Background(), "user-1", reviewRequestFixture())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestReviewServiceSubmitByStranger(t *testing.T) {
	repo := &mockReviewRepo{}
	consultations := &mockConsultationReader{consultation: &models.Consultation{
		ID: "4d3c6a9e-1b2f-4c8d-9e0a-5f6b7c8d9e0f", UserID: "user-1", Status: models.ConsultationCompleted,
	}}
	svc := NewReviewService(repo, consultations, nil, validator.New(), zap.NewNop())

	_, err := svc.Submit(context.Background(), "intruder", reviewRequestFixture())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestReviewServiceSubmitDuplicate(t *testing.T) {
	repo := &mockReviewRepo{exists: true}
	consultations := &mockConsultationReader{consultation: &models.Consultation{
		ID: "4d3c6a9e-1b2f-4c8d-9e0a-5f6b7c8d9e0f", UserID: "user-1", Status: models.ConsultationCompleted,
	}}
	svc := NewReviewService(repo, consultations, nil, validator.New(), zap.NewNop())

	_, err := svc.Submit(context.Background(), "user-1", reviewRequestFixture())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestReviewServiceSubmitUnknownConsultation(t *testing.T) {
	repo := &mockReviewRepo{}
	consultations := &mockConsultationReader{err: sql.ErrNoRows}
	svc := NewReviewService(repo, consultations, nil, validator.New(), zap.NewNop())

	_, err := svc.Submit(context.Background(), "user-1", reviewRequestFixture())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReviewServiceListEmpty(t *testing.T) {
	svc := NewReviewService(&mockReviewRepo{}, &mockConsultationReader{}, nil, validator.New(), zap.NewNop())

	reviews, err := svc.ListByConsultant(context.Background(), "consultant-1")
	require.NoError(t, err)
	assert.NotNil(t, reviews)
	assert.Empty(t, reviews)
}
