package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mindbridge/consult-api/internal/models"
	appErrors "github.com/mindbridge/consult-api/pkg/errors"
)

type reviewRepository interface {
	ExistsForConsultation(ctx context.Context, consultationID string) (bool, error)
	Create(ctx context.Context, review *models.Review) error
	ListByConsultant(ctx context.Context, consultantID string) ([]models.Review, error)
}

type consultationReader interface {
	FindByID(ctx context.Context, id string) (*models.Consultation, error)
}

// ReviewRequest is the payload for submitting a review.
type ReviewRequest struct {
	ConsultationID string `json:"consultation_id" validate:"required,uuid4"`
	Rating         int    `json:"rating" validate:"required,min=1,max=5"`
	Comment        string `json:"comment" validate:"max=2000"`
}

// ReviewService handles review submission for completed consultations.
type ReviewService struct {
	repo          reviewRepository
	consultations consultationReader
	cache         *CacheService
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewReviewService constructs a ReviewService.
func NewReviewService(repo reviewRepository, consultations consultationReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ReviewService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{repo: repo, consultations: consultations, cache: cache, validator: validate, logger: logger}
}

// Submit records a review. Only the booking user may review, only completed
// consultations qualify, and each consultation takes at most one review.
func (s *ReviewService) Submit(ctx context.Context, userID string, req ReviewRequest) (*models.Review, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	consultation, err := s.consultations.FindByID(ctx, req.ConsultationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "consultation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load consultation")
	}

	if consultation.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the booking user may review a consultation")
	}
	if consultation.Status != models.ConsultationCompleted {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only completed consultations can be reviewed")
	}

	exists, err := s.repo.ExistsForConsultation(ctx, req.ConsultationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to check existing reviews")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "consultation already reviewed")
	}

	review := &models.Review{
		ConsultationID: req.ConsultationID,
		UserID:         userID,
		Rating:         req.Rating,
		Comment:        req.Comment,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to save review")
	}

	// Ratings feed the consultant listings, so cached pages are stale now.
	if s.cache.Enabled() {
		if err := s.cache.Invalidate(ctx, "consultants:*"); err != nil {
			s.logger.Warn("failed to invalidate consultant cache after review", zap.Error(err))
		}
	}

	return review, nil
}

// ListByConsultant returns all reviews for a consultant, newest first.
func (s *ReviewService) ListByConsultant(ctx context.Context, consultantID string) ([]models.Review, error) {
	reviews, err := s.repo.ListByConsultant(ctx, consultantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list reviews")
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	return reviews, nil
}
