package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mindbridge/consult-api/internal/models"
)

// ReviewRepository persists consultation reviews.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository constructs the repository.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// ExistsForConsultation reports whether the consultation already has a review.
func (r *ReviewRepository) ExistsForConsultation(ctx context.Context, consultationID string) (bool, error) {
	const query = `SELECT COUNT(*) FROM reviews WHERE consultation_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, consultationID); err != nil {
		return false, fmt.Errorf("check existing review: %w", err)
	}
	return count > 0, nil
}

// Create inserts a new review.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if review.CreatedAt.IsZero() {
		review.CreatedAt = now
	}
	review.UpdatedAt = now

	const query = `INSERT INTO reviews (id, consultation_id, user_id, rating, comment, created_at, updated_at)
VALUES (:id, :consultation_id, :user_id, :rating, :comment, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, review); err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

// ListByConsultant returns reviews for a consultant, newest first.
func (r *ReviewRepository) ListByConsultant(ctx context.Context, consultantID string) ([]models.Review, error) {
	const query = `SELECT r.id, r.consultation_id, r.user_id, r.rating, r.comment, r.created_at, r.updated_at
FROM reviews r
JOIN consultations c ON c.id = r.consultation_id
WHERE c.consultant_id = $1
ORDER BY r.created_at DESC`
	var reviews []models.Review
	if err := r.db.SelectContext(ctx, &reviews, query, consultantID); err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}
