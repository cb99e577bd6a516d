package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mindbridge/consult-api/internal/models"
)

// FavoriteRepository persists saved consultants per user.
type FavoriteRepository struct {
	db *sqlx.DB
}

// NewFavoriteRepository constructs the repository.
func NewFavoriteRepository(db *sqlx.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// Add saves the consultant for the user. Adding an existing favorite is a no-op.
func (r *FavoriteRepository) Add(ctx context.Context, userID, consultantID string) error {
	const query = `INSERT INTO favorites (id, user_id, consultant_id, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, consultant_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), userID, consultantID, time.Now().UTC()); err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

// Remove deletes the favorite and reports whether a row was removed.
func (r *FavoriteRepository) Remove(ctx context.Context, userID, consultantID string) (bool, error) {
	const query = `DELETE FROM favorites WHERE user_id = $1 AND consultant_id = $2`
	result, err := r.db.ExecContext(ctx, query, userID, consultantID)
	if err != nil {
		return false, fmt.Errorf("remove favorite: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove favorite: %w", err)
	}
	return affected > 0, nil
}

// ListByUser returns the user's favorites joined with consultant info.
func (r *FavoriteRepository) ListByUser(ctx context.Context, userID string) ([]models.FavoriteDetail, error) {
	const query = `SELECT f.id AS favorite_id, c.id AS consultant_id, u.name AS consultant_name,
        c.expertise, c.languages, c.hourly_rate
        FROM favorites f
        JOIN consultants c ON c.id = f.consultant_id
        JOIN users u ON u.id = c.user_id
        WHERE f.user_id = $1
        ORDER BY f.created_at DESC`
	var favorites []models.FavoriteDetail
	if err := r.db.SelectContext(ctx, &favorites, query, userID); err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return favorites, nil
}
