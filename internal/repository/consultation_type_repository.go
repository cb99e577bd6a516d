package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mindbridge/consult-api/internal/models"
)

// ConsultationTypeRepository reads the immutable consultation type catalogue.
type ConsultationTypeRepository struct {
	db *sqlx.DB
}

// NewConsultationTypeRepository constructs the repository.
func NewConsultationTypeRepository(db *sqlx.DB) *ConsultationTypeRepository {
	return &ConsultationTypeRepository{db: db}
}

// FindByID returns a consultation type by identifier.
func (r *ConsultationTypeRepository) FindByID(ctx context.Context, id string) (*models.ConsultationType, error) {
	const query = `SELECT id, name, description, duration_minutes, price FROM consultation_types WHERE id = $1`
	var ct models.ConsultationType
	if err := r.db.GetContext(ctx, &ct, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find consultation type: %w", err)
	}
	return &ct, nil
}

// List returns all offered consultation types ordered by duration.
func (r *ConsultationTypeRepository) List(ctx context.Context) ([]models.ConsultationType, error) {
	const query = `SELECT id, name, description, duration_minutes, price FROM consultation_types ORDER BY duration_minutes ASC`
	var types []models.ConsultationType
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, fmt.Errorf("list consultation types: %w", err)
	}
	return types, nil
}
