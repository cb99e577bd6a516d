package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/mindbridge/consult-api/internal/models"
)

// ConsultantRepository reads consultant profiles and review aggregates.
type ConsultantRepository struct {
	db *sqlx.DB
}

// NewConsultantRepository constructs the repository.
func NewConsultantRepository(db *sqlx.DB) *ConsultantRepository {
	return &ConsultantRepository{db: db}
}

const consultantDetailColumns = `c.id, c.user_id, c.expertise, c.languages, c.hourly_rate, c.bio, c.active, c.created_at, c.updated_at,
        u.name, u.email,
        (SELECT COUNT(r.id) FROM reviews r JOIN consultations cons ON cons.id = r.consultation_id WHERE cons.consultant_id = c.id) AS review_count,
        (SELECT AVG(r.rating) FROM reviews r JOIN consultations cons ON cons.id = r.consultation_id WHERE cons.consultant_id = c.id) AS average_rating`

// List returns active consultants matching the filter with total count.
func (r *ConsultantRepository) List(ctx context.Context, filter models.ConsultantFilter) ([]models.ConsultantDetail, int, error) {
	base := `FROM consultants c JOIN users u ON u.id = c.user_id WHERE c.active = TRUE`
	var conditions []string
	var args []interface{}

	if filter.Expertise != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(c.expertise) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Expertise)+"%")
	}
	if filter.Language != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(c.languages) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Language)+"%")
	}
	if filter.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("c.hourly_rate <= $%d", len(args)+1))
		args = append(args, *filter.MaxPrice)
	}
	if filter.MinRating != nil {
		conditions = append(conditions, fmt.Sprintf(`(SELECT AVG(r.rating) FROM reviews r JOIN consultations cons ON cons.id = r.consultation_id WHERE cons.consultant_id = c.id) >= $%d`, len(args)+1))
		args = append(args, *filter.MinRating)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s ORDER BY average_rating DESC NULLS LAST, c.hourly_rate ASC LIMIT %d OFFSET %d`,
		consultantDetailColumns, base+clause, size, offset)

	var consultants []models.ConsultantDetail
	if err := r.db.SelectContext(ctx, &consultants, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list consultants: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count consultants: %w", err)
	}

	return consultants, total, nil
}

// FindDetailByID returns a consultant with account info and review aggregates.
func (r *ConsultantRepository) FindDetailByID(ctx context.Context, id string) (*models.ConsultantDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM consultants c JOIN users u ON u.id = c.user_id WHERE c.id = $1`, consultantDetailColumns)
	var detail models.ConsultantDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find consultant detail: %w", err)
	}
	return &detail, nil
}

// FindByID returns the bare consultant row.
func (r *ConsultantRepository) FindByID(ctx context.Context, id string) (*models.Consultant, error) {
	const query = `SELECT id, user_id, expertise, languages, hourly_rate, bio, active, created_at, updated_at FROM consultants WHERE id = $1`
	var consultant models.Consultant
	if err := r.db.GetContext(ctx, &consultant, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find consultant: %w", err)
	}
	return &consultant, nil
}
