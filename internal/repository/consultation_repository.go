package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mindbridge/consult-api/internal/models"
)

// ErrSlotTaken is returned when the locked slot is no longer free at write time.
var ErrSlotTaken = errors.New("availability slot already booked")

// ErrInvalidTransition is returned when a status change leaves a terminal state.
var ErrInvalidTransition = errors.New("consultation is not in a transitionable state")

// ConsultationRepository persists consultations and owns the booking transaction.
type ConsultationRepository struct {
	db *sqlx.DB
}

// NewConsultationRepository constructs the repository.
func NewConsultationRepository(db *sqlx.DB) *ConsultationRepository {
	return &ConsultationRepository{db: db}
}

// BookingParams holds the values written by the booking transaction.
type BookingParams struct {
	SlotID             string
	ConsultantID       string
	UserID             string
	ConsultationTypeID string
	ScheduledStartTime time.Time
}

// Book atomically claims the slot and creates the consultation. The slot row
// is locked and re-checked inside the transaction, so concurrent callers for
// the same slot serialize here: exactly one commits, the rest get ErrSlotTaken.
func (r *ConsultationRepository) Book(ctx context.Context, params BookingParams) (consultation *models.Consultation, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin booking transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked struct {
		ID       string `db:"id"`
		IsBooked bool   `db:"is_booked"`
	}
	const lockQuery = `SELECT id, is_booked FROM consultant_availability WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &locked, lockQuery, params.SlotID); err != nil {
		if err == sql.ErrNoRows {
			err = ErrSlotTaken
			return nil, err
		}
		return nil, fmt.Errorf("lock availability slot: %w", err)
	}
	if locked.IsBooked {
		err = ErrSlotTaken
		return nil, err
	}

	now := time.Now().UTC()
	consultation = &models.Consultation{
		ID:                 uuid.NewString(),
		ConsultantID:       params.ConsultantID,
		UserID:             params.UserID,
		ConsultationTypeID: params.ConsultationTypeID,
		SlotID:             params.SlotID,
		ScheduledStartTime: params.ScheduledStartTime,
		Status:             models.ConsultationScheduled,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	const insertQuery = `INSERT INTO consultations (id, consultant_id, user_id, consultation_type_id, slot_id, scheduled_start_time, status, created_at, updated_at)
VALUES (:id, :consultant_id, :user_id, :consultation_type_id, :slot_id, :scheduled_start_time, :status, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, consultation); err != nil {
		return nil, fmt.Errorf("insert consultation: %w", err)
	}

	const markQuery = `UPDATE consultant_availability SET is_booked = TRUE WHERE id = $1 AND is_booked = FALSE`
	result, execErr := tx.ExecContext(ctx, markQuery, params.SlotID)
	if execErr != nil {
		err = fmt.Errorf("mark slot booked: %w", execErr)
		return nil, err
	}
	affected, raErr := result.RowsAffected()
	if raErr != nil {
		err = fmt.Errorf("mark slot booked: %w", raErr)
		return nil, err
	}
	if affected != 1 {
		err = ErrSlotTaken
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit booking transaction: %w", err)
	}
	return consultation, nil
}

// FindByID returns a consultation by identifier.
func (r *ConsultationRepository) FindByID(ctx context.Context, id string) (*models.Consultation, error) {
	const query = `SELECT id, consultant_id, user_id, consultation_type_id, slot_id, scheduled_start_time, status, created_at, updated_at
FROM consultations WHERE id = $1`
	var consultation models.Consultation
	if err := r.db.GetContext(ctx, &consultation, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find consultation: %w", err)
	}
	return &consultation, nil
}

// ListByUser returns a user's consultations joined with type and consultant info.
func (r *ConsultationRepository) ListByUser(ctx context.Context, filter models.ConsultationFilter) ([]models.ConsultationDetail, error) {
	query := `SELECT c.id, c.consultant_id, c.user_id, c.consultation_type_id, c.slot_id, c.scheduled_start_time, c.status, c.created_at, c.updated_at,
        ct.name AS consultation_type, ct.duration_minutes, u.name AS consultant_name
        FROM consultations c
        JOIN consultation_types ct ON ct.id = c.consultation_type_id
        JOIN consultants cons ON cons.id = c.consultant_id
        JOIN users u ON u.id = cons.user_id
        WHERE c.user_id = $1`
	args := []interface{}{filter.UserID}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND c.status = $%d", len(args)+1)
		args = append(args, filter.Status)
	}
	query += " ORDER BY c.scheduled_start_time DESC"

	var consultations []models.ConsultationDetail
	if err := r.db.SelectContext(ctx, &consultations, query, args...); err != nil {
		return nil, fmt.Errorf("list consultations: %w", err)
	}
	return consultations, nil
}

// UpdateStatus transitions a scheduled consultation to a terminal status.
// Returns ErrInvalidTransition when the consultation is not scheduled.
func (r *ConsultationRepository) UpdateStatus(ctx context.Context, id string, status models.ConsultationStatus) error {
	const query = `UPDATE consultations SET status = $2, updated_at = $3 WHERE id = $1 AND status = 'scheduled'`
	result, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update consultation status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update consultation status: %w", err)
	}
	if affected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// Analytics aggregates consultation outcomes for an optional window and consultant.
func (r *ConsultationRepository) Analytics(ctx context.Context, filter models.AnalyticsFilter) (*models.BookingAnalytics, error) {
	query := `SELECT COUNT(*) AS total_consultations,
        COUNT(*) FILTER (WHERE c.status = 'completed') AS completed_consultations,
        COUNT(*) FILTER (WHERE c.status = 'cancelled') AS cancelled_consultations,
        AVG(r.rating) AS average_rating
        FROM consultations c
        LEFT JOIN reviews r ON r.consultation_id = c.id
        WHERE 1=1`
	var args []interface{}

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND c.scheduled_start_time >= $%d", len(args)+1)
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND c.scheduled_start_time <= $%d", len(args)+1)
		args = append(args, *filter.EndDate)
	}
	if filter.ConsultantID != "" {
		query += fmt.Sprintf(" AND c.consultant_id = $%d", len(args)+1)
		args = append(args, filter.ConsultantID)
	}

	var analytics models.BookingAnalytics
	if err := r.db.GetContext(ctx, &analytics, query, args...); err != nil {
		return nil, fmt.Errorf("consultation analytics: %w", err)
	}
	return &analytics, nil
}
