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

// ErrSlotOverlap is returned when a published window overlaps an existing
// slot for the same consultant and date.
var ErrSlotOverlap = errors.New("availability slot overlaps an existing slot")

// AvailabilityRepository manages published availability slots.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs the repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

const slotColumns = `id, consultant_id, date, start_time, end_time, is_booked, created_at`

// ListByConsultantAndRange returns slots for a consultant within a date range,
// ordered by date and start time.
func (r *AvailabilityRepository) ListByConsultantAndRange(ctx context.Context, consultantID, startDate, endDate string) ([]models.AvailabilitySlot, error) {
	const query = `SELECT ` + slotColumns + ` FROM consultant_availability
WHERE consultant_id = $1 AND date BETWEEN $2 AND $3
ORDER BY date ASC, start_time ASC`
	var slots []models.AvailabilitySlot
	if err := r.db.SelectContext(ctx, &slots, query, consultantID, startDate, endDate); err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	return slots, nil
}

// FindOpenSlot returns the free slot covering the requested start time on the
// given date, or sql.ErrNoRows when no such slot exists.
func (r *AvailabilityRepository) FindOpenSlot(ctx context.Context, consultantID, date, startTime string) (*models.AvailabilitySlot, error) {
	const query = `SELECT ` + slotColumns + ` FROM consultant_availability
WHERE consultant_id = $1 AND date = $2 AND start_time <= $3 AND end_time > $3 AND is_booked = FALSE
ORDER BY start_time ASC LIMIT 1`
	var slot models.AvailabilitySlot
	if err := r.db.GetContext(ctx, &slot, query, consultantID, date, startTime); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find open slot: %w", err)
	}
	return &slot, nil
}

// CreateBatch inserts new slots inside one transaction: any window that
// overlaps an existing slot for the same consultant and date rejects the
// whole batch with ErrSlotOverlap and nothing is persisted.
func (r *AvailabilityRepository) CreateBatch(ctx context.Context, slots []models.AvailabilitySlot) (err error) {
	if len(slots) == 0 {
		return nil
	}
	now := time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin publish transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const overlapQuery = `SELECT COUNT(*) FROM consultant_availability
WHERE consultant_id = $1 AND date = $2 AND start_time < $4 AND end_time > $3`
	const insertQuery = `INSERT INTO consultant_availability (id, consultant_id, date, start_time, end_time, is_booked, created_at)
VALUES (:id, :consultant_id, :date, :start_time, :end_time, :is_booked, :created_at)`

	for i := range slots {
		slot := &slots[i]
		if slot.ID == "" {
			slot.ID = uuid.NewString()
		}
		if slot.CreatedAt.IsZero() {
			slot.CreatedAt = now
		}

		var overlapping int
		if err = tx.GetContext(ctx, &overlapping, overlapQuery, slot.ConsultantID, slot.Date, slot.StartTime, slot.EndTime); err != nil {
			return fmt.Errorf("check slot overlap: %w", err)
		}
		if overlapping > 0 {
			err = fmt.Errorf("%w: %s %s-%s", ErrSlotOverlap, slot.Date, slot.StartTime, slot.EndTime)
			return err
		}

		if _, err = tx.NamedExecContext(ctx, insertQuery, slot); err != nil {
			return fmt.Errorf("create availability slot: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit publish transaction: %w", err)
	}
	return nil
}
