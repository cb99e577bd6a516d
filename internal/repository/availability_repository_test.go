package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindbridge/consult-api/internal/models"
)

func newAvailabilityRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

func slotRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "consultant_id", "date", "start_time", "end_time", "is_booked", "created_at"})
}

func TestAvailabilityRepositoryFindOpenSlot(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`start_time <= $3 AND end_time > $3 AND is_booked = FALSE`)).
		WithArgs("consultant-1", "2026-09-01", "10:00:00").
		WillReturnRows(slotRows().AddRow("slot-1", "consultant-1", "2026-09-01", "09:00:00", "12:00:00", false, time.Now()))

	slot, err := repo.FindOpenSlot(context.Background(), "consultant-1", "2026-09-01", "10:00:00")
	require.NoError(t, err)
	assert.Equal(t, "slot-1", slot.ID)
	assert.True(t, slot.Contains("10:00:00", "10:30:00"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryFindOpenSlotNone(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("is_booked = FALSE")).
		WithArgs("consultant-1", "2026-09-01", "22:00:00").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindOpenSlot(context.Background(), "consultant-1", "2026-09-01", "22:00:00")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryListByConsultantAndRange(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`date BETWEEN $2 AND $3`)).
		WithArgs("consultant-1", "2026-09-01", "2026-09-07").
		WillReturnRows(slotRows().
			AddRow("slot-1", "consultant-1", "2026-09-01", "09:00:00", "12:00:00", false, time.Now()).
			AddRow("slot-2", "consultant-1", "2026-09-02", "13:00:00", "15:00:00", true, time.Now()))

	slots, err := repo.ListByConsultantAndRange(context.Background(), "consultant-1", "2026-09-01", "2026-09-07")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.True(t, slots[1].IsBooked)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryCreateBatchCommits(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`start_time < $4 AND end_time > $3`)).
		WithArgs("consultant-1", "2026-09-01", "09:00:00", "12:00:00").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO consultant_availability`)).
		WithArgs(sqlmock.AnyArg(), "consultant-1", "2026-09-01", "09:00:00", "12:00:00", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`start_time < $4 AND end_time > $3`)).
		WithArgs("consultant-1", "2026-09-02", "14:00:00", "16:00:00").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO consultant_availability`)).
		WithArgs(sqlmock.AnyArg(), "consultant-1", "2026-09-02", "14:00:00", "16:00:00", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.CreateBatch(context.Background(), []models.AvailabilitySlot{
		{ConsultantID: "consultant-1", Date: "2026-09-01", StartTime: "09:00:00", EndTime: "12:00:00"},
		{ConsultantID: "consultant-1", Date: "2026-09-02", StartTime: "14:00:00", EndTime: "16:00:00"},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryCreateBatchRejectsOverlap(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`start_time < $4 AND end_time > $3`)).
		WithArgs("consultant-1", "2026-09-01", "10:00:00", "11:00:00").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.CreateBatch(context.Background(), []models.AvailabilitySlot{{
		ConsultantID: "consultant-1",
		Date:         "2026-09-01",
		StartTime:    "10:00:00",
		EndTime:      "11:00:00",
	}})
	require.ErrorIs(t, err, ErrSlotOverlap)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryCreateBatchRollsBackEarlierInserts(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`start_time < $4 AND end_time > $3`)).
		WithArgs("consultant-1", "2026-09-01", "09:00:00", "12:00:00").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO consultant_availability`)).
		WithArgs(sqlmock.AnyArg(), "consultant-1", "2026-09-01", "09:00:00", "12:00:00", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`start_time < $4 AND end_time > $3`)).
		WithArgs("consultant-1", "2026-09-01", "11:00:00", "13:00:00").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.CreateBatch(context.Background(), []models.AvailabilitySlot{
		{ConsultantID: "consultant-1", Date: "2026-09-01", StartTime: "09:00:00", EndTime: "12:00:00"},
		{ConsultantID: "consultant-1", Date: "2026-09-01", StartTime: "11:00:00", EndTime: "13:00:00"},
	})
	require.ErrorIs(t, err, ErrSlotOverlap)
	require.NoError(t, mock.ExpectationsWereMet())
}
