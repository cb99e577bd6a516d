package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindbridge/consult-api/internal/models"
)

func newConsultationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
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

func bookingParamsFixture() BookingParams {
	return BookingParams{
		SlotID:             "slot-1",
		ConsultantID:       "consultant-1",
		UserID:             "user-1",
		ConsultationTypeID: "type-1",
		ScheduledStartTime: time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestConsultationRepositoryBookCommits(t *testing.T) {
	db, mock, cleanup := newConsultationRepoMock(t)
	defer cleanup()
	repo := NewConsultationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, is_booked FROM consultant_availability WHERE id = $1 FOR UPDATE`)).
		WithArgs("slot-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_booked"}).AddRow("slot-1", false))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO consultations")).
		WithArgs(sqlmock.AnyArg(), "consultant-1", "user-1", "type-1", "slot-1", sqlmock.AnyArg(), string(models.ConsultationScheduled), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE consultant_availability SET is_booked = TRUE WHERE id = $1 AND is_booked = FALSE`)).
		WithArgs("slot-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	consultation, err := repo.Book(context.Background(), bookingParamsFixture())
	require.NoError(t, err)
	assert.NotEmpty(t, consultation.ID)
	assert.Equal(t, models.ConsultationScheduled, consultation.Status)
	assert.Equal(t, "slot-1", consultation.SlotID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsultationRepositoryBookSlotAlreadyBooked(t *testing.T) {
	db, mock, cleanup := newConsultationRepoMock(t)
	defer cleanup()
	repo := NewConsultationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("slot-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_booked"}).AddRow("slot-1", true))
	mock.ExpectRollback()

	_, err := repo.Book(context.Background(), bookingParamsFixture())
	require.ErrorIs(t, err, ErrSlotTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsultationRepositoryBookSlotVanished(t *testing.T) {
	db, mock, cleanup := newConsultationRepoMock(t)
	defer cleanup()
	repo := NewConsultationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("slot-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_booked"}))
	mock.ExpectRollback()

	_, err := repo.Book(context.Background(), bookingParamsFixture())
	require.ErrorIs(t, err, ErrSlotTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsultationRepositoryBookGuardedUpdateLoses(t *testing.T) {
	db, mock, cleanup := newConsultationRepoMock(t)
	defer cleanup()
	repo := NewConsultationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("slot-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_booked"}).AddRow("slot-1", false))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO consultations")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE consultant_availability")).
		WithArgs("slot-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Book(context.Background(), bookingParamsFixture())
	require.ErrorIs(t, err, ErrSlotTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsultationRepositoryBookInsertFailureRollsBack(t *testing.T) {
	db, mock, cleanup := newConsultationRepoMock(t)
	defer cleanup()
	repo := NewConsultationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("slot-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_booked"}).AddRow("slot-1", false))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO consultations")).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := repo.Book(context.Background(), bookingParamsFixture())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSlotTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsultationRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newConsultationRepoMock(t)
	defer cleanup()
	repo := NewConsultationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE consultations SET status = $2, updated_at = $3 WHERE id = $1 AND status = 'scheduled'`)).
		WithArgs("consult-1", string(models.ConsultationCompleted), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "consult-1", models.ConsultationCompleted)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsultationRepositoryUpdateStatusTerminal(t *testing.T) {
	db, mock, cleanup := newConsultationRepoMock(t)
	defer cleanup()
	repo := NewConsultationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE consultations")).
		WithArgs("consult-1", string(models.ConsultationCancelled), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "consult-1", models.ConsultationCancelled)
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsultationRepositoryListByUserFiltersStatus(t *testing.T) {
	db, mock, cleanup := newConsultationRepoMock(t)
	defer cleanup()
	repo := NewConsultationRepository(db)

	rows := sqlmock.NewRows([]string{"id", "consultant_id", "user_id", "consultation_type_id", "slot_id", "scheduled_start_time", "status", "created_at", "updated_at", "consultation_type", "duration_minutes", "consultant_name"}).
		AddRow("consult-1", "consultant-1", "user-1", "type-1", "slot-1", time.Now(), "scheduled", time.Now(), time.Now(), "Standard consultation", 30, "Dana")

	mock.ExpectQuery(regexp.QuoteMeta("FROM consultations c")).
		WithArgs("user-1", "scheduled").
		WillReturnRows(rows)

	items, err := repo.ListByUser(context.Background(), models.ConsultationFilter{UserID: "user-1", Status: models.ConsultationScheduled})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Standard consultation", items[0].ConsultationType)
	require.NoError(t, mock.ExpectationsWereMet())
}
