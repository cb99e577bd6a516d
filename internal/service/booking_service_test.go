package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mindbridge/consult-api/internal/models"
	"github.com/mindbridge/consult-api/internal/repository"
	appErrors "github.com/mindbridge/consult-api/pkg/errors"
)

type mockBookingRepo struct {
	bookParams    *repository.BookingParams
	bookErr       error
	booked        *models.Consultation
	consultation  *models.Consultation
	findErr       error
	listed        []models.ConsultationDetail
	listFilter    models.ConsultationFilter
	statusErr     error
	statusUpdates []models.ConsultationStatus
	analytics     *models.BookingAnalytics
}

func (m *mockBookingRepo) Book(ctx context.Context, params repository.BookingParams) (*models.Consultation, error) {
	m.bookParams = &params
	if m.bookErr != nil {
		return nil, m.bookErr
	}
	if m.booked != nil {
		return m.booked, nil
	}
	return &models.Consultation{
		ID:                 "consult-1",
		ConsultantID:       params.ConsultantID,
		UserID:             params.UserID,
		ConsultationTypeID: params.ConsultationTypeID,
		SlotID:             params.SlotID,
		ScheduledStartTime: params.ScheduledStartTime,
		Status:             models.ConsultationScheduled,
	}, nil
}

func (m *mockBookingRepo) FindByID(ctx context.Context, id string) (*models.Consultation, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.consultation, nil
}

func (m *mockBookingRepo) ListByUser(ctx context.Context, filter models.ConsultationFilter) ([]models.ConsultationDetail, error) {
	m.listFilter = filter
	return m.listed, nil
}

func (m *mockBookingRepo) UpdateStatus(ctx context.Context, id string, status models.ConsultationStatus) error {
	if m.statusErr != nil {
		return m.statusErr
	}
	m.statusUpdates = append(m.statusUpdates, status)
	return nil
}

func (m *mockBookingRepo) Analytics(ctx context.Context, filter models.AnalyticsFilter) (*models.BookingAnalytics, error) {
	return m.analytics, nil
}

type mockSlotReader struct {
	slot *models.AvailabilitySlot
	err  error
}

func (m *mockSlotReader) FindOpenSlot(ctx context.Context, consultantID, date, startTime string) (*models.AvailabilitySlot, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.slot, nil
}

type mockConsultantReader struct {
	consultant *models.Consultant
	err        error
}

func (m *mockConsultantReader) FindByID(ctx context.Context, id string) (*models.Consultant, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.consultant, nil
}

type mockTypeReader struct {
	ctype *models.ConsultationType
	err   error
}

func (m *mockTypeReader) FindByID(ctx context.Context, id string) (*models.ConsultationType, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.ctype, nil
}

type mockNotifier struct {
	notified []models.NotificationType
}

func (m *mockNotifier) Notify(ctx context.Context, userID string, kind models.NotificationType, title, message string) {
	m.notified = append(m.notified, kind)
}

type bookingFixture struct {
	repo        *mockBookingRepo
	slots       *mockSlotReader
	consultants *mockConsultantReader
	types       *mockTypeReader
	notifier    *mockNotifier
	svc         *BookingService
}

func newBookingFixture() *bookingFixture {
	f := &bookingFixture{
		repo: &mockBookingRepo{},
		slots: &mockSlotReader{slot: &models.AvailabilitySlot{
			ID:           "slot-1",
			ConsultantID: "consultant-1",
			Date:         "2026-09-01",
			StartTime:    "09:00:00",
			EndTime:      "12:00:00",
		}},
		consultants: &mockConsultantReader{consultant: &models.Consultant{ID: "consultant-1", UserID: "owner-1", Active: true}},
		types:       &mockTypeReader{ctype: &models.ConsultationType{ID: "type-1", Name: "Standard consultation", DurationMinutes: 30}},
		notifier:    &mockNotifier{},
	}
	f.svc = NewBookingService(f.repo, f.slots, f.consultants, f.types, f.notifier, nil, nil, validator.New(), zap.NewNop(), true)
	return f
}

func bookingRequestFixture() BookingRequest {
	return BookingRequest{
		ConsultantID:       "consultant-1",
		ConsultationTypeID: "type-1",
		ScheduledStartTime: time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestBookingServiceBookSuccess(t *testing.T) {
	f := newBookingFixture()

	result, err := f.svc.Book(context.Background(), "user-1", bookingRequestFixture())
	require.NoError(t, err)
	assert.Equal(t, "consult-1", result.ConsultationID)
	assert.Equal(t, "Standard consultation", result.ConsultationType)
	assert.Equal(t, 30, result.DurationMinutes)

	require.NotNil(t, f.repo.bookParams)
	assert.Equal(t, "slot-1", f.repo.bookParams.SlotID)
	assert.Equal(t, "user-1", f.repo.bookParams.UserID)
	assert.Equal(t, []models.NotificationType{models.NotificationBookingConfirmed}, f.notifier.notified)
}

func TestBookingServiceBookUnknownConsultant(t *testing.T) {
	f := newBookingFixture()
	f.consultants.err = sql.ErrNoRows

	_, err := f.svc.Book(context.Background(), "user-1", bookingRequestFixture())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Nil(t, f.repo.bookParams)
}

func TestBookingServiceBookInactiveConsultant(t *testing.T) {
	f := newBookingFixture()
	f.consultants.consultant.Active = false

	_, err := f.svc.Book(context.Background(), "user-1", bookingRequestFixture())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Nil(t, f.repo.bookParams)
}

func TestBookingServiceBookUnknownType(t *testing.T) {
	f := newBookingFixture()
	f.types.err = sql.ErrNoRows

	_, err := f.svc.Book(context.Background(), "user-1", bookingRequestFixture())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Nil(t, f.repo.bookParams)
}

func TestBookingServiceBookNoOpenSlot(t *testing.T) {
	f := newBookingFixture()
	f.slots.err = sql.ErrNoRows

	_, err := f.svc.Book(context.Background(), "user-1", bookingRequestFixture())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSlotUnavailable.Code, appErrors.FromError(err).Code)
	assert.Nil(t, f.repo.bookParams)
}

func TestBookingServiceBookDurationOverflowsSlot(t *testing.T) {
	f := newBookingFixture()
	// The 11:45 start is inside the slot but a 30 minute session ends at
	// 12:15, past the slot's end.
	req := bookingRequestFixture()
	req.ScheduledStartTime = time.Date(2026, 9, 1, 11, 45, 0, 0, time.UTC)

	_, err := f.svc.Book(context.Background(), "user-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSlotUnavailable.Code, appErrors.FromError(err).Code)
	assert.Nil(t, f.repo.bookParams)
	assert.Empty(t, f.notifier.notified)
}

func TestBookingServiceBookRaceLoserGetsSlotUnavailable(t *testing.T) {
	f := newBookingFixture()
	f.repo.bookErr = repository.ErrSlotTaken

	_, err := f.svc.Book(context.Background(), "user-1", bookingRequestFixture())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSlotUnavailable.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.notifier.notified)
}

func TestBookingServiceBookStorageFailure(t *testing.T) {
	f := newBookingFixture()
	f.repo.bookErr = assert.AnError

	_, err := f.svc.Book(context.Background(), "user-1", bookingRequestFixture())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStorage.Code, appErrors.FromError(err).Code)
}

func TestBookingServiceBookMidnightCrossing(t *testing.T) {
	f := newBookingFixture()
	req := bookingRequestFixture()
	req.ScheduledStartTime = time.Date(2026, 9, 1, 23, 45, 0, 0, time.UTC)

	_, err := f.svc.Book(context.Background(), "user-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSlotUnavailable.Code, appErrors.FromError(err).Code)
	assert.Nil(t, f.repo.bookParams)
}

func TestBookingServiceBookInvalidPayload(t *testing.T) {
	f := newBookingFixture()

	_, err := f.svc.Book(context.Background(), "user-1", BookingRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, f.repo.bookParams)
}

func TestBookingServiceMyConsultationsRejectsUnknownStatus(t *testing.T) {
	f := newBookingFixture()

	_, err := f.svc.MyConsultations(context.Background(), "user-1", models.ConsultationStatus("postponed"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBookingServiceMyConsultationsPassesFilter(t *testing.T) {
	f := newBookingFixture()
	f.repo.listed = []models.ConsultationDetail{{}}

	items, err := f.svc.MyConsultations(context.Background(), "user-1", models.ConsultationCompleted)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, models.ConsultationCompleted, f.repo.listFilter.Status)
}

func TestBookingServiceCompleteByConsultant(t *testing.T) {
	f := newBookingFixture()
	f.repo.consultation = &models.Consultation{ID: "consult-1", ConsultantID: "consultant-1", UserID: "user-1", Status: models.ConsultationScheduled}
	claims := &models.JWTClaims{UserID: "owner-1", Role: models.RoleConsultant}

	err := f.svc.Complete(context.Background(), "consult-1", claims)
	require.NoError(t, err)
	assert.Equal(t, []models.ConsultationStatus{models.ConsultationCompleted}, f.repo.statusUpdates)
}

func TestBookingServiceCompleteForbiddenForStranger(t *testing.T) {
	f := newBookingFixture()
	f.repo.consultation = &models.Consultation{ID: "consult-1", ConsultantID: "consultant-1", UserID: "user-1"}
	claims := &models.JWTClaims{UserID: "someone-else", Role: models.RoleConsultant}

	err := f.svc.Complete(context.Background(), "consult-1", claims)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.repo.statusUpdates)
}

func TestBookingServiceCancelByBookingUser(t *testing.T) {
	f := newBookingFixture()
	f.repo.consultation = &models.Consultation{ID: "consult-1", ConsultantID: "consultant-1", UserID: "user-1", ScheduledStartTime: time.Now()}
	claims := &models.JWTClaims{UserID: "user-1", Role: models.RoleUser}

	err := f.svc.Cancel(context.Background(), "consult-1", claims)
	require.NoError(t, err)
	assert.Equal(t, []models.ConsultationStatus{models.ConsultationCancelled}, f.repo.statusUpdates)
	assert.Equal(t, []models.NotificationType{models.NotificationBookingCancelled}, f.notifier.notified)
}

func TestBookingServiceCancelTerminalConflicts(t *testing.T) {
	f := newBookingFixture()
	f.repo.consultation = &models.Consultation{ID: "consult-1", UserID: "user-1"}
	f.repo.statusErr = repository.ErrInvalidTransition
	claims := &models.JWTClaims{UserID: "user-1", Role: models.RoleUser}

	err := f.svc.Cancel(context.Background(), "consult-1", claims)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.notifier.notified)
}

func TestBookingServiceCancelUnknownConsultation(t *testing.T) {
	f := newBookingFixture()
	f.repo.findErr = sql.ErrNoRows
	claims := &models.JWTClaims{UserID: "user-1", Role: models.RoleUser}

	err := f.svc.Cancel(context.Background(), "consult-1", claims)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
