package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mindbridge/consult-api/internal/models"
	"github.com/mindbridge/consult-api/internal/repository"
	appErrors "github.com/mindbridge/consult-api/pkg/errors"
)

type mockConsultantListRepo struct {
	items      []models.ConsultantDetail
	total      int
	listErr    error
	detail     *models.ConsultantDetail
	detailErr  error
	consultant *models.Consultant
	findErr    error
}

func (m *mockConsultantListRepo) List(ctx context.Context, filter models.ConsultantFilter) ([]models.ConsultantDetail, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	return m.items, m.total, nil
}

func (m *mockConsultantListRepo) FindDetailByID(ctx context.Context, id string) (*models.ConsultantDetail, error) {
	if m.detailErr != nil {
		return nil, m.detailErr
	}
	return m.detail, nil
}

func (m *mockConsultantListRepo) FindByID(ctx context.Context, id string) (*models.Consultant, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.consultant, nil
}

type mockAvailabilityStore struct {
	slots    []models.AvailabilitySlot
	created  []models.AvailabilitySlot
	batchErr error
}

func (m *mockAvailabilityStore) ListByConsultantAndRange(ctx context.Context, consultantID, startDate, endDate string) ([]models.AvailabilitySlot, error) {
	return m.slots, nil
}

func (m *mockAvailabilityStore) CreateBatch(ctx context.Context, slots []models.AvailabilitySlot) error {
	if m.batchErr != nil {
		return m.batchErr
	}
	m.created = slots
	return nil
}

type mockTypeCatalogue struct {
	types []models.ConsultationType
}

func (m *mockTypeCatalogue) List(ctx context.Context) ([]models.ConsultationType, error) {
	return m.types, nil
}

func newConsultantFixture() (*mockConsultantListRepo, *mockAvailabilityStore, *ConsultantService) {
	repo := &mockConsultantListRepo{
		detail:     &models.ConsultantDetail{Consultant: models.Consultant{ID: "consultant-1", UserID: "owner-1", Active: true}},
		consultant: &models.Consultant{ID: "consultant-1", UserID: "owner-1", Active: true},
	}
	store := &mockAvailabilityStore{}
	svc := NewConsultantService(repo, store, &mockTypeCatalogue{}, nil, zap.NewNop(), 60)
	return repo, store, svc
}

func TestConsultantServiceBrowseDefaultsPagination(t *testing.T) {
	repo, _, svc := newConsultantFixture()
	repo.items = []models.ConsultantDetail{{}, {}}
	repo.total = 2

	items, pagination, err := svc.Browse(context.Background(), models.ConsultantFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 2, pagination.TotalCount)
}

func TestConsultantServiceAvailabilityEmptyRange(t *testing.T) {
	_, _, svc := newConsultantFixture()

	view, err := svc.Availability(context.Background(), "consultant-1", "2026-09-01", "2026-09-07")
	require.NoError(t, err)
	assert.NotNil(t, view.Slots)
	assert.Empty(t, view.Slots)
	assert.Equal(t, "consultant-1", view.Consultant.ID)
}

func TestConsultantServiceAvailabilityBadDates(t *testing.T) {
	_, _, svc := newConsultantFixture()

	cases := []struct {
		name  string
		start string
		end   string
	}{
		{"malformed start", "01-09-2026", "2026-09-07"},
		{"malformed end", "2026-09-01", "next week"},
		{"inverted range", "2026-09-07", "2026-09-01"},
		{"range too wide", "2026-09-01", "2026-12-31"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Availability(context.Background(), "consultant-1", tc.start, tc.end)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
		})
	}
}

func TestConsultantServiceAvailabilityUnknownConsultant(t *testing.T) {
	repo, _, svc := newConsultantFixture()
	repo.detailErr = sql.ErrNoRows

	_, err := svc.Availability(context.Background(), "ghost", "2026-09-01", "2026-09-07")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestConsultantServicePublishAvailability(t *testing.T) {
	_, store, svc := newConsultantFixture()
	claims := &models.JWTClaims{UserID: "owner-1", Role: models.RoleConsultant}

	slots, err := svc.PublishAvailability(context.Background(), claims, "consultant-1", []SlotInput{
		{Date: "2026-09-01", StartTime: "09:00:00", EndTime: "12:00:00"},
		{Date: "2026-09-02", StartTime: "14:00:00", EndTime: "16:00:00"},
	})
	require.NoError(t, err)
	assert.Len(t, slots, 2)
	assert.Len(t, store.created, 2)
	assert.Equal(t, "consultant-1", store.created[0].ConsultantID)
}

func TestConsultantServicePublishAvailabilityForbidden(t *testing.T) {
	_, store, svc := newConsultantFixture()
	claims := &models.JWTClaims{UserID: "other-user", Role: models.RoleConsultant}

	_, err := svc.PublishAvailability(context.Background(), claims, "consultant-1", []SlotInput{
		{Date: "2026-09-01", StartTime: "09:00:00", EndTime: "12:00:00"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.created)
}

func TestConsultantServicePublishAvailabilityInvertedWindow(t *testing.T) {
	_, _, svc := newConsultantFixture()
	claims := &models.JWTClaims{UserID: "owner-1", Role: models.RoleConsultant}

	_, err := svc.PublishAvailability(context.Background(), claims, "consultant-1", []SlotInput{
		{Date: "2026-09-01", StartTime: "12:00:00", EndTime: "09:00:00"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestConsultantServicePublishAvailabilityOverlap(t *testing.T) {
	_, store, svc := newConsultantFixture()
	store.batchErr = fmt.Errorf("%w: 2026-09-01 09:00:00-12:00:00", repository.ErrSlotOverlap)
	claims := &models.JWTClaims{UserID: "owner-1", Role: models.RoleAdmin}

	_, err := svc.PublishAvailability(context.Background(), claims, "consultant-1", []SlotInput{
		{Date: "2026-09-01", StartTime: "09:00:00", EndTime: "12:00:00"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestConsultantServicePublishAvailabilityStorageFailure(t *testing.T) {
	_, store, svc := newConsultantFixture()
	store.batchErr = errors.New("connection refused")
	claims := &models.JWTClaims{UserID: "owner-1", Role: models.RoleAdmin}

	_, err := svc.PublishAvailability(context.Background(), claims, "consultant-1", []SlotInput{
		{Date: "2026-09-01", StartTime: "09:00:00", EndTime: "12:00:00"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStorage.Code, appErrors.FromError(err).Code)
}
