package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mindbridge/consult-api/internal/models"
	"github.com/mindbridge/consult-api/internal/repository"
	appErrors "github.com/mindbridge/consult-api/pkg/errors"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

type bookingRepository interface {
	Book(ctx context.Context, params repository.BookingParams) (*models.Consultation, error)
	FindByID(ctx context.Context, id string) (*models.Consultation, error)
	ListByUser(ctx context.Context, filter models.ConsultationFilter) ([]models.ConsultationDetail, error)
	UpdateStatus(ctx context.Context, id string, status models.ConsultationStatus) error
	Analytics(ctx context.Context, filter models.AnalyticsFilter) (*models.BookingAnalytics, error)
}

type slotReader interface {
	FindOpenSlot(ctx context.Context, consultantID, date, startTime string) (*models.AvailabilitySlot, error)
}

type consultantReader interface {
	FindByID(ctx context.Context, id string) (*models.Consultant, error)
}

type consultationTypeReader interface {
	FindByID(ctx context.Context, id string) (*models.ConsultationType, error)
}

type bookingNotifier interface {
	Notify(ctx context.Context, userID string, kind models.NotificationType, title, message string)
}

// BookingRequest is the payload for booking a consultation.
type BookingRequest struct {
	ConsultantID       string    `json:"consultant_id" validate:"required"`
	ConsultationTypeID string    `json:"consultation_type_id" validate:"required"`
	ScheduledStartTime time.Time `json:"scheduled_start_time" validate:"required"`
}

// BookingService coordinates slot conflict checking and the booking transaction.
type BookingService struct {
	repo        bookingRepository
	slots       slotReader
	consultants consultantReader
	types       consultationTypeReader
	notifier    bookingNotifier
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	notify      bool
}

// NewBookingService constructs a BookingService.
func NewBookingService(repo bookingRepository, slots slotReader, consultants consultantReader, types consultationTypeReader, notifier bookingNotifier, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, notify bool) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		repo:        repo,
		slots:       slots,
		consultants: consultants,
		types:       types,
		notifier:    notifier,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		notify:      notify,
	}
}

// Book reserves a free slot for the user and creates the consultation.
// Preconditions are checked in order: consultant, consultation type, then
// slot coverage; the final claim happens inside the repository transaction
// so concurrent requests for the same slot cannot both succeed.
func (s *BookingService) Book(ctx context.Context, userID string, req BookingRequest) (*models.BookingResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}

	consultant, err := s.consultants.FindByID(ctx, req.ConsultantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "consultant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load consultant")
	}
	if !consultant.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "consultant not found")
	}

	ctype, err := s.types.FindByID(ctx, req.ConsultationTypeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "consultation type not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load consultation type")
	}

	start := req.ScheduledStartTime.UTC()
	end := start.Add(time.Duration(ctype.DurationMinutes) * time.Minute)
	date := start.Format(dateLayout)
	startTime := start.Format(timeLayout)
	endTime := end.Format(timeLayout)

	// A consultation crossing midnight can never fit a same-day slot.
	if end.Format(dateLayout) != date {
		s.recordOutcome("slot_unavailable")
		return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "requested time slot is not available")
	}

	slot, err := s.slots.FindOpenSlot(ctx, req.ConsultantID, date, startTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.recordOutcome("slot_unavailable")
			return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "requested time slot is not available")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to check availability")
	}
	if !slot.Contains(startTime, endTime) {
		s.recordOutcome("slot_unavailable")
		return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "consultation does not fit within the available slot")
	}

	consultation, err := s.repo.Book(ctx, repository.BookingParams{
		SlotID:             slot.ID,
		ConsultantID:       req.ConsultantID,
		UserID:             userID,
		ConsultationTypeID: req.ConsultationTypeID,
		ScheduledStartTime: start,
	})
	if err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			s.recordOutcome("slot_unavailable")
			return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "requested time slot is not available")
		}
		s.recordOutcome("failed")
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to book consultation")
	}
	s.recordOutcome("booked")

	s.invalidateCaches(ctx, req.ConsultantID)

	if s.notify && s.notifier != nil {
		message := fmt.Sprintf("Your %s on %s at %s is confirmed.", ctype.Name, date, startTime)
		s.notifier.Notify(ctx, userID, models.NotificationBookingConfirmed, "Booking confirmed", message)
	}

	return &models.BookingResult{
		ConsultationID:     consultation.ID,
		ConsultantID:       consultation.ConsultantID,
		ConsultationType:   ctype.Name,
		ScheduledStartTime: consultation.ScheduledStartTime,
		DurationMinutes:    ctype.DurationMinutes,
	}, nil
}

// MyConsultations lists the caller's consultations with an optional status filter.
func (s *BookingService) MyConsultations(ctx context.Context, userID string, status models.ConsultationStatus) ([]models.ConsultationDetail, error) {
	switch status {
	case "", models.ConsultationScheduled, models.ConsultationCompleted, models.ConsultationCancelled:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown consultation status")
	}
	consultations, err := s.repo.ListByUser(ctx, models.ConsultationFilter{UserID: userID, Status: status})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list consultations")
	}
	return consultations, nil
}

// Complete marks a scheduled consultation as completed. Only the consultant's
// own account or an admin may complete a consultation.
func (s *BookingService) Complete(ctx context.Context, id string, claims *models.JWTClaims) error {
	consultation, err := s.loadConsultation(ctx, id)
	if err != nil {
		return err
	}

	if claims.Role != models.RoleAdmin {
		consultant, err := s.consultants.FindByID(ctx, consultation.ConsultantID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load consultant")
		}
		if consultant.UserID != claims.UserID {
			return appErrors.Clone(appErrors.ErrForbidden, "only the consultant can complete this consultation")
		}
	}

	if err := s.repo.UpdateStatus(ctx, id, models.ConsultationCompleted); err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			return appErrors.Clone(appErrors.ErrConflict, "consultation is already completed or cancelled")
		}
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to complete consultation")
	}
	return nil
}

// Cancel marks a scheduled consultation as cancelled. Only the booking user
// or an admin may cancel. The slot is not reopened.
func (s *BookingService) Cancel(ctx context.Context, id string, claims *models.JWTClaims) error {
	consultation, err := s.loadConsultation(ctx, id)
	if err != nil {
		return err
	}

	if claims.Role != models.RoleAdmin && consultation.UserID != claims.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the booking user can cancel this consultation")
	}

	if err := s.repo.UpdateStatus(ctx, id, models.ConsultationCancelled); err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			return appErrors.Clone(appErrors.ErrConflict, "consultation is already completed or cancelled")
		}
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to cancel consultation")
	}

	if s.notify && s.notifier != nil {
		s.notifier.Notify(ctx, consultation.UserID, models.NotificationBookingCancelled, "Booking cancelled",
			fmt.Sprintf("Your consultation on %s was cancelled.", consultation.ScheduledStartTime.Format(dateLayout)))
	}
	return nil
}

// Analytics aggregates consultation outcomes.
func (s *BookingService) Analytics(ctx context.Context, filter models.AnalyticsFilter) (*models.BookingAnalytics, error) {
	analytics, err := s.repo.Analytics(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to compute analytics")
	}
	return analytics, nil
}

func (s *BookingService) loadConsultation(ctx context.Context, id string) (*models.Consultation, error) {
	consultation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "consultation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load consultation")
	}
	return consultation, nil
}

func (s *BookingService) recordOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordBookingOutcome(outcome)
	}
}

func (s *BookingService) invalidateCaches(ctx context.Context, consultantID string) {
	if s.cache == nil || !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, "consultants:*"); err != nil {
		s.logger.Warn("failed to invalidate consultant cache", zap.Error(err))
	}
	if err := s.cache.Invalidate(ctx, "availability:"+consultantID+":*"); err != nil {
		s.logger.Warn("failed to invalidate availability cache", zap.String("consultant_id", consultantID), zap.Error(err))
	}
}
