package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mindbridge/consult-api/internal/models"
	appErrors "github.com/mindbridge/consult-api/pkg/errors"
)

type notificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, id, userID string) (bool, error)
	Delete(ctx context.Context, id, userID string) (bool, error)
	ListPreferences(ctx context.Context, userID string) ([]models.NotificationPreference, error)
	UpsertPreference(ctx context.Context, pref *models.NotificationPreference) error
}

// PreferenceUpdate sets delivery options for one notification type.
type PreferenceUpdate struct {
	Type         models.NotificationType `json:"type" validate:"required,oneof=booking_confirmed booking_cancelled reminder system"`
	Enabled      bool                    `json:"enabled"`
	EmailEnabled bool                    `json:"email_enabled"`
	PushEnabled  bool                    `json:"push_enabled"`
}

// NotificationService manages in-app notifications and per-type preferences.
// It also implements the notifier hook used on booking state changes.
type NotificationService struct {
	repo      notificationRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(repo notificationRepository, validate *validator.Validate, logger *zap.Logger) *NotificationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, validator: validate, logger: logger}
}

// Notify records a notification for the user unless their preference for the
// type disables it. Delivery is best effort and never fails the caller.
func (s *NotificationService) Notify(ctx context.Context, userID string, kind models.NotificationType, title, message string) {
	prefs, err := s.repo.ListPreferences(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to load notification preferences", zap.String("user_id", userID), zap.Error(err))
	}
	for _, pref := range prefs {
		if pref.Type == kind && !pref.Enabled {
			return
		}
	}

	notification := &models.Notification{
		UserID:  userID,
		Type:    kind,
		Title:   title,
		Message: message,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		s.logger.Warn("failed to deliver notification",
			zap.String("user_id", userID),
			zap.String("type", string(kind)),
			zap.Error(err))
	}
}

// List returns a page of the user's notifications.
func (s *NotificationService) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	notifications, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list notifications")
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return notifications, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// MarkRead marks one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	updated, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to mark notification read")
	}
	if !updated {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return nil
}

// Delete removes one of the user's notifications.
func (s *NotificationService) Delete(ctx context.Context, id, userID string) error {
	removed, err := s.repo.Delete(ctx, id, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to delete notification")
	}
	if !removed {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return nil
}

// Preferences returns the user's stored preferences.
func (s *NotificationService) Preferences(ctx context.Context, userID string) ([]models.NotificationPreference, error) {
	prefs, err := s.repo.ListPreferences(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list notification preferences")
	}
	if prefs == nil {
		prefs = []models.NotificationPreference{}
	}
	return prefs, nil
}

// UpdatePreference creates or replaces the preference for one type.
func (s *NotificationService) UpdatePreference(ctx context.Context, userID string, update PreferenceUpdate) (*models.NotificationPreference, error) {
	if err := s.validator.Struct(update); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	pref := &models.NotificationPreference{
		UserID:       userID,
		Type:         update.Type,
		Enabled:      update.Enabled,
		EmailEnabled: update.EmailEnabled,
		PushEnabled:  update.PushEnabled,
	}
	if err := s.repo.UpsertPreference(ctx, pref); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to update notification preference")
	}
	return pref, nil
}
