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

type consultantListRepository interface {
	List(ctx context.Context, filter models.ConsultantFilter) ([]models.ConsultantDetail, int, error)
	FindDetailByID(ctx context.Context, id string) (*models.ConsultantDetail, error)
	FindByID(ctx context.Context, id string) (*models.Consultant, error)
}

type availabilityStore interface {
	ListByConsultantAndRange(ctx context.Context, consultantID, startDate, endDate string) ([]models.AvailabilitySlot, error)
	CreateBatch(ctx context.Context, slots []models.AvailabilitySlot) error
}

type typeCatalogue interface {
	List(ctx context.Context) ([]models.ConsultationType, error)
}

// AvailabilityView is the availability listing returned to callers.
type AvailabilityView struct {
	Consultant models.ConsultantDetail  `json:"consultant"`
	Slots      []models.AvailabilitySlot `json:"availability"`
}

// ConsultantService serves consultant browsing and availability reads.
type ConsultantService struct {
	repo         consultantListRepository
	availability availabilityStore
	types        typeCatalogue
	cache        *CacheService
	validator    *validator.Validate
	logger       *zap.Logger
	maxRangeDays int
}

// NewConsultantService constructs a ConsultantService.
func NewConsultantService(repo consultantListRepository, availability availabilityStore, types typeCatalogue, cache *CacheService, logger *zap.Logger, maxRangeDays int) *ConsultantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRangeDays <= 0 {
		maxRangeDays = 60
	}
	return &ConsultantService{
		repo:         repo,
		availability: availability,
		types:        types,
		cache:        cache,
		validator:    validator.New(),
		logger:       logger,
		maxRangeDays: maxRangeDays,
	}
}

type consultantPage struct {
	Items      []models.ConsultantDetail `json:"items"`
	Pagination models.Pagination         `json:"pagination"`
}

// Browse lists active consultants matching the filter.
func (s *ConsultantService) Browse(ctx context.Context, filter models.ConsultantFilter) ([]models.ConsultantDetail, *models.Pagination, error) {
	key := browseCacheKey(filter)

	if s.cache.Enabled() {
		var cached consultantPage
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached.Items, &cached.Pagination, nil
		}
	}

	consultants, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list consultants")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, key, consultantPage{Items: consultants, Pagination: *pagination}, 0); err != nil {
			s.logger.Warn("failed to cache consultant listing", zap.Error(err))
		}
	}

	return consultants, pagination, nil
}

// Details returns a consultant profile with review aggregates.
func (s *ConsultantService) Details(ctx context.Context, id string) (*models.ConsultantDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "consultant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load consultant")
	}
	return detail, nil
}

// Availability returns the consultant's published slots for a date range.
// An empty list is a valid result; an unknown consultant is NotFound.
func (s *ConsultantService) Availability(ctx context.Context, consultantID, startDate, endDate string) (*AvailabilityView, error) {
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_date must be formatted YYYY-MM-DD")
	}
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must be formatted YYYY-MM-DD")
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not precede start_date")
	}
	if end.Sub(start) > time.Duration(s.maxRangeDays)*24*time.Hour {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("date range exceeds %d days", s.maxRangeDays))
	}

	detail, err := s.Details(ctx, consultantID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("availability:%s:%s:%s", consultantID, startDate, endDate)
	if s.cache.Enabled() {
		var cached AvailabilityView
		if hit, cacheErr := s.cache.Get(ctx, key, &cached); cacheErr == nil && hit {
			return &cached, nil
		}
	}

	slots, err := s.availability.ListByConsultantAndRange(ctx, consultantID, startDate, endDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list availability")
	}
	if slots == nil {
		slots = []models.AvailabilitySlot{}
	}

	view := &AvailabilityView{Consultant: *detail, Slots: slots}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, key, view, 0); err != nil {
			s.logger.Warn("failed to cache availability", zap.Error(err))
		}
	}

	return view, nil
}

// SlotInput is one availability window a consultant publishes.
type SlotInput struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04:05"`
	EndTime   string `json:"end_time" validate:"required,datetime=15:04:05"`
}

// PublishAvailability creates open slots for the consultant. Only the
// consultant's own account or an admin may publish, and windows that
// overlap existing slots are rejected as a whole.
func (s *ConsultantService) PublishAvailability(ctx context.Context, claims *models.JWTClaims, consultantID string, inputs []SlotInput) ([]models.AvailabilitySlot, error) {
	if len(inputs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one slot is required")
	}

	consultant, err := s.repo.FindByID(ctx, consultantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "consultant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load consultant")
	}
	if claims.Role != models.RoleAdmin && consultant.UserID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot publish availability for another consultant")
	}

	slots := make([]models.AvailabilitySlot, 0, len(inputs))
	for _, input := range inputs {
		if err := s.validator.Struct(input); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "slots need date YYYY-MM-DD and times HH:MM:SS")
		}
		if input.StartTime >= input.EndTime {
			return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must precede end_time")
		}
		slots = append(slots, models.AvailabilitySlot{
			ConsultantID: consultantID,
			Date:         input.Date,
			StartTime:    input.StartTime,
			EndTime:      input.EndTime,
		})
	}

	if err := s.availability.CreateBatch(ctx, slots); err != nil {
		if errors.Is(err, repository.ErrSlotOverlap) {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "availability overlaps existing slots")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to publish availability")
	}

	if s.cache.Enabled() {
		if err := s.cache.Invalidate(ctx, fmt.Sprintf("availability:%s:*", consultantID)); err != nil {
			s.logger.Warn("failed to invalidate availability cache", zap.Error(err))
		}
	}

	return slots, nil
}

// Types returns the consultation type catalogue.
func (s *ConsultantService) Types(ctx context.Context) ([]models.ConsultationType, error) {
	types, err := s.types.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list consultation types")
	}
	return types, nil
}

func browseCacheKey(filter models.ConsultantFilter) string {
	minRating := ""
	if filter.MinRating != nil {
		minRating = fmt.Sprintf("%.1f", *filter.MinRating)
	}
	maxPrice := ""
	if filter.MaxPrice != nil {
		maxPrice = fmt.Sprintf("%.2f", *filter.MaxPrice)
	}
	return fmt.Sprintf("consultants:%s:%s:%s:%s:%d:%d", filter.Expertise, filter.Language, minRating, maxPrice, filter.Page, filter.PageSize)
}
