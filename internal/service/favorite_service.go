package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/mindbridge/consult-api/internal/models"
	appErrors "github.com/mindbridge/consult-api/pkg/errors"
)

type favoriteRepository interface {
	Add(ctx context.Context, userID, consultantID string) error
	Remove(ctx context.Context, userID, consultantID string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]models.FavoriteDetail, error)
}

// FavoriteService manages a user's saved consultants.
type FavoriteService struct {
	repo        favoriteRepository
	consultants consultantReader
	logger      *zap.Logger
}

// NewFavoriteService constructs a FavoriteService.
func NewFavoriteService(repo favoriteRepository, consultants consultantReader, logger *zap.Logger) *FavoriteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FavoriteService{repo: repo, consultants: consultants, logger: logger}
}

// Add saves a consultant to the user's favorites. Adding an existing
// favorite is a no-op.
func (s *FavoriteService) Add(ctx context.Context, userID, consultantID string) error {
	consultant, err := s.consultants.FindByID(ctx, consultantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "consultant not found")
		}
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load consultant")
	}
	if !consultant.Active {
		return appErrors.Clone(appErrors.ErrNotFound, "consultant not found")
	}

	if err := s.repo.Add(ctx, userID, consultantID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to save favorite")
	}
	return nil
}

// Remove drops a consultant from the user's favorites.
func (s *FavoriteService) Remove(ctx context.Context, userID, consultantID string) error {
	removed, err := s.repo.Remove(ctx, userID, consultantID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to remove favorite")
	}
	if !removed {
		return appErrors.Clone(appErrors.ErrNotFound, "favorite not found")
	}
	return nil
}

// List returns the user's favorites with consultant details.
func (s *FavoriteService) List(ctx context.Context, userID string) ([]models.FavoriteDetail, error) {
	favorites, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list favorites")
	}
	if favorites == nil {
		favorites = []models.FavoriteDetail{}
	}
	return favorites, nil
}
