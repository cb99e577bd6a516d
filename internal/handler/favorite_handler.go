package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mindbridge/consult-api/internal/service"
	appErrors "github.com/mindbridge/consult-api/pkg/errors"
	"github.com/mindbridge/consult-api/pkg/response"
)

// FavoriteHandler serves the user's saved consultants.
type FavoriteHandler struct {
	favorites *service.FavoriteService
}

// NewFavoriteHandler creates a new handler.
func NewFavoriteHandler(favorites *service.FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{favorites: favorites}
}

// List godoc
// @Summary List favorite consultants
// @Tags Favorites
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /favorites [get]
func (h *FavoriteHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	favorites, err := h.favorites.List(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, favorites, nil)
}

// Add godoc
// @Summary Add a favorite consultant
// @Description Save a consultant; adding twice is a no-op
// @Tags Favorites
// @Produce json
// @Param id path string true "Consultant ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /favorites/{id} [put]
func (h *FavoriteHandler) Add(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.favorites.Add(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Remove godoc
// @Summary Remove a favorite consultant
// @Tags Favorites
// @Produce json
// @Param id path string true "Consultant ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /favorites/{id} [delete]
func (h *FavoriteHandler) Remove(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.favorites.Remove(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
