package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mindbridge/consult-api/internal/service"
	appErrors "github.com/mindbridge/consult-api/pkg/errors"
	"github.com/mindbridge/consult-api/pkg/response"
)

// ReviewHandler serves review submission.
type ReviewHandler struct {
	reviews *service.ReviewService
}

// NewReviewHandler creates a new handler.
func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// Create godoc
// @Summary Review a consultation
// @Description Submit a rating for a completed consultation
// @Tags Reviews
// @Accept json
// @Produce json
// @Param payload body service.ReviewRequest true "Review payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /reviews [post]
func (h *ReviewHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}

	review, err := h.reviews.Submit(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, review)
}
