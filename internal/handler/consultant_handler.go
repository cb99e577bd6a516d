package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mindbridge/consult-api/internal/models"
	"github.com/mindbridge/consult-api/internal/service"
	appErrors "github.com/mindbridge/consult-api/pkg/errors"
	"github.com/mindbridge/consult-api/pkg/response"
)

// ConsultantHandler serves consultant browsing and availability endpoints.
type ConsultantHandler struct {
	consultants *service.ConsultantService
	reviews     *service.ReviewService
}

// NewConsultantHandler creates a new handler.
func NewConsultantHandler(consultants *service.ConsultantService, reviews *service.ReviewService) *ConsultantHandler {
	return &ConsultantHandler{consultants: consultants, reviews: reviews}
}

// List godoc
// @Summary Browse consultants
// @Description List active consultants with optional filters
// @Tags Consultants
// @Produce json
// @Param expertise query string false "Expertise filter"
// @Param language query string false "Language filter"
// @Param min_rating query number false "Minimum average rating"
// @Param max_price query number false "Maximum hourly rate"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /consultants [get]
func (h *ConsultantHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	filter := models.ConsultantFilter{
		Expertise: c.Query("expertise"),
		Language:  c.Query("language"),
		Page:      page,
		PageSize:  pageSize,
	}
	if raw := c.Query("min_rating"); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "min_rating must be a number"))
			return
		}
		filter.MinRating = &value
	}
	if raw := c.Query("max_price"); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "max_price must be a number"))
			return
		}
		filter.MaxPrice = &value
	}

	consultants, pagination, err := h.consultants.Browse(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, consultants, pagination)
}

// Get godoc
// @Summary Get consultant details
// @Tags Consultants
// @Produce json
// @Param id path string true "Consultant ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /consultants/{id} [get]
func (h *ConsultantHandler) Get(c *gin.Context) {
	detail, err := h.consultants.Details(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// Availability godoc
// @Summary List consultant availability
// @Description List published availability slots for a date range
// @Tags Consultants
// @Produce json
// @Param id path string true "Consultant ID"
// @Param start_date query string true "Range start (YYYY-MM-DD)"
// @Param end_date query string true "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /consultants/{id}/availability [get]
func (h *ConsultantHandler) Availability(c *gin.Context) {
	view, err := h.consultants.Availability(c.Request.Context(), c.Param("id"), c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, view, nil)
}

// PublishAvailability godoc
// @Summary Publish availability slots
// @Description Create open slots for the consultant's own profile
// @Tags Consultants
// @Accept json
// @Produce json
// @Param id path string true "Consultant ID"
// @Param payload body []service.SlotInput true "Slots to publish"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /consultants/{id}/availability [post]
func (h *ConsultantHandler) PublishAvailability(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var inputs []service.SlotInput
	if err := c.ShouldBindJSON(&inputs); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability payload"))
		return
	}

	slots, err := h.consultants.PublishAvailability(c.Request.Context(), claims, c.Param("id"), inputs)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, slots)
}

// Reviews godoc
// @Summary List consultant reviews
// @Tags Consultants
// @Produce json
// @Param id path string true "Consultant ID"
// @Success 200 {object} response.Envelope
// @Router /consultants/{id}/reviews [get]
func (h *ConsultantHandler) Reviews(c *gin.Context) {
	reviews, err := h.reviews.ListByConsultant(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, reviews, nil)
}

// Types godoc
// @Summary List consultation types
// @Tags Consultants
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /consultation-types [get]
func (h *ConsultantHandler) Types(c *gin.Context) {
	types, err := h.consultants.Types(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, types, nil)
}
