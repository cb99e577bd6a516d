package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mindbridge/consult-api/internal/models"
	"github.com/mindbridge/consult-api/internal/service"
	appErrors "github.com/mindbridge/consult-api/pkg/errors"
	"github.com/mindbridge/consult-api/pkg/response"
)

// BookingHandler serves consultation booking and lifecycle endpoints.
type BookingHandler struct {
	bookings *service.BookingService
	metrics  *service.MetricsService
}

// NewBookingHandler creates a new handler.
func NewBookingHandler(bookings *service.BookingService, metrics *service.MetricsService) *BookingHandler {
	return &BookingHandler{bookings: bookings, metrics: metrics}
}

// Book godoc
// @Summary Book a consultation
// @Description Reserve an open availability slot for a consultation
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body service.BookingRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /consultations [post]
func (h *BookingHandler) Book(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
		return
	}

	result, err := h.bookings.Book(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// List godoc
// @Summary List own consultations
// @Tags Bookings
// @Produce json
// @Param status query string false "Status filter (scheduled, completed, cancelled)"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /consultations [get]
func (h *BookingHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	status := models.ConsultationStatus(c.Query("status"))
	consultations, err := h.bookings.MyConsultations(c.Request.Context(), claims.UserID, status)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, consultations, nil)
}

// Complete godoc
// @Summary Mark a consultation completed
// @Tags Bookings
// @Produce json
// @Param id path string true "Consultation ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /consultations/{id}/complete [post]
func (h *BookingHandler) Complete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.bookings.Complete(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Cancel godoc
// @Summary Cancel a consultation
// @Tags Bookings
// @Produce json
// @Param id path string true "Consultation ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /consultations/{id}/cancel [post]
func (h *BookingHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.bookings.Cancel(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Analytics godoc
// @Summary Booking analytics
// @Description Aggregate booking counts, ratings and runtime metrics
// @Tags Bookings
// @Produce json
// @Param start_date query string false "Range start (YYYY-MM-DD)"
// @Param end_date query string false "Range end (YYYY-MM-DD)"
// @Param consultant_id query string false "Consultant filter"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /analytics/bookings [get]
func (h *BookingHandler) Analytics(c *gin.Context) {
	filter := models.AnalyticsFilter{ConsultantID: c.Query("consultant_id")}
	if raw := c.Query("start_date"); raw != "" {
		start, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "start_date must be formatted YYYY-MM-DD"))
			return
		}
		filter.StartDate = &start
	}
	if raw := c.Query("end_date"); raw != "" {
		end, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "end_date must be formatted YYYY-MM-DD"))
			return
		}
		filter.EndDate = &end
	}

	analytics, err := h.bookings.Analytics(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	meta := map[string]interface{}{"system": h.metrics.Snapshot()}
	response.JSON(c, http.StatusOK, analytics, nil, meta)
}
