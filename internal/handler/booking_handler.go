package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutorease/tutorease-api/internal/models"
	"github.com/tutorease/tutorease-api/internal/service"
	appErrors "github.com/tutorease/tutorease-api/pkg/errors"
	"github.com/tutorease/tutorease-api/pkg/response"
)

// BookingHandler wires HTTP endpoints to the booking service.
type BookingHandler struct {
	service *service.BookingService
}

// NewBookingHandler creates a new handler.
func NewBookingHandler(svc *service.BookingService) *BookingHandler {
	return &BookingHandler{service: svc}
}

// List godoc
// @Summary List bookings
// @Description List bookings scoped to the caller's role
// @Tags Bookings
// @Produce json
// @Param status query string false "Status filter"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /bookings [get]
func (h *BookingHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.BookingFilter{
		Status:   c.Query("status"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}
	bookings, pagination, err := h.service.List(c.Request.Context(), claims.UserID, claims.Role, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, pagination)
}

// Get godoc
// @Summary Get one booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /bookings/{id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	booking, err := h.service.Get(c.Request.Context(), claims.UserID, claims.Role, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// Create godoc
// @Summary Request a booking
// @Description Reserve one offering time range for a number of months
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body service.CreateBookingRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
		return
	}

	booking, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, booking)
}

// Confirm godoc
// @Summary Accept a booking request
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /bookings/{id}/confirm [post]
func (h *BookingHandler) Confirm(c *gin.Context) {
	h.transition(c, h.service.Confirm)
}

// Start godoc
// @Summary Mark lessons started
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /bookings/{id}/start [post]
func (h *BookingHandler) Start(c *gin.Context) {
	h.transition(c, h.service.Start)
}

// Cancel godoc
// @Summary Cancel a booking
// @Description Cancel a booking with a mandatory reason
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body object true "Cancellation reason"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /bookings/{id}/cancel [post]
func (h *BookingHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid cancellation payload"))
		return
	}

	booking, err := h.service.Cancel(c.Request.Context(), claims.UserID, claims.Role, c.Param("id"), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// InitiatePayment godoc
// @Summary Start the payment gateway flow
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /bookings/{id}/payment [post]
func (h *BookingHandler) InitiatePayment(c *gin.Context) {
	h.transition(c, h.service.InitiatePayment)
}

// PaymentCallback godoc
// @Summary Payment gateway callback
// @Description Settle a booking after a successful gateway payment
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings/{id}/payment/callback [post]
func (h *BookingHandler) PaymentCallback(c *gin.Context) {
	booking, err := h.service.ConfirmPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// MarkPhysicalPaid godoc
// @Summary Record in-person payment
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /bookings/{id}/mark-paid [post]
func (h *BookingHandler) MarkPhysicalPaid(c *gin.Context) {
	h.transition(c, h.service.MarkPhysicalPaid)
}

// Rate godoc
// @Summary Rate a completed booking
// @Description Record a one-time score between 1 and 5
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body service.RateBookingRequest true "Rating payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /bookings/{id}/rate [post]
func (h *BookingHandler) Rate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.RateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rating payload"))
		return
	}

	rating, err := h.service.Rate(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rating)
}

// TutorRatings godoc
// @Summary List a tutor's ratings
// @Description A tutor's received ratings with their average
// @Tags Bookings
// @Produce json
// @Param id path string true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /tutors/{id}/ratings [get]
func (h *BookingHandler) TutorRatings(c *gin.Context) {
	ratings, summary, err := h.service.TutorRatings(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ratings, nil, map[string]interface{}{
		"average_score": summary.AverageScore,
		"total_ratings": summary.TotalRatings,
	})
}

// transition handles the id-only lifecycle endpoints that act on behalf of
// the authenticated party.
func (h *BookingHandler) transition(c *gin.Context, fn func(ctx context.Context, userID, bookingID string) (*models.Booking, error)) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	booking, err := fn(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}
