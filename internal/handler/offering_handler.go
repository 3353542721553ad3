package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tutorease/tutorease-api/internal/models"
	"github.com/tutorease/tutorease-api/internal/service"
	appErrors "github.com/tutorease/tutorease-api/pkg/errors"
	"github.com/tutorease/tutorease-api/pkg/response"
)

// OfferingHandler wires HTTP endpoints to the offering service.
type OfferingHandler struct {
	service *service.OfferingService
}

// NewOfferingHandler creates a new handler.
func NewOfferingHandler(svc *service.OfferingService) *OfferingHandler {
	return &OfferingHandler{service: svc}
}

// Search godoc
// @Summary Browse offerings
// @Description Search active offerings by subject and grade
// @Tags Offerings
// @Produce json
// @Param subject query string false "Subject filter"
// @Param grade_level query string false "Grade level filter"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /offerings [get]
func (h *OfferingHandler) Search(c *gin.Context) {
	filter := models.OfferingFilter{
		Subject:    c.Query("subject"),
		GradeLevel: c.Query("grade_level"),
		ActiveOnly: true,
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "page_size", 20),
	}

	offerings, pagination, err := h.service.Search(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offerings, pagination)
}

// Get godoc
// @Summary Get one offering
// @Tags Offerings
// @Produce json
// @Param id path string true "Offering ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /offerings/{id} [get]
func (h *OfferingHandler) Get(c *gin.Context) {
	offering, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offering, nil)
}

// Mine godoc
// @Summary List own offerings
// @Description List all offerings owned by the authenticated tutor
// @Tags Offerings
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /me/offerings [get]
func (h *OfferingHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	offerings, err := h.service.ListByTutor(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offerings, nil)
}

// Create godoc
// @Summary Publish an offering
// @Description Publish a new offering with teaching days and time ranges
// @Tags Offerings
// @Accept json
// @Produce json
// @Param payload body service.OfferingRequest true "Offering payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /offerings [post]
func (h *OfferingHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.OfferingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid offering payload"))
		return
	}

	offering, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, offering)
}

// Update godoc
// @Summary Edit an offering
// @Description Edit an offering; booked ranges and descriptive fields are locked while a slot is booked
// @Tags Offerings
// @Accept json
// @Produce json
// @Param id path string true "Offering ID"
// @Param payload body service.OfferingRequest true "Offering payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /offerings/{id} [put]
func (h *OfferingHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.OfferingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid offering payload"))
		return
	}

	offering, err := h.service.Update(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offering, nil)
}

// Deactivate godoc
// @Summary Remove an offering from search
// @Tags Offerings
// @Produce json
// @Param id path string true "Offering ID"
// @Success 204 "No Content"
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /offerings/{id} [delete]
func (h *OfferingHandler) Deactivate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Deactivate(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
