package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutorease/tutorease-api/internal/service"
	appErrors "github.com/tutorease/tutorease-api/pkg/errors"
	"github.com/tutorease/tutorease-api/pkg/response"
)

// DashboardHandler wires HTTP endpoints to the dashboard service.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler creates a new handler.
func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Admin godoc
// @Summary Admin dashboard
// @Description Marketplace-wide counters and revenue
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboard/admin [get]
func (h *DashboardHandler) Admin(c *gin.Context) {
	dashboard, cached, err := h.service.Admin(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard, nil, map[string]interface{}{"cache_hit": cached})
}

// Tutor godoc
// @Summary Tutor dashboard
// @Description The authenticated tutor's workload summary
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboard/tutor [get]
func (h *DashboardHandler) Tutor(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	dashboard, cached, err := h.service.Tutor(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard, nil, map[string]interface{}{"cache_hit": cached})
}
