package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/educonnect/service-booking/internal/application"
	"github.com/educonnect/service-booking/pkg/auth"
	"github.com/educonnect/service-booking/pkg/middleware"
	"github.com/educonnect/service-booking/pkg/response"
)

// AdminBookingHandler handles admin HTTP requests for booking management.
type AdminBookingHandler struct {
	queries     *application.BookingQueryService
	completions *application.CompletionService
}

// NewAdminBookingHandler creates a new AdminBookingHandler.
func NewAdminBookingHandler(queries *application.BookingQueryService, completions *application.CompletionService) *AdminBookingHandler {
	return &AdminBookingHandler{queries: queries, completions: completions}
}

// RegisterRoutes registers admin booking routes.
func (h *AdminBookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	admin := r.Group("/api/v1/admin")
	admin.Use(authMW, adminRole)
	{
		admin.GET("/stats/bookings", h.BookingStats)
		admin.POST("/bookings/complete-elapsed", h.CompleteElapsed)
	}
}

// BookingStats handles GET /api/v1/admin/stats/bookings.
func (h *AdminBookingHandler) BookingStats(c *gin.Context) {
	stats, err := h.queries.GetBookingStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

// CompleteElapsed handles POST /api/v1/admin/bookings/complete-elapsed.
func (h *AdminBookingHandler) CompleteElapsed(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	result, err := h.completions.CompleteElapsed(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
