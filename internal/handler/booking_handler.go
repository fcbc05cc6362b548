package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/educonnect/service-booking/internal/application"
	"github.com/educonnect/service-booking/internal/domain/booking"
	"github.com/educonnect/service-booking/internal/domain/participant"
	"github.com/educonnect/service-booking/pkg/auth"
	"github.com/educonnect/service-booking/pkg/middleware"
	"github.com/educonnect/service-booking/pkg/response"
)

// BookingHandler handles HTTP requests for booking operations.
type BookingHandler struct {
	queries *application.BookingQueryService
	cancels *application.CancellationService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(queries *application.BookingQueryService, cancels *application.CancellationService) *BookingHandler {
	return &BookingHandler{queries: queries, cancels: cancels}
}

// RegisterRoutes registers all booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	sides := middleware.RequireRole(auth.RoleProvider, auth.RoleRequester)

	bookings := r.Group("/api/v1/bookings")
	bookings.Use(authMW)
	{
		bookings.GET("", sides, h.ListBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.POST("/:id/cancel", sides, h.CancelBooking)
	}
}

// ListBookings handles GET /api/v1/bookings. Providers see the sessions they give and
// requesters the sessions they booked; scope=upcoming|past|all splits them around now.
func (h *BookingHandler) ListBookings(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	role, ok := participantRole(claims.Role)
	if !ok {
		response.Forbidden(c, "insufficient role")
		return
	}

	scope, err := application.ParseScope(c.Query("scope"))
	if err != nil {
		response.Error(c, err)
		return
	}
	var status booking.BookingStatus
	if v := c.Query("status"); v != "" {
		if status, err = booking.ParseBookingStatus(v); err != nil {
			response.Error(c, err)
			return
		}
	}
	page, limit := parsePagination(c)

	result, err := h.queries.ListForParticipant(c.Request.Context(), claims.UserID, role, application.ListBookingsQuery{
		Scope:  scope,
		Status: status,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetBooking handles GET /api/v1/bookings/:id.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	bookingID, ok := parseIDParam(c, "id", "booking")
	if !ok {
		return
	}

	result, err := h.queries.GetBooking(c.Request.Context(), claims.UserID, bookingID, claims.Role == auth.RoleAdmin)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// CancelBooking handles POST /api/v1/bookings/:id/cancel for either side of the booking.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	bookingID, ok := parseIDParam(c, "id", "booking")
	if !ok {
		return
	}

	var req application.CancelBookingRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var (
		result *application.BookingDTO
		err    error
	)
	role, _ := participantRole(claims.Role)
	switch role {
	case participant.RoleProvider:
		result, err = h.cancels.CancelByProvider(c.Request.Context(), claims.UserID, bookingID, req.Reason)
	case participant.RoleRequester:
		result, err = h.cancels.CancelByRequester(c.Request.Context(), claims.UserID, bookingID, req.Reason)
	default:
		response.Forbidden(c, "insufficient role")
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
