package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/educonnect/service-booking/internal/application"
	"github.com/educonnect/service-booking/pkg/auth"
	"github.com/educonnect/service-booking/pkg/middleware"
	"github.com/educonnect/service-booking/pkg/response"
)

const defaultSlotWindow = 14 * 24 * time.Hour

// SlotHandler handles HTTP requests for availability slots and reservations.
type SlotHandler struct {
	slots        *application.SlotService
	reservations *application.ReservationService
}

// NewSlotHandler creates a new SlotHandler.
func NewSlotHandler(slots *application.SlotService, reservations *application.ReservationService) *SlotHandler {
	return &SlotHandler{slots: slots, reservations: reservations}
}

// RegisterRoutes registers all slot routes on the given router group.
func (h *SlotHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	providerRole := middleware.RequireRole(auth.RoleProvider)

	slots := r.Group("/api/v1/slots")
	slots.Use(authMW)
	{
		slots.POST("", providerRole, h.CreateSlots)
		slots.GET("/:id", h.GetSlot)
		slots.DELETE("/:id", providerRole, h.DeleteSlot)
		slots.POST("/:id/reserve", middleware.RequireRole(auth.RoleRequester), h.Reserve)
	}

	r.GET("/api/v1/providers/:id/slots", authMW, h.ListProviderSlots)
}

// CreateSlots handles POST /api/v1/slots.
func (h *SlotHandler) CreateSlots(c *gin.Context) {
	providerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req application.CreateSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.slots.CreateSlots(c.Request.Context(), providerID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ListProviderSlots handles GET /api/v1/providers/:id/slots. Either date=YYYY-MM-DD
// (free slots that day) or an RFC 3339 from/to window; available=true hides held slots.
func (h *SlotHandler) ListProviderSlots(c *gin.Context) {
	viewerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	providerID, ok := parseIDParam(c, "id", "provider")
	if !ok {
		return
	}

	if date := c.Query("date"); date != "" {
		day, err := time.Parse(time.DateOnly, date)
		if err != nil {
			response.BadRequest(c, "date must be YYYY-MM-DD")
			return
		}
		result, err := h.slots.AvailableOnDate(c.Request.Context(), viewerID, providerID, day)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, result)
		return
	}

	from := time.Now().UTC()
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.BadRequest(c, "from must be an RFC 3339 timestamp")
			return
		}
		from = t
	}
	to := from.Add(defaultSlotWindow)
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.BadRequest(c, "to must be an RFC 3339 timestamp")
			return
		}
		to = t
	}

	result, err := h.slots.ListProviderSlots(c.Request.Context(), viewerID, providerID, from, to, c.Query("available") == "true")
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// GetSlot handles GET /api/v1/slots/:id.
func (h *SlotHandler) GetSlot(c *gin.Context) {
	viewerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	slotID, ok := parseIDParam(c, "id", "slot")
	if !ok {
		return
	}

	result, err := h.slots.GetSlot(c.Request.Context(), viewerID, slotID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// DeleteSlot handles DELETE /api/v1/slots/:id.
func (h *SlotHandler) DeleteSlot(c *gin.Context) {
	providerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	slotID, ok := parseIDParam(c, "id", "slot")
	if !ok {
		return
	}

	if err := h.slots.DeleteSlot(c.Request.Context(), providerID, slotID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Reserve handles POST /api/v1/slots/:id/reserve.
func (h *SlotHandler) Reserve(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	slotID, ok := parseIDParam(c, "id", "slot")
	if !ok {
		return
	}

	var req application.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.reservations.Reserve(c.Request.Context(), callerSnapshot(claims), slotID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
