package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/educonnect/service-booking/internal/application"
	"github.com/educonnect/service-booking/pkg/auth"
	"github.com/educonnect/service-booking/pkg/middleware"
	"github.com/educonnect/service-booking/pkg/response"
)

// ParticipantHandler handles HTTP requests for the participant directory.
type ParticipantHandler struct {
	service *application.ParticipantService
}

// NewParticipantHandler creates a new ParticipantHandler.
func NewParticipantHandler(service *application.ParticipantService) *ParticipantHandler {
	return &ParticipantHandler{service: service}
}

// RegisterRoutes registers participant and provider directory routes.
func (h *ParticipantHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	sides := middleware.RequireRole(auth.RoleProvider, auth.RoleRequester)

	me := r.Group("/api/v1/participants/me")
	me.Use(authMW, sides)
	{
		me.GET("", h.GetMe)
		me.PUT("", h.EnsureMe)
	}

	r.GET("/api/v1/providers", authMW, h.ListProviders)
}

// EnsureMe handles PUT /api/v1/participants/me.
func (h *ParticipantHandler) EnsureMe(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	role, ok := participantRole(claims.Role)
	if !ok {
		response.Forbidden(c, "only providers and requesters have a profile")
		return
	}

	var req application.EnsureProfileRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	// Token claims fill in whatever the body leaves out.
	if req.DisplayName == "" {
		req.DisplayName = claims.Name
	}
	if req.Contact == "" {
		req.Contact = claims.Contact
	}

	result, err := h.service.EnsureProfile(c.Request.Context(), claims.UserID, role, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// GetMe handles GET /api/v1/participants/me.
func (h *ParticipantHandler) GetMe(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	result, err := h.service.GetProfile(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ListProviders handles GET /api/v1/providers.
func (h *ParticipantHandler) ListProviders(c *gin.Context) {
	result, err := h.service.ListProviders(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
