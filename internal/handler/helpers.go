package handler

import (
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/educonnect/service-booking/internal/domain/participant"
	"github.com/educonnect/service-booking/pkg/auth"
	"github.com/educonnect/service-booking/pkg/response"
)

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}

// parseIDParam parses a UUID path parameter, writing a 400 when it is malformed.
func parseIDParam(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "invalid "+label+" ID")
		return uuid.Nil, false
	}
	return id, true
}

// bindOptionalJSON binds a JSON body that clients may omit entirely.
func bindOptionalJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// participantRole maps a token role onto a booking side.
func participantRole(r auth.Role) (participant.Role, bool) {
	switch r {
	case auth.RoleProvider:
		return participant.RoleProvider, true
	case auth.RoleRequester:
		return participant.RoleRequester, true
	}
	return "", false
}

// callerSnapshot is the display data the caller's token carries.
func callerSnapshot(claims *auth.Claims) participant.Snapshot {
	return participant.Snapshot{ID: claims.UserID, Name: claims.Name, Contact: claims.Contact}
}
