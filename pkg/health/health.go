package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Check probes one dependency. A nil error means healthy.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// DatabaseCheck pings the connection pool behind db.
func DatabaseCheck(db *gorm.DB) Check {
	return Check{
		Name: "database",
		Probe: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
}

// Handler serves liveness and readiness endpoints.
type Handler struct {
	service string
	checks  []Check
	timeout time.Duration
}

// NewHandler creates a Handler. Readiness fails when any check fails.
func NewHandler(service string, checks ...Check) *Handler {
	return &Handler{service: service, checks: checks, timeout: 2 * time.Second}
}

// RegisterRoutes mounts /health/live and /health/ready.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health/live", h.Live)
	r.GET("/health/ready", h.Ready)
}

// Live reports that the process is up.
func (h *Handler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": h.service})
}

// Ready runs every check and reports per-dependency status.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for _, check := range h.checks {
		if err := check.Probe(ctx); err != nil {
			results[check.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[check.Name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "unavailable"
	}
	c.JSON(status, gin.H{"status": overall, "service": h.service, "checks": results})
}
