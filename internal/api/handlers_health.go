// handlers_health.go - Health check handlers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version string
	db      Pinger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, db Pinger) HealthHandler {
	return &HealthHandlerImpl{
		version: version,
		db:      db,
	}
}

// HandleHealth returns server health status, including database
// reachability when a pool is configured
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	resp := map[string]interface{}{
		"status":  "ok",
		"version": h.version,
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			resp["status"] = "degraded"
			resp["database"] = err.Error()
			return c.JSON(http.StatusServiceUnavailable, resp)
		}
		resp["database"] = "ok"
	}

	return c.JSON(http.StatusOK, resp)
}
