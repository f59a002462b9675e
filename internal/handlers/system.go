package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	statusRunning   = "running"
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"

	dbConnected    = "connected"
	dbDisconnected = "disconnected"

	healthTimeout = 2 * time.Second
)

// IndexResponse is the service banner.
type IndexResponse struct {
	Message string `json:"message" example:"devsecops-api"`
	Version string `json:"version" example:"1.0.0"`
	Status  string `json:"status" example:"running"`
}

// HealthResponse reports store connectivity.
type HealthResponse struct {
	Status   string `json:"status" example:"healthy"`
	Database string `json:"database" example:"connected"`
}

// @Summary      Service banner
// @Tags         system
// @Produce      json
// @Success      200  {object}  IndexResponse
// @Router       / [get]
func (h *Handler) index(c *gin.Context) {
	c.JSON(http.StatusOK, IndexResponse{
		Message: h.opts.AppName,
		Version: h.opts.Version,
		Status:  statusRunning,
	})
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Failure      503  {object}  HealthResponse
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if err := h.services.Ping(ctx); err != nil {
		if h.log != nil {
			h.log.Errorw("health_check_failed", "err", err)
		}
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: statusUnhealthy, Database: dbDisconnected})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: statusHealthy, Database: dbConnected})
}
