package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stockledger/backend/internal/infrastructure/persistence"
	"github.com/stockledger/backend/internal/interfaces/http/dto"
	"github.com/stockledger/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// healthPingTimeout bounds the database ping
const healthPingTimeout = 2 * time.Second

// DatabaseHealth is implemented by persistence.Database
type DatabaseHealth interface {
	Ping(ctx context.Context) error
	Stats() (persistence.ConnectionStats, error)
}

// HealthHandler reports liveness and connection pool usage
type HealthHandler struct {
	BaseHandler
	db        DatabaseHealth
	logger    *zap.Logger
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db DatabaseHealth, log *zap.Logger) *HealthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &HealthHandler{db: db, logger: log, startTime: time.Now()}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string                       `json:"status"`
	Uptime   string                       `json:"uptime"`
	Database string                       `json:"database"`
	Pool     *persistence.ConnectionStats `json:"pool,omitempty"`
}

// RegisterRoutes mounts the unauthenticated health endpoint
func (h *HealthHandler) RegisterRoutes(g *router.DomainGroup) {
	g.GET("", h.Health)
}

// Health godoc
// @Summary      Health check
// @Description  Pings the database and reports connection pool usage
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      503 {object} dto.Response
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:   "ok",
		Uptime:   time.Since(h.startTime).Round(time.Second).String(),
		Database: "up",
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("Health check database ping failed", zap.Error(err))
		resp.Status = "degraded"
		resp.Database = "down"
		c.JSON(http.StatusServiceUnavailable, dto.NewSuccessResponse(resp))
		return
	}

	if stats, err := h.db.Stats(); err == nil {
		resp.Pool = &stats
	}
	h.Success(c, resp)
}
