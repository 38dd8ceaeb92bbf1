package http

import (
	"net/http"

	"github.com/GriffinCanCode/oneterm/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/oneterm/internal/providers/shell"
	"github.com/GriffinCanCode/oneterm/internal/providers/terminal"
	"github.com/GriffinCanCode/oneterm/internal/stream"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	serviceName = "oneterm"
	version     = "0.1.0"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	sessions *terminal.Manager
	router   *stream.Router
	runner   *shell.Runner
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// NewHandlers creates a new handler set. Every session spawned through it
// writes to router.
func NewHandlers(
	sessions *terminal.Manager,
	router *stream.Router,
	runner *shell.Runner,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		sessions: sessions,
		router:   router,
		runner:   runner,
		metrics:  metrics,
		logger:   logger,
	}
}

// Register mounts every route on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	sessions := r.Group("/sessions")
	{
		sessions.POST("", h.SpawnSession)
		sessions.GET("", h.ListSessions)
		sessions.GET("/:id", h.GetSession)
		sessions.DELETE("/:id", h.CloseSession)
		sessions.POST("/:id/write", h.WriteSession)
		sessions.POST("/:id/resize", h.ResizeSession)
		sessions.GET("/:id/events", h.GetEvents)
		sessions.GET("/:id/buffer", h.GetBuffer)
		sessions.POST("/:id/parser/clear", h.ClearParser)
		sessions.GET("/:id/backlog", h.GetBacklog)
	}

	r.POST("/exec", h.Execute)
	r.POST("/logs", h.StreamLogs)
}

// Root handles the liveness probe
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": serviceName,
		"version": version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"sessions": h.sessions.Count(),
		"metrics":  h.metrics.Snapshot(),
	})
}
