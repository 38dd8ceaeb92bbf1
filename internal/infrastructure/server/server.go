package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/oneterm/internal/api/http"
	"github.com/GriffinCanCode/oneterm/internal/api/middleware"
	"github.com/GriffinCanCode/oneterm/internal/api/ws"
	"github.com/GriffinCanCode/oneterm/internal/infrastructure/config"
	"github.com/GriffinCanCode/oneterm/internal/infrastructure/logging"
	"github.com/GriffinCanCode/oneterm/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/oneterm/internal/providers/environment"
	"github.com/GriffinCanCode/oneterm/internal/providers/shell"
	"github.com/GriffinCanCode/oneterm/internal/providers/terminal"
	"github.com/GriffinCanCode/oneterm/internal/stream"
)

const readHeaderTimeout = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	engine   *gin.Engine
	http     *http.Server
	sessions *terminal.Manager
	router   *stream.Router
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	logger.Info("Initializing oneterm server",
		zap.String("addr", cfg.Addr()),
		zap.Int("max_sessions", cfg.Terminal.MaxSessions),
	)

	metrics := monitoring.NewMetrics()

	resolver := environment.NewSystem(logger.Component("environment"))

	sessions := terminal.NewManager(
		terminal.WithLogger(logger.Component("terminal")),
		terminal.WithResolver(resolver),
		terminal.WithObserver(metrics),
		terminal.WithMaxSessions(cfg.Terminal.MaxSessions),
		terminal.WithDefaults(terminal.Defaults{
			Shell:      cfg.Terminal.Shell,
			WorkingDir: cfg.Terminal.WorkingDir,
			Cols:       cfg.Terminal.Cols,
			Rows:       cfg.Terminal.Rows,
		}),
	)

	hub := stream.NewHub(stream.HubConfig{
		SubscriberBuffer: cfg.Stream.SubscriberBuffer,
		Backlog:          cfg.Terminal.Backlog,
		Recorder:         metrics,
		Logger:           logger.Component("stream"),
	})
	router := stream.NewRouter(hub, stream.RouterConfig{
		MaxEvents: cfg.Stream.MaxEvents,
		Recorder:  metrics,
		Logger:    logger.Component("stream"),
	})

	runner := shell.NewRunner(resolver, logger.Component("shell"))

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger(logger.Component("http")))
	engine.Use(monitoring.Middleware(metrics))
	engine.Use(middleware.CORS(middleware.CORSForOrigins(cfg.Server.CORSOrigins)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		engine.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(sessions, router, runner, metrics, logger.Component("api"))
	handlers.Register(engine)

	wsHandler := ws.NewHandler(sessions, hub, metrics, logger.Component("ws"), cfg.Server.CORSOrigins)
	engine.GET("/sessions/:id/stream", wsHandler.HandleConnection)

	logger.Info("Server initialized successfully")

	return &Server{
		engine: engine,
		http: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           engine,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		sessions: sessions,
		router:   router,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Sessions returns the session manager.
func (s *Server) Sessions() *terminal.Manager {
	return s.sessions
}

// Run listens on the configured address and serves until Shutdown.
func (s *Server) Run() error {
	l, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.http.Addr, err)
	}
	return s.Serve(l)
}

// Serve serves on l until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("Starting HTTP server", zap.String("addr", l.Addr().String()))
	if err := s.http.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then terminates every live session so
// no child process outlives the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	var errs []error
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP shutdown failed", zap.Error(err))
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}

	if err := s.sessions.Shutdown(); err != nil {
		s.logger.Error("Session teardown failed", zap.Error(err))
		errs = append(errs, fmt.Errorf("close sessions: %w", err))
	} else {
		s.logger.Info("All sessions closed")
	}

	s.logger.Close()
	return errors.Join(errs...)
}
