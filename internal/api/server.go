// Package api is the HTTP surface: session lifecycle, pipeline
// operations, authentication, metadata search and the WebSocket
// endpoint all hang off one echo server.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/strmforge/strmforge/internal/auth"
	"github.com/strmforge/strmforge/internal/config"
	"github.com/strmforge/strmforge/internal/logger"
	"github.com/strmforge/strmforge/internal/orchestrator"
	"github.com/strmforge/strmforge/internal/progress"
	"github.com/strmforge/strmforge/internal/scheduler"
	"github.com/strmforge/strmforge/internal/session"
	"github.com/strmforge/strmforge/internal/websocket"
)

// Server handles HTTP requests for the StrmForge API.
type Server struct {
	echo   *echo.Echo
	cfg    *config.Config
	logger zerolog.Logger

	hub          *websocket.Hub
	authService  *auth.Service
	store        *session.Store
	orch         *orchestrator.Orchestrator
	progress     *progress.Manager
	scheduler    *scheduler.Scheduler
	logsProvider LogsProvider

	loginLimiter *loginLimiter
	startedAt    time.Time
}

// Deps carries everything the server serves. Scheduler and
// LogsProvider may be nil; their routes answer 404 then.
type Deps struct {
	Hub          *websocket.Hub
	Auth         *auth.Service
	Store        *session.Store
	Orchestrator *orchestrator.Orchestrator
	Progress     *progress.Manager
	Scheduler    *scheduler.Scheduler
	Logs         LogsProvider
}

// NewServer creates a new API server instance.
func NewServer(cfg *config.Config, deps Deps, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:         e,
		cfg:          cfg,
		logger:       logger.With().Str("component", "api").Logger(),
		hub:          deps.Hub,
		authService:  deps.Auth,
		store:        deps.Store,
		orch:         deps.Orchestrator,
		progress:     deps.Progress,
		scheduler:    deps.Scheduler,
		logsProvider: deps.Logs,
		loginLimiter: newLoginLimiter(),
		startedAt:    time.Now(),
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures Echo middleware.
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())

	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	s.echo.Use(securityHeaders())

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Debug().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
			}
			return nil
		},
	}))

	s.echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			// Skip compression for WebSocket
			return c.Request().Header.Get("Upgrade") == "websocket"
		},
	}))
}

// securityHeaders hardens every response.
func securityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "SAMEORIGIN")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if strings.HasPrefix(c.Request().URL.Path, "/api") {
				h.Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
			}
			return next(c)
		}
	}
}

// setupRoutes configures API routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)

	api := s.echo.Group("/api/v1")
	api.GET("/status", s.getStatus)

	authGroup := api.Group("/auth", s.loginLimiter.middleware())
	authGroup.POST("/setup", s.authSetup)
	authGroup.POST("/login", s.login)
	authGroup.GET("/status", s.authStatus)

	protected := api.Group("", s.authMiddleware())

	protected.GET("/ws", s.hub.HandleWebSocket)

	sessions := protected.Group("/sessions")
	sessions.POST("", s.createSession)
	sessions.GET("/:id", s.getSession)
	sessions.DELETE("/:id", s.deleteSession)
	sessions.PUT("/:id/config", s.updateConfig)
	sessions.POST("/:id/source", s.connectSource)
	sessions.POST("/:id/target", s.connectTarget)
	sessions.POST("/:id/scan", s.scan)
	sessions.GET("/:id/files", s.listFiles)
	sessions.POST("/:id/classify", s.classify)
	sessions.POST("/:id/organize", s.organize)
	sessions.POST("/:id/strm", s.generateSTRM)
	sessions.POST("/:id/retry", s.retryFailed)
	sessions.GET("/:id/history", s.sessionHistory)
	sessions.GET("/:id/activities", s.sessionActivities)

	metadata := protected.Group("/metadata")
	metadata.GET("/search", s.searchMetadata)
	metadata.GET("/:type/:id", s.metadataDetails)

	if s.logsProvider != nil {
		logs := protected.Group("/logs")
		logs.GET("", s.recentLogs)
		logs.GET("/download", s.downloadLogFile)
	}

	if s.scheduler != nil {
		tasks := protected.Group("/scheduler/tasks")
		tasks.GET("", s.listTasks)
		tasks.GET("/:id", s.getTask)
		tasks.POST("/:id/run", s.runTask)
	}
}

// Start begins listening for HTTP requests.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")
	return s.echo.Start(address)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"version": Version,
		"uptime":  time.Since(s.startedAt).Round(time.Second).String(),
		"clients": s.hub.ClientCount(),
	})
}

// Version is stamped at build time via ldflags.
var Version = "dev"

// LogsProvider provides access to log data.
type LogsProvider interface {
	GetRecentLogs() []logger.LogEntry
	LogFilePath() string
}
