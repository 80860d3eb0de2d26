package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"agrivoice/internal/core"
)

// Server wraps the Echo server
type Server struct {
	echo    *echo.Echo
	handler *Handler
	log     *slog.Logger
}

// Config holds server configuration options
type Config struct {
	AllowedOrigins    []string // CORS allowlist; empty allows no cross-origin callers
	BodySizeLimit     int64    // Max request body size in bytes
	RequestsPerMinute int      // Per-client-IP rate limit; 0 disables limiting
	MetricsEnabled    bool     // Whether to expose the Prometheus metrics endpoint
}

// New creates a new HTTP server
func New(handler *Handler, cfg *Config, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware stack (order matters)
	e.Use(requestContext(log))
	e.Use(middleware.Recover())

	if len(cfg.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.AllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		}))
	}

	if cfg.BodySizeLimit > 0 {
		e.Use(middleware.BodyLimit(strconv.FormatInt(cfg.BodySizeLimit, 10)))
	}

	if cfg.RequestsPerMinute > 0 {
		e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(float64(cfg.RequestsPerMinute) / 60.0),
				Burst:     cfg.RequestsPerMinute,
				ExpiresIn: 3 * time.Minute,
			}),
		}))
	}

	// Public routes
	e.GET("/health", handler.Health)
	if cfg.MetricsEnabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	// API routes
	e.POST("/api/query", handler.Query)
	e.GET("/audio/:name", handler.Audio)

	return &Server{
		echo:    e,
		handler: handler,
		log:     log,
	}
}

// requestContext assigns each request an ID, carries it on the request
// context for downstream log correlation, and logs the request outcome.
func requestContext(log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := uuid.NewString()
			ctx := core.WithRequestID(c.Request().Context(), requestID)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			start := time.Now()
			err := next(c)

			log.Info("request",
				"request_id", requestID,
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return err
		}
	}
}

// Start starts the HTTP server on the given address
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements the http.Handler interface, allowing Server to be used with httptest
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
