// Package health serves the liveness probe and Prometheus metrics.
package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hamyon/hamyon/internal/logger"
)

const RootMessage = "Bot is running stable!"

// StatsFunc reports runtime state for /healthz.
type StatsFunc func() map[string]interface{}

// Pinger checks a dependency such as the database.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	srv     *http.Server
	router  *gin.Engine
	started time.Time
}

// NewServer builds the router. gatherer and db may be nil.
func NewServer(port string, gatherer prometheus.Gatherer, db Pinger, stats StatsFunc) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:  gin.New(),
		started: time.Now(),
	}
	s.router.Use(gin.Recovery(), requestLogger())

	root := func(c *gin.Context) {
		c.String(http.StatusOK, RootMessage)
	}
	s.router.GET("/", root)
	s.router.HEAD("/", root)

	s.router.GET("/healthz", func(c *gin.Context) {
		status := "healthy"
		code := http.StatusOK
		body := gin.H{
			"uptime": time.Since(s.started).Round(time.Second).String(),
			"time":   time.Now().Format(time.RFC3339),
		}

		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				status = "degraded"
				code = http.StatusServiceUnavailable
				body["database"] = err.Error()
			} else {
				body["database"] = "ok"
			}
		}
		if stats != nil {
			body["workers"] = stats()
		}
		body["status"] = status

		c.JSON(code, body)
	})

	if gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	s.srv = &http.Server{
		Addr:              ":" + port,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens in the background. Listen errors other than a clean
// shutdown are logged.
func (s *Server) Start() {
	go func() {
		logger.Info("Health server starting", logger.Fields{
			"addr":      s.srv.Addr,
			"endpoints": []string{"/", "/healthz", "/metrics"},
		})
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health server error", logger.Fields{
				"error": err.Error(),
			})
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down health server: %w", err)
	}
	logger.InfoMsg("Health server stopped")
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request", logger.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"client":   c.ClientIP(),
			"duration": time.Since(start).String(),
		})
	}
}
