package http

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/weather-precip-etl/internal/chart"
	"github.com/couchcryptid/weather-precip-etl/internal/domain"
)

// ReportSource provides the most recent report and readiness state.
type ReportSource interface {
	sharedobs.ReadinessChecker
	LastReport() (domain.Report, bool)
}

// Server exposes health, metrics, and the latest report over HTTP.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	reports    ReportSource
	rc         *chart.RenderContext
	logger     *slog.Logger
}

// NewServer creates an HTTP server. A nil render context disables the chart
// endpoint.
func NewServer(addr string, reports ReportSource, rc *chart.RenderContext, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      engine,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		engine:  engine,
		reports: reports,
		rc:      rc,
		logger:  logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", gin.WrapF(sharedobs.LivenessHandler()))
	s.engine.GET("/readyz", gin.WrapF(sharedobs.ReadinessHandler(s.reports)))
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/v1")
	v1.GET("/series", s.handleSeries)
	v1.GET("/pivot", s.handlePivot)
	v1.GET("/chart.svg", s.handleChart)
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// handleSeries returns the annual series, optionally narrowed by city and
// year.
// GET /v1/series?city=Chicago&year=2014
func (s *Server) handleSeries(c *gin.Context) {
	report, ok := s.lastReport(c)
	if !ok {
		return
	}

	year := 0
	if yearStr := c.Query("year"); yearStr != "" {
		parsed, err := strconv.Atoi(yearStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
			return
		}
		year = parsed
	}
	city := strings.TrimSpace(c.Query("city"))

	points := domain.Filter(report.Series, func(p domain.SeriesPoint) bool {
		if city != "" && !strings.EqualFold(p.City, city) {
			return false
		}
		return year == 0 || p.Date.Year() == year
	})
	if points == nil {
		points = []domain.SeriesPoint{}
	}

	c.JSON(http.StatusOK, gin.H{
		"data": points,
		"meta": gin.H{
			"run_id":       report.RunID,
			"generated_at": report.GeneratedAt,
			"count":        len(points),
		},
	})
}

// handlePivot returns the monthly pivot for the configured year.
// GET /v1/pivot
func (s *Server) handlePivot(c *gin.Context) {
	report, ok := s.lastReport(c)
	if !ok {
		return
	}

	rows := report.Pivot
	if rows == nil {
		rows = []domain.PivotRow{}
	}
	c.JSON(http.StatusOK, gin.H{
		"data": rows,
		"meta": gin.H{
			"run_id":       report.RunID,
			"generated_at": report.GeneratedAt,
			"pivot_year":   report.PivotYear,
			"count":        len(rows),
		},
	})
}

// handleChart renders the series line chart.
// GET /v1/chart.svg
func (s *Server) handleChart(c *gin.Context) {
	if s.rc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "chart disabled"})
		return
	}
	report, ok := s.lastReport(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := chart.Draw(&buf, s.rc, report.Series); err != nil {
		s.logger.Error("chart render failed", "run_id", report.RunID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/svg+xml", buf.Bytes())
}

// lastReport writes a 503 and returns false until the first run completes.
func (s *Server) lastReport(c *gin.Context) (domain.Report, bool) {
	report, ok := s.reports.LastReport()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no report available yet"})
		return domain.Report{}, false
	}
	return report, true
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
