package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/orbitalcopilot/usage-service/internal/copilot"
	"github.com/orbitalcopilot/usage-service/internal/usage"
	"github.com/orbitalcopilot/usage-service/pkg/cache"
	"github.com/orbitalcopilot/usage-service/pkg/models"
)

// Gateway handles API requests
type Gateway struct {
	service *usage.Service
	cache   *cache.Cache // nil when Redis is disabled
	logger  *zap.Logger
	router  *chi.Mux
}

// NewGateway creates a new API gateway
func NewGateway(service *usage.Service, reportCache *cache.Cache, logger *zap.Logger, metricsPath string) *Gateway {
	g := &Gateway{
		service: service,
		cache:   reportCache,
		logger:  logger,
		router:  chi.NewRouter(),
	}

	g.setupRoutes(metricsPath)
	return g
}

// setupRoutes configures the HTTP routes
func (g *Gateway) setupRoutes(metricsPath string) {
	// Middleware
	g.router.Use(middleware.RequestID)
	g.router.Use(middleware.RealIP)
	g.router.Use(g.loggerMiddleware)
	g.router.Use(g.metricsMiddleware)
	g.router.Use(middleware.Recoverer)
	g.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	g.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	g.registerMetrics(metricsPath)

	// Health checks (no auth required)
	g.router.Get("/health", g.handleHealth)
	g.router.Get("/ready", g.handleReady)

	// Usage endpoints
	g.router.Post("/usage", g.handleComputeUsage)
	g.router.Get("/usage", g.handleCurrentPeriodUsage)
}

// StartHealthMetrics starts a background goroutine that updates dependency
// health gauges.
func (g *Gateway) StartHealthMetrics(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				g.updateHealthMetrics(ctx)
			}
		}
	}()
}

func (g *Gateway) updateHealthMetrics(ctx context.Context) {
	if g.cache == nil {
		return
	}
	redisStatus := 0.0
	if err := g.cache.Health(ctx); err == nil {
		redisStatus = 1.0
	}
	dependencyUp.WithLabelValues("redis").Set(redisStatus)
}

// ServeHTTP implements http.Handler
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.router.ServeHTTP(w, r)
}

func (g *Gateway) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		g.logger.Info("request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_addr", r.RemoteAddr),
		)
	})
}

// Handler implementations

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	if g.cache != nil {
		if err := g.cache.Health(r.Context()); err != nil {
			g.writeError(w, http.StatusServiceUnavailable, "cache not ready")
			return
		}
	}

	g.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// computeUsageRequest uses pointers so a missing field is distinguishable
// from an empty one; an empty message is valid input, a missing one is not.
type computeUsageRequest struct {
	Message  *string `json:"message"`
	ReportID *string `json:"report_id"`
}

func (g *Gateway) handleComputeUsage(w http.ResponseWriter, r *http.Request) {
	var req computeUsageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == nil {
		g.writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	event := models.UsageEvent{Message: *req.Message}
	if req.ReportID != nil {
		event.ReportID = *req.ReportID
	}

	result := g.service.ComputeEvent(r.Context(), event)
	g.writeJSON(w, http.StatusOK, result)
}

func (g *Gateway) handleCurrentPeriodUsage(w http.ResponseWriter, r *http.Request) {
	response, err := g.service.CurrentPeriodUsage(r.Context())
	if err != nil {
		if errors.Is(err, copilot.ErrMalformedResponse) {
			g.writeError(w, http.StatusBadRequest, "failed to parse messages response")
			return
		}
		g.logger.Error("failed to compute current period usage", zap.Error(err))
		g.writeError(w, http.StatusInternalServerError, "failed to fetch data")
		return
	}

	g.writeJSON(w, http.StatusOK, response)
}

// Response helpers

func (g *Gateway) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (g *Gateway) writeError(w http.ResponseWriter, status int, message string) {
	g.writeJSON(w, status, map[string]string{"error": message})
}
