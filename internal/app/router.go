package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/ledgerfix/internal/observability"
	"github.com/odyssey-erp/ledgerfix/internal/platform/httpx"
	"github.com/odyssey-erp/ledgerfix/jobs"
)

// ReadinessCheck reports whether a dependency is reachable.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// RouterParams groups dependencies for building the ops router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	Metrics           *observability.Metrics
	JobHandler        *jobs.Handler
	Readiness         []ReadinessCheck
	RequestsPerMinute int
}

// NewRouter constructs the worker's ops router: liveness, readiness, queue
// health and Prometheus metrics.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:            logger,
		Config:            params.Config,
		Metrics:           params.Metrics,
		RequestsPerMinute: params.RequestsPerMinute,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		for _, check := range params.Readiness {
			err := check.Check(ctx)
			params.Metrics.SetDependency(check.Name, err)
			if err != nil {
				logger.Warn("readiness check failed", slog.String("dependency", check.Name), slog.Any("error", err))
				httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", check.Name+" unreachable")
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	return r
}
