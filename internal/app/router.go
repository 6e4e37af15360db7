package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	archivehttp "github.com/hostdesk/hostdesk/internal/archive/http"
	"github.com/hostdesk/hostdesk/internal/observability"
	reconhttp "github.com/hostdesk/hostdesk/internal/recon/http"
	"github.com/hostdesk/hostdesk/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	ReconHandler   *reconhttp.Handler
	ArchiveHandler *archivehttp.Handler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with hostdesk defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		if params.Config != nil && params.Config.HostKeyHash != "" {
			r.Use(HostKeyAuth(params.Logger, params.Config.HostKeyHash))
		}
		if params.ReconHandler != nil {
			params.ReconHandler.MountRoutes(r)
		}
		if params.ArchiveHandler != nil {
			params.ArchiveHandler.MountRoutes(r)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
