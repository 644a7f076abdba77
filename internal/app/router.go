package app

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/accounting/coa"
	"github.com/meridian-erp/meridian-erp/internal/accounting/journals"
	"github.com/meridian-erp/meridian-erp/internal/accounting/ledger"
	"github.com/meridian-erp/meridian-erp/internal/ap"
	"github.com/meridian-erp/meridian-erp/internal/ar"
	"github.com/meridian-erp/meridian-erp/internal/inventory"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	AccountHandler   *coa.Handler
	JournalHandler   *journals.Handler
	LedgerHandler    *ledger.Handler
	APHandler        *ap.Handler
	ARHandler        *ar.Handler
	InventoryHandler *inventory.Handler
	JobsHandler      *jobs.Handler
	JobsClient       *jobs.Client
	Pool             *pgxpool.Pool
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if params.Pool != nil {
			if err := params.Pool.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/jobs", func(r chi.Router) {
		if params.JobsHandler != nil {
			params.JobsHandler.MountRoutes(r)
		}
		if params.JobsClient != nil {
			r.Post("/gl/integrity", enqueueGL(params.JobsClient.EnqueueGLIntegrity))
			r.Post("/gl/orphan-sweep", enqueueGL(params.JobsClient.EnqueueGLOrphanSweep))
		}
	})

	r.Route("/api/companies/{companyID}", func(r chi.Router) {
		if params.AccountHandler != nil {
			params.AccountHandler.MountRoutes(r)
		}
		if params.JournalHandler != nil {
			params.JournalHandler.MountRoutes(r)
		}
		if params.LedgerHandler != nil {
			params.LedgerHandler.MountRoutes(r)
		}
		if params.APHandler != nil {
			params.APHandler.MountRoutes(r)
		}
		if params.ARHandler != nil {
			params.ARHandler.MountRoutes(r)
		}
		if params.InventoryHandler != nil {
			params.InventoryHandler.MountRoutes(r)
		}
	})

	return r
}

// enqueueGL adapts a maintenance enqueue function to an HTTP endpoint. An
// optional companyId query parameter scopes the task; zero means all
// companies.
func enqueueGL(enqueue func(context.Context, jobs.GLTaskPayload) (*asynq.TaskInfo, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload jobs.GLTaskPayload
		if raw := r.URL.Query().Get("companyId"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id < 0 {
				httpx.Problem(w, http.StatusBadRequest, "Bad Request", "companyId must be a non-negative integer")
				return
			}
			payload.CompanyID = id
		}
		info, err := enqueue(r.Context(), payload)
		if err != nil {
			httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "could not enqueue task")
			return
		}
		httpx.JSON(w, http.StatusAccepted, map[string]string{"taskId": info.ID, "queue": info.Queue})
	}
}
