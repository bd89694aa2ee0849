package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/dealscope/dealscope/internal/api/middleware"
	"github.com/dealscope/dealscope/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	RateLimit *mw.RateLimit

	HealthHandler       http.HandlerFunc
	CreateJobHandler    http.HandlerFunc
	GetJobHandler       http.HandlerFunc
	ProcessQueueHandler http.HandlerFunc
	InvokeHandler       http.HandlerFunc
	CleanupHandler      http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Rate-limited routes
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/jobs", orNotImplemented(deps.CreateJobHandler))
		r.Get("/api/v1/jobs/{jobID}", orNotImplemented(deps.GetJobHandler))

		r.Post("/api/v1/queues/{queueName}/process", orNotImplemented(deps.ProcessQueueHandler))

		r.Post("/api/v1/llm/invoke", orNotImplemented(deps.InvokeHandler))

		r.Post("/api/v1/maintenance/cleanup", orNotImplemented(deps.CleanupHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
