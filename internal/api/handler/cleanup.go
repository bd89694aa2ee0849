package handler

import (
	"context"
	"net/http"

	"github.com/dealscope/dealscope/internal/api/response"
	"github.com/dealscope/dealscope/internal/queue"
)

// Cleaner defines the maintenance interface the handler depends on.
type Cleaner interface {
	Cleanup(ctx context.Context) (*queue.CleanupResult, error)
}

// NewCleanupHandler returns an http.HandlerFunc for
// POST /api/v1/maintenance/cleanup.
func NewCleanupHandler(svc Cleaner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.Cleanup(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Cleanup sweep failed", map[string]any{"partial": result})
			return
		}

		response.JSON(w, map[string]any{
			"expired_jobs":      result.ExpiredJobs,
			"deleted_locks":     result.DeletedLocks,
			"deleted_completed": result.DeletedCompleted,
			"requeued_stuck":    result.RequeuedStuck,
		})
	}
}
