package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dealscope/dealscope/internal/api/response"
	"github.com/dealscope/dealscope/internal/queue"
	"github.com/dealscope/dealscope/internal/registry"
)

// QueueProcessor defines the processing interface the handler depends on.
type QueueProcessor interface {
	ProcessQueue(ctx context.Context, queueName, workerID string) (*queue.ProcessResult, error)
}

// NewProcessQueueHandler returns an http.HandlerFunc for
// POST /api/v1/queues/{queueName}/process.
func NewProcessQueueHandler(svc QueueProcessor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		queueName := chi.URLParam(r, "queueName")
		workerID := r.URL.Query().Get("worker_id")
		if workerID == "" {
			workerID = r.Header.Get("X-Worker-ID")
		}
		if workerID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"worker_id query parameter or X-Worker-ID header is required", nil)
			return
		}

		result, err := svc.ProcessQueue(r.Context(), queueName, workerID)
		if err != nil {
			if errors.Is(err, registry.ErrQueueNotFound) {
				response.Error(w, http.StatusNotFound, "QUEUE_NOT_FOUND",
					"No engine is registered for that queue", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		response.JSON(w, map[string]any{
			"locked":    !result.Acquired,
			"processed": result.Processed,
			"failed":    result.Failed,
		})
	}
}
