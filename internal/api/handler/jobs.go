package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dealscope/dealscope/internal/api/response"
	"github.com/dealscope/dealscope/internal/queue"
	"github.com/dealscope/dealscope/internal/registry"
	"github.com/dealscope/dealscope/internal/store"
	"github.com/dealscope/dealscope/pkg/models"
)

// JobQueuer defines the submission interface the handler depends on.
type JobQueuer interface {
	QueueJob(ctx context.Context, p queue.QueueJobParams) (*queue.QueueJobResult, error)
}

// JobGetter defines the polling interface the handler depends on.
type JobGetter interface {
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
}

var validSources = map[string]bool{
	"":                        true,
	models.JobSourceUser:      true,
	models.JobSourceScheduler: true,
	models.JobSourceEvent:     true,
}

var validPriorities = map[string]bool{
	"":                       true,
	models.JobPriorityHigh:   true,
	models.JobPriorityNormal: true,
	models.JobPriorityLow:    true,
}

// NewCreateJobHandler returns an http.HandlerFunc for POST /api/v1/jobs.
func NewCreateJobHandler(svc JobQueuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			EngineID      string            `json:"engine_id"`
			TenantID      string            `json:"tenant_id"`
			TriggerReason string            `json:"trigger_reason"`
			RelatedIDs    map[string]string `json:"related_ids"`
			Payload       json.RawMessage   `json:"payload"`
			Source        string            `json:"source"`
			Priority      string            `json:"priority"`
			DelayMinutes  int               `json:"delay_minutes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if req.EngineID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "engine_id is required", nil)
			return
		}
		if req.TenantID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "tenant_id is required", nil)
			return
		}
		if req.TriggerReason == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "trigger_reason is required", nil)
			return
		}
		if !validSources[req.Source] {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"source must be one of user, scheduler, event", nil)
			return
		}
		if !validPriorities[req.Priority] {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"priority must be one of high, normal, low", nil)
			return
		}

		result, err := svc.QueueJob(r.Context(), queue.QueueJobParams{
			EngineID:      req.EngineID,
			TenantID:      req.TenantID,
			TriggerReason: req.TriggerReason,
			RelatedIDs:    req.RelatedIDs,
			Payload:       req.Payload,
			Source:        req.Source,
			Priority:      req.Priority,
			DelayMinutes:  req.DelayMinutes,
		})
		if err != nil {
			switch {
			case errors.Is(err, registry.ErrEngineNotFound):
				response.Error(w, http.StatusUnprocessableEntity, "ENGINE_NOT_FOUND",
					"The requested engine does not exist or is disabled", nil)
			case errors.Is(err, queue.ErrNegativeDelay):
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"delay_minutes must be non-negative", nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}

		response.Accepted(w, map[string]any{
			"job_id":    result.JobID,
			"duplicate": result.Duplicate,
		})
	}
}

// NewGetJobHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}.
func NewGetJobHandler(svc JobGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a UUID", nil)
			return
		}

		job, err := svc.GetJob(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "No job with that id", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		response.JSON(w, job)
	}
}
