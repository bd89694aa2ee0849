package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dealscope/dealscope/internal/api/response"
	"github.com/dealscope/dealscope/internal/llm"
)

// ModelInvoker defines the gateway interface the handler depends on.
type ModelInvoker interface {
	Invoke(ctx context.Context, req llm.InvokeRequest) (*llm.InvokeResult, error)
}

// NewInvokeHandler returns an http.HandlerFunc for POST /api/v1/llm/invoke.
func NewInvokeHandler(svc ModelInvoker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Provider     string  `json:"provider"`
			ModelID      string  `json:"model_id"`
			ModelVersion string  `json:"model_version"`
			Temperature  float64 `json:"temperature"`
			TopP         float64 `json:"top_p"`
			Prompt       string  `json:"prompt"`
			Content      string  `json:"content"`
			DealID       string  `json:"deal_id"`
			TenantID     string  `json:"tenant_id"`
			AgentName    string  `json:"agent_name"`
			ExecutionID  string  `json:"execution_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if req.ModelID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "model_id is required", nil)
			return
		}
		if req.Prompt == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "prompt is required", nil)
			return
		}

		result, err := svc.Invoke(r.Context(), llm.InvokeRequest{
			Provider:     req.Provider,
			ModelID:      req.ModelID,
			ModelVersion: req.ModelVersion,
			Temperature:  req.Temperature,
			TopP:         req.TopP,
			Prompt:       req.Prompt,
			Content:      req.Content,
			DealID:       req.DealID,
			TenantID:     req.TenantID,
			AgentName:    req.AgentName,
			ExecutionID:  req.ExecutionID,
		})
		if err != nil {
			if errors.Is(err, llm.ErrUnknownProvider) {
				response.Error(w, http.StatusBadRequest, "UNKNOWN_PROVIDER",
					"The requested model provider is not configured", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		response.JSON(w, result)
	}
}
