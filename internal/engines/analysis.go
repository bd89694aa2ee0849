// Package engines contains the downstream workers jobs are dispatched to.
package engines

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dealscope/dealscope/internal/llm"
	"github.com/dealscope/dealscope/pkg/models"
)

// analysisPayload is the job payload shape LLM-backed engines expect.
type analysisPayload struct {
	ModelID      string  `json:"model_id"`
	ModelVersion string  `json:"model_version"`
	Temperature  float64 `json:"temperature"`
	TopP         float64 `json:"top_p"`
	Prompt       string  `json:"prompt"`
	Content      string  `json:"content"`
}

// LLMEngine runs a model call for a claimed job through the gateway.
// One instance per engine id, differing only in agent name and defaults.
type LLMEngine struct {
	gateway        *llm.Gateway
	agentName      string
	defaultModelID string
}

func NewLLMEngine(gw *llm.Gateway, agentName, defaultModelID string) *LLMEngine {
	return &LLMEngine{gateway: gw, agentName: agentName, defaultModelID: defaultModelID}
}

func (e *LLMEngine) Invoke(ctx context.Context, job *models.Job) error {
	var p analysisPayload
	if len(job.Payload) > 0 {
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", e.agentName, err)
		}
	}
	if p.ModelID == "" {
		p.ModelID = e.defaultModelID
	}

	result, err := e.gateway.Invoke(ctx, llm.InvokeRequest{
		ModelID:      p.ModelID,
		ModelVersion: p.ModelVersion,
		Temperature:  p.Temperature,
		TopP:         p.TopP,
		Prompt:       p.Prompt,
		Content:      p.Content,
		DealID:       job.RelatedIDs["deal_id"],
		TenantID:     job.TenantID,
		AgentName:    e.agentName,
		ExecutionID:  job.ID.String(),
	})
	if err != nil {
		return fmt.Errorf("%s invoke: %w", e.agentName, err)
	}

	if result.DegradationMode {
		// Blocked by budget is a deliberate soft-fail, not a retryable
		// error; retrying would just hit the cap again.
		slog.Warn("engine call blocked by budget",
			"agent", e.agentName, "job_id", job.ID, "message", result.Message)
		return nil
	}
	if !result.Success {
		return fmt.Errorf("%s model call failed after %d retries: %s",
			e.agentName, result.RetryCount, result.Error)
	}
	return nil
}
