package models

import (
	"time"

	"github.com/google/uuid"
)

// CostRecord is one row in the cost ledger, appended per billed model call.
// Sums over deal_id enforce the per-deal cap; sums over created_at enforce
// the per-minute cap.
type CostRecord struct {
	ID          uuid.UUID `db:"id"           json:"id"`
	DealID      string    `db:"deal_id"      json:"deal_id"`
	TenantID    string    `db:"tenant_id"    json:"tenant_id"`
	ExecutionID string    `db:"execution_id" json:"execution_id"`
	ModelID     string    `db:"model_id"     json:"model_id"`
	AgentName   string    `db:"agent_name"   json:"agent_name"`
	Cost        float64   `db:"cost"         json:"cost"`
	CreatedAt   time.Time `db:"created_at"   json:"created_at"`
}

// CostInfo summarizes what a single gateway invocation cost.
type CostInfo struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	Cost             float64 `json:"cost"`
}
