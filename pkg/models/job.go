package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
	JobStatusExpired    = "expired"
)

const (
	JobSourceUser      = "user"
	JobSourceScheduler = "scheduler"
	JobSourceEvent     = "event"
)

const (
	JobPriorityHigh   = "high"
	JobPriorityNormal = "normal"
	JobPriorityLow    = "low"
)

// DefaultMaxRetries is applied to new jobs unless the submitter overrides it.
const DefaultMaxRetries = 3

// Job is one unit of analysis work. Submitters receive the job id
// immediately and poll GET /api/v1/jobs/{id} until a terminal status.
type Job struct {
	ID             uuid.UUID         `db:"id"              json:"id"`
	QueueName      string            `db:"queue_name"      json:"queue_name"`
	TenantID       string            `db:"tenant_id"       json:"tenant_id"`
	EngineID       string            `db:"engine_id"       json:"engine_id"`
	Source         string            `db:"source"          json:"source"`
	TriggerReason  string            `db:"trigger_reason"  json:"trigger_reason"`
	RelatedIDs     map[string]string `db:"related_ids"     json:"related_ids"`
	Priority       string            `db:"priority"        json:"priority"`
	RetryCount     int               `db:"retry_count"     json:"retry_count"`
	MaxRetries     int               `db:"max_retries"     json:"max_retries"`
	IdempotencyKey string            `db:"idempotency_key" json:"-"`
	Payload        json.RawMessage   `db:"payload"         json:"payload,omitempty"`
	Status         string            `db:"status"          json:"status"`
	ScheduledFor   time.Time         `db:"scheduled_for"   json:"scheduled_for"`
	ExpiresAt      time.Time         `db:"expires_at"      json:"expires_at"`
	ErrorMessage   *string           `db:"error_message"   json:"error_message,omitempty"`
	StartedAt      *time.Time        `db:"started_at"      json:"started_at,omitempty"`
	CompletedAt    *time.Time        `db:"completed_at"    json:"completed_at,omitempty"`
	CreatedAt      time.Time         `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at"      json:"updated_at"`
}
