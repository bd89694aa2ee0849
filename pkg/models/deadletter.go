package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DeadLetterReason records why a job was moved to the dead letter queue.
type DeadLetterReason string

const (
	DeadLetterMaxRetries DeadLetterReason = "max_retries_exceeded"
	DeadLetterPanic      DeadLetterReason = "panic"
)

// DeadLetterEntry is an immutable snapshot of a job that exhausted its
// retries. Written in the same transaction that marks the job failed.
type DeadLetterEntry struct {
	ID         uuid.UUID        `db:"id"          json:"id"`
	JobID      uuid.UUID        `db:"job_id"      json:"job_id"`
	QueueName  string           `db:"queue_name"  json:"queue_name"`
	TenantID   string           `db:"tenant_id"   json:"tenant_id"`
	EngineID   string           `db:"engine_id"   json:"engine_id"`
	Reason     DeadLetterReason `db:"reason"      json:"reason"`
	Payload    json.RawMessage  `db:"payload"     json:"payload,omitempty"`
	RetryCount int              `db:"retry_count" json:"retry_count"`
	LastError  string           `db:"last_error"  json:"last_error"`
	FailedAt   time.Time        `db:"failed_at"   json:"failed_at"`
	CreatedAt  time.Time        `db:"created_at"  json:"created_at"`
}
