package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dealscope/dealscope/pkg/models"
)

var ErrNotFound = errors.New("resource not found")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	// Engine registry rows, including disabled ones. Filtering on the
	// enabled flag is the registry's job, not the store's.
	ListEngineConfigs(ctx context.Context) ([]*models.EngineConfig, error)

	// CreateJobIfAbsent inserts the job unless another job with the same
	// idempotency key is currently queued. Returns the surviving job's id
	// and whether the submission was absorbed into an existing row.
	CreateJobIfAbsent(ctx context.Context, job *models.Job) (uuid.UUID, bool, error)
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	// ClaimDueJobs atomically flips up to limit due jobs on the queue from
	// queued to processing, oldest-created-first, and returns them.
	ClaimDueJobs(ctx context.Context, queueName string, limit int, now time.Time) ([]*models.Job, error)
	MarkJobCompleted(ctx context.Context, id uuid.UUID) error
	RequeueJobForRetry(ctx context.Context, id uuid.UUID, retryCount int, scheduledFor time.Time, errMsg string) error
	// DeadLetterJob writes the dead letter snapshot and marks the job
	// failed in one transaction.
	DeadLetterJob(ctx context.Context, job *models.Job, reason models.DeadLetterReason, lastError string) error

	ExpireOverdueJobs(ctx context.Context, now time.Time) (int64, error)
	DeleteCompletedJobsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	RequeueStuckJobs(ctx context.Context, stuckSince time.Time) (int64, error)

	AcquireProcessingLock(ctx context.Context, queueName, workerID string, ttl time.Duration) (bool, error)
	ReleaseProcessingLock(ctx context.Context, queueName, workerID string) error
	DeleteExpiredLocks(ctx context.Context, now time.Time) (int64, error)

	CreateCostRecord(ctx context.Context, rec *models.CostRecord) error
	SumCostForDeal(ctx context.Context, dealID string) (float64, error)
	SumCostSince(ctx context.Context, since time.Time) (float64, error)

	// SetDealDraftStatus flips a deal into the degraded draft state when
	// its cost cap trips.
	SetDealDraftStatus(ctx context.Context, dealID string) error
}
