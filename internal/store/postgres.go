package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealscope/dealscope/pkg/models"
)

const jobColumns = `id, queue_name, tenant_id, engine_id, source, trigger_reason, related_ids,
	 priority, retry_count, max_retries, idempotency_key, payload, status,
	 scheduled_for, expires_at, error_message, started_at, completed_at, created_at, updated_at`

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Engine registry ---

func (s *PostgresStore) ListEngineConfigs(ctx context.Context) ([]*models.EngineConfig, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT engine_id, queue_name, max_concurrency, job_ttl_minutes, enabled, feature_flag
		 FROM engine_registry ORDER BY engine_id`)
	if err != nil {
		return nil, fmt.Errorf("list engine configs: %w", err)
	}
	defer rows.Close()

	var configs []*models.EngineConfig
	for rows.Next() {
		var c models.EngineConfig
		if err := rows.Scan(&c.EngineID, &c.QueueName, &c.MaxConcurrency,
			&c.JobTTLMinutes, &c.Enabled, &c.FeatureFlag); err != nil {
			return nil, fmt.Errorf("scan engine config: %w", err)
		}
		configs = append(configs, &c)
	}
	return configs, rows.Err()
}

// --- Jobs ---

func (s *PostgresStore) CreateJobIfAbsent(ctx context.Context, job *models.Job) (uuid.UUID, bool, error) {
	// The insert races against concurrent submissions with the same key;
	// the partial unique index on (idempotency_key) WHERE status='queued'
	// makes the check-then-insert atomic.
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (id, queue_name, tenant_id, engine_id, source, trigger_reason, related_ids,
		   priority, retry_count, max_retries, idempotency_key, payload, status,
		   scheduled_for, expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 ON CONFLICT (idempotency_key) WHERE status = 'queued' DO NOTHING`,
		job.ID, job.QueueName, job.TenantID, job.EngineID, job.Source, job.TriggerReason,
		job.RelatedIDs, job.Priority, job.RetryCount, job.MaxRetries, job.IdempotencyKey,
		job.Payload, job.Status, job.ScheduledFor, job.ExpiresAt, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("create job: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return job.ID, false, nil
	}

	var existing uuid.UUID
	err = s.pool.QueryRow(ctx,
		`SELECT id FROM jobs WHERE idempotency_key = $1 AND status = 'queued'`,
		job.IdempotencyKey,
	).Scan(&existing)
	if errors.Is(err, pgx.ErrNoRows) {
		// The duplicate transitioned out of queued between our insert and
		// this read. Retry once; the index no longer blocks us.
		tag, err = s.pool.Exec(ctx,
			`INSERT INTO jobs (id, queue_name, tenant_id, engine_id, source, trigger_reason, related_ids,
			   priority, retry_count, max_retries, idempotency_key, payload, status,
			   scheduled_for, expires_at, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			 ON CONFLICT (idempotency_key) WHERE status = 'queued' DO NOTHING`,
			job.ID, job.QueueName, job.TenantID, job.EngineID, job.Source, job.TriggerReason,
			job.RelatedIDs, job.Priority, job.RetryCount, job.MaxRetries, job.IdempotencyKey,
			job.Payload, job.Status, job.ScheduledFor, job.ExpiresAt, job.CreatedAt, job.UpdatedAt)
		if err != nil {
			return uuid.Nil, false, fmt.Errorf("create job: %w", err)
		}
		if tag.RowsAffected() > 0 {
			return job.ID, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("create job: lost idempotency race twice for key %s", job.IdempotencyKey)
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("find duplicate job: %w", err)
	}
	return existing, true, nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var j models.Job
	err := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id,
	).Scan(&j.ID, &j.QueueName, &j.TenantID, &j.EngineID, &j.Source, &j.TriggerReason,
		&j.RelatedIDs, &j.Priority, &j.RetryCount, &j.MaxRetries, &j.IdempotencyKey,
		&j.Payload, &j.Status, &j.ScheduledFor, &j.ExpiresAt, &j.ErrorMessage,
		&j.StartedAt, &j.CompletedAt, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &j, nil
}

func (s *PostgresStore) ClaimDueJobs(ctx context.Context, queueName string, limit int, now time.Time) ([]*models.Job, error) {
	// Jobs past their TTL are left for the cleanup sweep to expire.
	rows, err := s.pool.Query(ctx,
		`UPDATE jobs SET status = 'processing', started_at = $3, updated_at = $3
		 WHERE id IN (
		   SELECT id FROM jobs
		   WHERE queue_name = $1 AND status = 'queued' AND scheduled_for <= $3 AND expires_at > $3
		   ORDER BY created_at ASC
		   LIMIT $2
		   FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+jobColumns,
		queueName, limit, now)
	if err != nil {
		return nil, fmt.Errorf("claim due jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		var j models.Job
		if err := rows.Scan(&j.ID, &j.QueueName, &j.TenantID, &j.EngineID, &j.Source, &j.TriggerReason,
			&j.RelatedIDs, &j.Priority, &j.RetryCount, &j.MaxRetries, &j.IdempotencyKey,
			&j.Payload, &j.Status, &j.ScheduledFor, &j.ExpiresAt, &j.ErrorMessage,
			&j.StartedAt, &j.CompletedAt, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan claimed job: %w", err)
		}
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

func (s *PostgresStore) MarkJobCompleted(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = 'completed', completed_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND status = 'processing'`, id)
	if err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) RequeueJobForRetry(ctx context.Context, id uuid.UUID, retryCount int, scheduledFor time.Time, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = 'queued', retry_count = $2, scheduled_for = $3,
		   error_message = $4, started_at = NULL, updated_at = NOW()
		 WHERE id = $1 AND status = 'processing'`,
		id, retryCount, scheduledFor, errMsg)
	if err != nil {
		return fmt.Errorf("requeue job for retry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeadLetterJob(ctx context.Context, job *models.Job, reason models.DeadLetterReason, lastError string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin dead letter tx: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	_, err = tx.Exec(ctx,
		`INSERT INTO dead_letter_queue (id, job_id, queue_name, tenant_id, engine_id, reason,
		   payload, retry_count, last_error, failed_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uuid.New(), job.ID, job.QueueName, job.TenantID, job.EngineID, string(reason),
		job.Payload, job.RetryCount, lastError, now, now)
	if err != nil {
		return fmt.Errorf("insert dead letter entry: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE jobs SET status = 'failed', error_message = $2, retry_count = $3,
		   completed_at = $4, updated_at = $4
		 WHERE id = $1`,
		job.ID, lastError, job.RetryCount, now)
	if err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit dead letter tx: %w", err)
	}
	return nil
}

// --- Maintenance sweeps ---

func (s *PostgresStore) ExpireOverdueJobs(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = 'expired', completed_at = $1, updated_at = $1
		 WHERE status = 'queued' AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("expire overdue jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) DeleteCompletedJobsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM jobs WHERE status = 'completed' AND completed_at <= $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete completed jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) RequeueStuckJobs(ctx context.Context, stuckSince time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = 'queued', started_at = NULL, updated_at = NOW()
		 WHERE status = 'processing' AND started_at <= $1`, stuckSince)
	if err != nil {
		return 0, fmt.Errorf("requeue stuck jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// --- Processing locks ---

func (s *PostgresStore) AcquireProcessingLock(ctx context.Context, queueName, workerID string, ttl time.Duration) (bool, error) {
	// Conditional upsert: a live lock row blocks the update branch, so the
	// statement affects zero rows and the caller loses the race.
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO processing_locks (queue_name, worker_id, expires_at, created_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (queue_name) DO UPDATE
		   SET worker_id = EXCLUDED.worker_id, expires_at = EXCLUDED.expires_at, created_at = NOW()
		 WHERE processing_locks.expires_at <= NOW()`,
		queueName, workerID, time.Now().UTC().Add(ttl))
	if err != nil {
		return false, fmt.Errorf("acquire processing lock: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) ReleaseProcessingLock(ctx context.Context, queueName, workerID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM processing_locks WHERE queue_name = $1 AND worker_id = $2`,
		queueName, workerID)
	if err != nil {
		return fmt.Errorf("release processing lock: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteExpiredLocks(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM processing_locks WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired locks: %w", err)
	}
	return tag.RowsAffected(), nil
}

// --- Cost ledger ---

func (s *PostgresStore) CreateCostRecord(ctx context.Context, rec *models.CostRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cost_ledger (id, deal_id, tenant_id, execution_id, model_id, agent_name, cost, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.DealID, rec.TenantID, rec.ExecutionID, rec.ModelID, rec.AgentName, rec.Cost, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("create cost record: %w", err)
	}
	return nil
}

func (s *PostgresStore) SumCostForDeal(ctx context.Context, dealID string) (float64, error) {
	var sum float64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(cost), 0)::float8 FROM cost_ledger WHERE deal_id = $1`, dealID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum cost for deal: %w", err)
	}
	return sum, nil
}

func (s *PostgresStore) SumCostSince(ctx context.Context, since time.Time) (float64, error) {
	var sum float64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(cost), 0)::float8 FROM cost_ledger WHERE created_at >= $1`, since,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum cost since: %w", err)
	}
	return sum, nil
}

// --- Deals ---

func (s *PostgresStore) SetDealDraftStatus(ctx context.Context, dealID string) error {
	// Upsert so a cap trip degrades the deal even if the row was never
	// seeded by the pipeline side.
	_, err := s.pool.Exec(ctx,
		`INSERT INTO deals (id, status, updated_at) VALUES ($1, 'draft', NOW())
		 ON CONFLICT (id) DO UPDATE SET status = 'draft', updated_at = NOW()`, dealID)
	if err != nil {
		return fmt.Errorf("set deal draft status: %w", err)
	}
	return nil
}
