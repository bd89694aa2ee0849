// Package queue implements job submission, dispatch, retry, and cleanup
// for the analysis engines.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dealscope/dealscope/internal/registry"
	"github.com/dealscope/dealscope/internal/store"
	"github.com/dealscope/dealscope/pkg/models"
)

var ErrNegativeDelay = errors.New("delay minutes must be non-negative")

// EngineInvoker runs a claimed job's downstream work. Implementations are
// owned by whatever business logic backs the engine.
type EngineInvoker interface {
	Invoke(ctx context.Context, job *models.Job) error
}

// InvokerFunc adapts a function to the EngineInvoker interface.
type InvokerFunc func(ctx context.Context, job *models.Job) error

func (f InvokerFunc) Invoke(ctx context.Context, job *models.Job) error { return f(ctx, job) }

// QueueJobParams carries one job submission.
type QueueJobParams struct {
	EngineID      string
	TenantID      string
	TriggerReason string
	RelatedIDs    map[string]string
	Payload       json.RawMessage
	Source        string
	Priority      string
	DelayMinutes  int
}

// QueueJobResult reports the surviving job id; Duplicate is true when the
// submission was absorbed into an already-queued job.
type QueueJobResult struct {
	JobID     uuid.UUID
	Duplicate bool
}

// ProcessResult summarizes one processing pass. Acquired is false when
// another worker already held the queue's lock; that is not an error.
type ProcessResult struct {
	Acquired  bool
	Processed int
	Failed    int
}

// CleanupResult reports what the maintenance sweep touched.
type CleanupResult struct {
	ExpiredJobs      int64
	DeletedLocks     int64
	DeletedCompleted int64
	RequeuedStuck    int64
}

// Manager is the job queue manager.
type Manager struct {
	store    store.Store
	registry *registry.Registry
	invokers map[string]EngineInvoker

	lockTTL            time.Duration
	stuckAfter         time.Duration
	completedRetention time.Duration
	now                func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.lockTTL = ttl }
}

func WithStuckAfter(d time.Duration) Option {
	return func(m *Manager) { m.stuckAfter = d }
}

func WithCompletedRetention(d time.Duration) Option {
	return func(m *Manager) { m.completedRetention = d }
}

// WithClock overrides the manager's clock. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a Manager with default lock TTL (5m), stuck-job
// threshold (15m), and completed-job retention (24h).
func NewManager(st store.Store, reg *registry.Registry, opts ...Option) *Manager {
	m := &Manager{
		store:              st,
		registry:           reg,
		invokers:           make(map[string]EngineInvoker),
		lockTTL:            5 * time.Minute,
		stuckAfter:         15 * time.Minute,
		completedRetention: 24 * time.Hour,
		now:                func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RegisterInvoker binds an engine id to its downstream invoker.
func (m *Manager) RegisterInvoker(engineID string, inv EngineInvoker) {
	m.invokers[engineID] = inv
}

// QueueJob accepts a job submission, deduplicating against jobs still
// queued for the same engine, tenant, related ids, reason, and day.
func (m *Manager) QueueJob(ctx context.Context, p QueueJobParams) (*QueueJobResult, error) {
	cfg, err := m.registry.Get(ctx, p.EngineID)
	if err != nil {
		return nil, fmt.Errorf("resolve engine %q: %w", p.EngineID, err)
	}
	if p.DelayMinutes < 0 {
		return nil, ErrNegativeDelay
	}

	source := p.Source
	if source == "" {
		source = models.JobSourceUser
	}
	priority := p.Priority
	if priority == "" {
		priority = models.JobPriorityNormal
	}
	relatedIDs := p.RelatedIDs
	if relatedIDs == nil {
		relatedIDs = map[string]string{}
	}

	now := m.now()
	job := &models.Job{
		ID:             uuid.New(),
		QueueName:      cfg.QueueName,
		TenantID:       p.TenantID,
		EngineID:       p.EngineID,
		Source:         source,
		TriggerReason:  p.TriggerReason,
		RelatedIDs:     relatedIDs,
		Priority:       priority,
		MaxRetries:     models.DefaultMaxRetries,
		IdempotencyKey: IdempotencyKey(p.EngineID, p.TenantID, relatedIDs, p.TriggerReason, now),
		Payload:        p.Payload,
		Status:         models.JobStatusQueued,
		ScheduledFor:   now.Add(time.Duration(p.DelayMinutes) * time.Minute),
		ExpiresAt:      now.Add(time.Duration(cfg.JobTTLMinutes) * time.Minute),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	id, duplicate, err := m.store.CreateJobIfAbsent(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("queue job: %w", err)
	}
	if duplicate {
		slog.Info("job submission deduplicated",
			"engine_id", p.EngineID, "tenant_id", p.TenantID, "job_id", id)
	}
	return &QueueJobResult{JobID: id, Duplicate: duplicate}, nil
}

// ProcessQueue runs one processing pass over a queue: acquire the queue's
// lock, claim up to maxConcurrency due jobs oldest-first, and resolve each
// to completed, requeued-for-retry, or dead-lettered.
func (m *Manager) ProcessQueue(ctx context.Context, queueName, workerID string) (*ProcessResult, error) {
	cfg, err := m.registry.GetByQueue(ctx, queueName)
	if err != nil {
		return nil, fmt.Errorf("resolve queue %q: %w", queueName, err)
	}

	acquired, err := m.store.AcquireProcessingLock(ctx, queueName, workerID, m.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire lock for %q: %w", queueName, err)
	}
	if !acquired {
		// Another worker is already handling this queue.
		return &ProcessResult{Acquired: false}, nil
	}
	defer func() {
		// Release even when the triggering request was canceled mid-pass;
		// a leaked lock blocks the queue for the full TTL.
		if err := m.store.ReleaseProcessingLock(context.WithoutCancel(ctx), queueName, workerID); err != nil {
			slog.Error("failed to release processing lock",
				"queue", queueName, "worker_id", workerID, "error", err)
		}
	}()

	jobs, err := m.store.ClaimDueJobs(ctx, queueName, cfg.MaxConcurrency, m.now())
	if err != nil {
		return nil, fmt.Errorf("claim jobs for %q: %w", queueName, err)
	}

	result := &ProcessResult{Acquired: true}
	for _, job := range jobs {
		if err := m.dispatch(ctx, job); err != nil {
			result.Failed++
			if ferr := m.handleFailure(ctx, job, err); ferr != nil {
				// The job must not be left silently in processing; the
				// stuck-job sweep will requeue it, but the operator needs
				// to hear about it now.
				slog.Error("failure handling failed; job left in processing",
					"job_id", job.ID, "queue", queueName, "error", ferr, "job_error", err)
			}
			continue
		}
		if err := m.store.MarkJobCompleted(ctx, job.ID); err != nil {
			slog.Error("failed to mark job completed", "job_id", job.ID, "error", err)
			result.Failed++
			continue
		}
		result.Processed++
	}
	return result, nil
}

// dispatch routes the job to its engine's invoker. Panics in the invoker
// are converted to errors so they flow through the retry pipeline.
func (m *Manager) dispatch(ctx context.Context, job *models.Job) (err error) {
	inv, ok := m.invokers[job.EngineID]
	if !ok {
		return fmt.Errorf("no invoker registered for engine %q", job.EngineID)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine %q panicked: %v", job.EngineID, r)
		}
	}()
	return inv.Invoke(ctx, job)
}

// handleFailure requeues the job with exponential backoff, or dead-letters
// it once retries are exhausted.
func (m *Manager) handleFailure(ctx context.Context, job *models.Job, jobErr error) error {
	job.RetryCount++
	if job.RetryCount <= job.MaxRetries {
		// Whole-minute backoff: retries are expensive engine invocations,
		// not cheap network calls.
		backoff := time.Duration(1<<job.RetryCount) * time.Minute
		scheduledFor := m.now().Add(backoff)
		if err := m.store.RequeueJobForRetry(ctx, job.ID, job.RetryCount, scheduledFor, jobErr.Error()); err != nil {
			return fmt.Errorf("requeue job %s: %w", job.ID, err)
		}
		slog.Warn("job failed, scheduled for retry",
			"job_id", job.ID, "engine_id", job.EngineID,
			"retry_count", job.RetryCount, "backoff", backoff, "error", jobErr)
		return nil
	}

	if err := m.store.DeadLetterJob(ctx, job, models.DeadLetterMaxRetries, jobErr.Error()); err != nil {
		return fmt.Errorf("dead letter job %s: %w", job.ID, err)
	}
	slog.Error("job exhausted retries, dead-lettered",
		"job_id", job.ID, "engine_id", job.EngineID,
		"retry_count", job.RetryCount, "error", jobErr)
	return nil
}

// GetJob returns a job by id for status polling.
func (m *Manager) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return m.store.GetJob(ctx, id)
}

// QueueNames lists all registered queues for periodic dispatch.
func (m *Manager) QueueNames(ctx context.Context) ([]string, error) {
	return m.registry.QueueNames(ctx)
}

// Cleanup runs the maintenance sweep: expire overdue queued jobs, drop
// expired locks, prune old completed jobs, and requeue jobs stuck in
// processing. Idempotent and safe to run concurrently with ProcessQueue.
func (m *Manager) Cleanup(ctx context.Context) (*CleanupResult, error) {
	now := m.now()
	result := &CleanupResult{}
	var errs []error

	expired, err := m.store.ExpireOverdueJobs(ctx, now)
	if err != nil {
		errs = append(errs, err)
	}
	result.ExpiredJobs = expired

	locks, err := m.store.DeleteExpiredLocks(ctx, now)
	if err != nil {
		errs = append(errs, err)
	}
	result.DeletedLocks = locks

	completed, err := m.store.DeleteCompletedJobsBefore(ctx, now.Add(-m.completedRetention))
	if err != nil {
		errs = append(errs, err)
	}
	result.DeletedCompleted = completed

	stuck, err := m.store.RequeueStuckJobs(ctx, now.Add(-m.stuckAfter))
	if err != nil {
		errs = append(errs, err)
	}
	result.RequeuedStuck = stuck
	if stuck > 0 {
		slog.Warn("requeued jobs stuck in processing", "count", stuck)
	}

	if len(errs) > 0 {
		return result, fmt.Errorf("cleanup: %w", errors.Join(errs...))
	}
	return result, nil
}
