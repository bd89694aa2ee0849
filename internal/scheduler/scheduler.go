// Package scheduler runs the periodic queue dispatch and maintenance sweeps.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dealscope/dealscope/internal/queue"
	"github.com/dealscope/dealscope/internal/registry"
)

// Scheduler drives the job queues in the background: every dispatch
// interval it attempts a processing pass over each registered queue, and
// every cleanup interval it runs the maintenance sweeps.
type Scheduler struct {
	cron     *cron.Cron
	manager  *queue.Manager
	registry *registry.Registry
	workerID string
}

// New creates a Scheduler wired to the given manager and engine registry.
func New(manager *queue.Manager, reg *registry.Registry) *Scheduler {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return &Scheduler{
		cron:     cron.New(),
		manager:  manager,
		registry: reg,
		workerID: "scheduler-" + hostname,
	}
}

// Start registers the cron entries and begins running them. The context
// bounds each tick, not the scheduler lifetime; use Stop to shut down.
func (s *Scheduler) Start(ctx context.Context, dispatchInterval, cleanupInterval time.Duration) error {
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", dispatchInterval), func() {
		s.dispatch(ctx)
	})
	if err != nil {
		return fmt.Errorf("adding dispatch entry: %w", err)
	}

	_, err = s.cron.AddFunc(fmt.Sprintf("@every %s", cleanupInterval), func() {
		s.cleanup(ctx)
	})
	if err != nil {
		return fmt.Errorf("adding cleanup entry: %w", err)
	}

	s.cron.Start()
	slog.Info("scheduler started",
		"dispatch_interval", dispatchInterval,
		"cleanup_interval", cleanupInterval,
		"worker_id", s.workerID)
	return nil
}

// Stop halts the cron runner and waits for in-flight entries to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	slog.Info("scheduler stopped")
}

func (s *Scheduler) dispatch(ctx context.Context) {
	queues, err := s.registry.QueueNames(ctx)
	if err != nil {
		slog.Error("scheduler: listing queues failed", "error", err)
		return
	}

	for _, queueName := range queues {
		result, err := s.manager.ProcessQueue(ctx, queueName, s.workerID)
		if err != nil {
			slog.Error("scheduler: queue pass failed", "queue", queueName, "error", err)
			continue
		}
		if result.Acquired && (result.Processed > 0 || result.Failed > 0) {
			slog.Info("scheduler: queue pass complete",
				"queue", queueName,
				"processed", result.Processed,
				"failed", result.Failed)
		}
	}
}

func (s *Scheduler) cleanup(ctx context.Context) {
	result, err := s.manager.Cleanup(ctx)
	if err != nil {
		slog.Error("scheduler: cleanup sweep failed", "error", err)
		return
	}
	slog.Info("scheduler: cleanup sweep complete",
		"expired_jobs", result.ExpiredJobs,
		"deleted_locks", result.DeletedLocks,
		"deleted_completed", result.DeletedCompleted,
		"requeued_stuck", result.RequeuedStuck)
}
