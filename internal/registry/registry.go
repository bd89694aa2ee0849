// Package registry caches engine configurations loaded from the store.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dealscope/dealscope/internal/store"
	"github.com/dealscope/dealscope/pkg/models"
)

// ErrEngineNotFound covers both unknown and disabled engines; a disabled
// engine behaves identically to an absent one from the caller's side.
var ErrEngineNotFound = errors.New("engine not found or disabled")

// ErrQueueNotFound is returned when no engine maps to a queue name.
var ErrQueueNotFound = errors.New("no engine registered for queue")

// Registry is an injectable, in-memory view of the engine_registry table.
// Loaded lazily on first access; call Refresh after registry changes.
type Registry struct {
	store store.Store

	mu      sync.RWMutex
	byID    map[string]*models.EngineConfig // enabled engines only
	byQueue map[string]*models.EngineConfig // all engines, including disabled
	loaded  bool
}

func New(st store.Store) *Registry {
	return &Registry{store: st}
}

// Get returns the config for an enabled engine, or ErrEngineNotFound.
func (r *Registry) Get(ctx context.Context, engineID string) (*models.EngineConfig, error) {
	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.byID[engineID]
	if !ok {
		return nil, ErrEngineNotFound
	}
	return cfg, nil
}

// GetByQueue resolves a queue name back to its engine config. Disabled
// engines are still resolvable here so jobs queued before the engine was
// disabled can drain.
func (r *Registry) GetByQueue(ctx context.Context, queueName string) (*models.EngineConfig, error) {
	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.byQueue[queueName]
	if !ok {
		return nil, ErrQueueNotFound
	}
	return cfg, nil
}

// QueueNames lists every registered queue, including queues of disabled engines.
func (r *Registry) QueueNames(ctx context.Context) ([]string, error) {
	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byQueue))
	for name := range r.byQueue {
		names = append(names, name)
	}
	return names, nil
}

// Refresh reloads all engine configs from the store.
func (r *Registry) Refresh(ctx context.Context) error {
	configs, err := r.store.ListEngineConfigs(ctx)
	if err != nil {
		return fmt.Errorf("refresh engine registry: %w", err)
	}

	byID := make(map[string]*models.EngineConfig, len(configs))
	byQueue := make(map[string]*models.EngineConfig, len(configs))
	for _, cfg := range configs {
		if cfg.Enabled {
			byID[cfg.EngineID] = cfg
		}
		byQueue[cfg.QueueName] = cfg
	}

	r.mu.Lock()
	r.byID = byID
	r.byQueue = byQueue
	r.loaded = true
	r.mu.Unlock()
	return nil
}

func (r *Registry) ensureLoaded(ctx context.Context) error {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return nil
	}
	return r.Refresh(ctx)
}
