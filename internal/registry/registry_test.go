package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealscope/dealscope/internal/store"
	"github.com/dealscope/dealscope/pkg/models"
)

// regStore stubs only the method the registry uses.
type regStore struct {
	store.Store
	engines []*models.EngineConfig
	err     error
	calls   int
}

func (s *regStore) ListEngineConfigs(_ context.Context) ([]*models.EngineConfig, error) {
	s.calls++
	return s.engines, s.err
}

func testEngines() []*models.EngineConfig {
	return []*models.EngineConfig{
		{EngineID: "deal_analysis", QueueName: "deal_analysis_queue", MaxConcurrency: 5, JobTTLMinutes: 60, Enabled: true},
		{EngineID: "deal_scoring", QueueName: "deal_scoring_queue", MaxConcurrency: 5, JobTTLMinutes: 60, Enabled: false},
	}
}

func TestGet_EnabledEngine(t *testing.T) {
	r := New(&regStore{engines: testEngines()})

	cfg, err := r.Get(context.Background(), "deal_analysis")
	require.NoError(t, err)
	assert.Equal(t, "deal_analysis_queue", cfg.QueueName)
}

func TestGet_DisabledEngineBehavesAsAbsent(t *testing.T) {
	r := New(&regStore{engines: testEngines()})

	_, err := r.Get(context.Background(), "deal_scoring")
	assert.ErrorIs(t, err, ErrEngineNotFound)

	_, err = r.Get(context.Background(), "never_existed")
	assert.ErrorIs(t, err, ErrEngineNotFound)
}

func TestGetByQueue_IncludesDisabledEngines(t *testing.T) {
	r := New(&regStore{engines: testEngines()})

	cfg, err := r.GetByQueue(context.Background(), "deal_scoring_queue")
	require.NoError(t, err)
	assert.Equal(t, "deal_scoring", cfg.EngineID)
	assert.False(t, cfg.Enabled)

	_, err = r.GetByQueue(context.Background(), "no_such_queue")
	assert.ErrorIs(t, err, ErrQueueNotFound)
}

func TestQueueNames_ListsAllQueues(t *testing.T) {
	r := New(&regStore{engines: testEngines()})

	names, err := r.QueueNames(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"deal_analysis_queue", "deal_scoring_queue"}, names)
}

func TestRegistry_LoadsLazilyOnce(t *testing.T) {
	st := &regStore{engines: testEngines()}
	r := New(st)

	_, err := r.Get(context.Background(), "deal_analysis")
	require.NoError(t, err)
	_, err = r.GetByQueue(context.Background(), "deal_analysis_queue")
	require.NoError(t, err)

	assert.Equal(t, 1, st.calls, "registry should load from the store once")
}

func TestRefresh_PicksUpChanges(t *testing.T) {
	st := &regStore{engines: testEngines()}
	r := New(st)

	_, err := r.Get(context.Background(), "deal_analysis")
	require.NoError(t, err)

	st.engines = []*models.EngineConfig{
		{EngineID: "document_analysis", QueueName: "document_analysis_queue", MaxConcurrency: 3, JobTTLMinutes: 120, Enabled: true},
	}
	require.NoError(t, r.Refresh(context.Background()))

	_, err = r.Get(context.Background(), "deal_analysis")
	assert.ErrorIs(t, err, ErrEngineNotFound)

	cfg, err := r.Get(context.Background(), "document_analysis")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxConcurrency)
}

func TestRegistry_PropagatesLoadError(t *testing.T) {
	loadErr := errors.New("database unavailable")
	r := New(&regStore{err: loadErr})

	_, err := r.Get(context.Background(), "deal_analysis")
	assert.ErrorIs(t, err, loadErr)
}
