package vectorstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/codectx/internal/chunker"
)

// scriptedStore reports health from a settable flag.
type scriptedStore struct {
	mu      sync.Mutex
	healthy bool
}

func (s *scriptedStore) setHealthy(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthy = v
}

func (s *scriptedStore) HealthCheck(ctx context.Context, forceRefresh bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.healthy
}

func (s *scriptedStore) CreateCollectionIfNotExists(ctx context.Context, name string, vectorSize int) (bool, error) {
	return false, nil
}
func (s *scriptedStore) UpsertChunks(ctx context.Context, collection string, chunks []chunker.Chunk, vectors [][]float32) error {
	return nil
}
func (s *scriptedStore) Search(ctx context.Context, collection string, vector []float32, limit int, filter map[string]any) ([]SearchResult, error) {
	return nil, nil
}
func (s *scriptedStore) DeleteByFile(ctx context.Context, collection, filePath string) error {
	return nil
}
func (s *scriptedStore) GetCollectionInfo(ctx context.Context, name string) (*CollectionInfo, error) {
	return nil, ErrNotFound
}
func (s *scriptedStore) GetCollections(ctx context.Context) ([]string, error) { return nil, nil }
func (s *scriptedStore) DeleteCollection(ctx context.Context, name string) error {
	return nil
}

func TestHealthMonitorNotifiesOnTransitionsOnly(t *testing.T) {
	t.Parallel()

	store := &scriptedStore{healthy: true}
	monitor := NewHealthMonitor(store, 5*time.Millisecond)
	defer monitor.Dispose()

	var mu sync.Mutex
	var events []bool
	monitor.OnHealthChange(func(healthy bool) {
		mu.Lock()
		events = append(events, healthy)
		mu.Unlock()
	})

	monitor.StartMonitoring(context.Background())

	// Healthy probes from the assumed-healthy start: no events.
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	assert.Empty(t, events)
	mu.Unlock()

	store.setHealthy(false)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 1 && events[0] == false
	}, time.Second, 5*time.Millisecond)

	store.setHealthy(true)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 2 && events[1] == true
	}, time.Second, 5*time.Millisecond)

	stats := monitor.GetHealthStats()
	assert.Equal(t, 2, stats.Transitions)
	assert.True(t, stats.Healthy)
	assert.Greater(t, stats.Probes, 0)
}

func TestHealthMonitorStopAndUnsubscribe(t *testing.T) {
	t.Parallel()

	store := &scriptedStore{healthy: true}
	monitor := NewHealthMonitor(store, 5*time.Millisecond)

	var mu sync.Mutex
	calls := 0
	unsubscribe := monitor.OnHealthChange(func(bool) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	unsubscribe()

	monitor.StartMonitoring(context.Background())
	store.setHealthy(false)
	time.Sleep(30 * time.Millisecond)

	monitor.StopMonitoring()
	// Idempotent.
	monitor.StopMonitoring()
	monitor.Dispose()

	mu.Lock()
	assert.Equal(t, 0, calls, "unsubscribed listener never fires")
	mu.Unlock()

	stats := monitor.GetHealthStats()
	assert.False(t, stats.Healthy)
	assert.Greater(t, stats.ConsecutiveFailures, 0)
}
