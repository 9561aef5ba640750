package vectorstore

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultHealthInterval is how often the monitor probes the store.
const DefaultHealthInterval = 30 * time.Second

// HealthStats exposes the monitor's counters.
type HealthStats struct {
	StartedAt           time.Time
	Uptime              time.Duration
	Probes              int
	Failures            int
	Transitions         int
	ConsecutiveFailures int
	Healthy             bool
}

// HealthMonitor periodically probes a Store and notifies listeners on
// health transitions. The store is assumed healthy until the first
// failing probe, so listeners hear only about actual changes.
type HealthMonitor struct {
	store    Store
	interval time.Duration

	mu        sync.Mutex
	listeners map[int]func(healthy bool)
	nextID    int
	healthy   bool
	startedAt time.Time
	probes    int
	failures  int
	consec    int
	changes   int
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewHealthMonitor creates a monitor. interval <= 0 uses
// DefaultHealthInterval.
func NewHealthMonitor(store Store, interval time.Duration) *HealthMonitor {
	if interval <= 0 {
		interval = DefaultHealthInterval
	}
	return &HealthMonitor{
		store:     store,
		interval:  interval,
		listeners: make(map[int]func(bool)),
		healthy:   true,
	}
}

// StartMonitoring begins the periodic probe loop. Calling it while
// already running is a no-op.
func (m *HealthMonitor) StartMonitoring(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running = true
	m.startedAt = time.Now()

	go m.loop(ctx)
}

// StopMonitoring halts the probe loop. Listener registrations survive a
// stop/start cycle.
func (m *HealthMonitor) StopMonitoring() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	cancel()
	<-done
}

// OnHealthChange registers a listener called on healthy/unhealthy
// transitions only, never on steady-state probes. The returned function
// unsubscribes.
func (m *HealthMonitor) OnHealthChange(listener func(healthy bool)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = listener

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// GetHealthStats returns a snapshot of the monitor's counters.
func (m *HealthMonitor) GetHealthStats() HealthStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := HealthStats{
		StartedAt:           m.startedAt,
		Probes:              m.probes,
		Failures:            m.failures,
		Transitions:         m.changes,
		ConsecutiveFailures: m.consec,
		Healthy:             m.healthy,
	}
	if !m.startedAt.IsZero() {
		stats.Uptime = time.Since(m.startedAt)
	}
	return stats
}

// Dispose stops the monitor and drops all listeners.
func (m *HealthMonitor) Dispose() {
	m.StopMonitoring()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = make(map[int]func(bool))
}

func (m *HealthMonitor) loop(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

func (m *HealthMonitor) probe(ctx context.Context) {
	healthy := m.store.HealthCheck(ctx, true)

	m.mu.Lock()
	m.probes++
	if !healthy {
		m.failures++
		m.consec++
	} else {
		m.consec = 0
	}

	changed := healthy != m.healthy
	m.healthy = healthy
	if changed {
		m.changes++
	}

	var notify []func(bool)
	if changed {
		notify = make([]func(bool), 0, len(m.listeners))
		for _, listener := range m.listeners {
			notify = append(notify, listener)
		}
	}
	m.mu.Unlock()

	if changed {
		log.Printf("vector store health changed: healthy=%v", healthy)
		for _, listener := range notify {
			listener(healthy)
		}
	}
}
