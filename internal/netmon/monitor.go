// Package netmon observes connectivity and app-foreground transitions and
// drives the sync engine's refresh and replay paths. These are the only two
// automatic sync triggers besides explicit caller requests.
package netmon

import (
	"context"
	"log"
	"sync"
	"time"
)

// Syncer is the engine surface the monitor drives.
type Syncer interface {
	SetOnline(online bool) bool
	LoadData(ctx context.Context, force bool) error
	SyncPendingChanges(ctx context.Context) error
	Authenticated() bool
	Online() bool
	LastSync() time.Time
}

// Monitor turns platform connectivity and visibility signals into engine
// triggers. Failures on these background paths are logged, never propagated.
type Monitor struct {
	syncer   Syncer
	ttl      time.Duration
	debounce time.Duration
	logger   *log.Logger
	now      func() time.Time

	mu         sync.Mutex
	foreground bool
	timer      *time.Timer
}

// Option configures optional behaviour for the Monitor.
type Option func(*Monitor)

// WithLogger overrides the trigger-failure logger.
func WithLogger(logger *log.Logger) Option {
	return func(m *Monitor) { m.logger = logger }
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// New constructs a Monitor. ttl is the cache age beyond which a foreground
// transition forces a refresh; debounce coalesces rapid visibility toggles.
func New(syncer Syncer, ttl, debounce time.Duration, opts ...Option) *Monitor {
	m := &Monitor{
		syncer:   syncer,
		ttl:      ttl,
		debounce: debounce,
		logger:   log.New(log.Writer(), "[netmon] ", log.LstdFlags),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetOnline feeds a connectivity signal. An offline-to-online transition
// triggers pending-change replay.
func (m *Monitor) SetOnline(ctx context.Context, online bool) {
	if !m.syncer.SetOnline(online) {
		return
	}
	if err := m.syncer.SyncPendingChanges(ctx); err != nil {
		m.logger.Printf("replay after reconnect failed: %v", err)
	}
}

// SetForeground feeds an app-visibility signal. A transition to foreground
// schedules a forced refresh, debounced so rapid toggles coalesce into one,
// when the user is authenticated, online, and the cache is older than the
// freshness window.
func (m *Monitor) SetForeground(_ context.Context, foreground bool) {
	m.mu.Lock()
	wasForeground := m.foreground
	m.foreground = foreground
	if !foreground {
		if m.timer != nil {
			m.timer.Stop()
			m.timer = nil
		}
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	if wasForeground {
		return
	}
	if !m.syncer.Authenticated() || !m.syncer.Online() {
		return
	}
	if m.now().Sub(m.syncer.LastSync()) <= m.ttl {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.debounce, func() {
		if err := m.syncer.LoadData(context.Background(), true); err != nil {
			m.logger.Printf("foreground refresh failed: %v", err)
		}
	})
}

// Close stops any scheduled refresh. Tie it to the owner's lifetime.
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}
