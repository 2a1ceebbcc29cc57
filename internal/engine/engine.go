// Package engine orchestrates offline-first synchronization: cache-first
// reads, optimistic writes with offline queueing, and replay of pending
// changes against the backend.
package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"example.com/liftsync/internal/domain"
	"example.com/liftsync/internal/observability"
	"example.com/liftsync/internal/sanitize"
)

// Store is the subset of the local persistent store the engine relies on.
// A nil Store means the platform lacks durable storage and the engine runs
// remote-only.
type Store interface {
	PutSnapshot(ctx context.Context, snap domain.UserSnapshot) error
	GetSnapshot(ctx context.Context, userID string) (*domain.UserSnapshot, error)
	ClearSnapshot(ctx context.Context, userID string) error
	EnqueuePendingChange(ctx context.Context, change domain.PendingChange) (int64, error)
	ListPendingChanges(ctx context.Context, userID string) ([]domain.PendingChange, error)
	RemovePendingChange(ctx context.Context, id int64) error
	UpdatePendingRetry(ctx context.Context, id int64, retryCount int) error
	PendingCount(ctx context.Context, userID string) (int, error)
}

// Gateway is the remote backend contract the engine consumes.
type Gateway interface {
	ListTemplates(ctx context.Context, userID string) ([]domain.Template, error)
	InsertTemplate(ctx context.Context, t domain.Template) (domain.Template, error)
	UpdateTemplate(ctx context.Context, id string, patch domain.TemplatePatch) error
	DeleteTemplate(ctx context.Context, id string) error
	ListSessions(ctx context.Context, userID string) ([]domain.Session, error)
	InsertSession(ctx context.Context, s domain.Session) (domain.Session, error)
	UpdateSession(ctx context.Context, id string, patch domain.SessionPatch) error
	DeleteSession(ctx context.Context, id string) error
}

// Policy holds the tunable sync constants. They are configuration, not
// derived values.
type Policy struct {
	// SnapshotTTL is how long a cached snapshot is served without a remote
	// refresh.
	SnapshotTTL time.Duration
	// MaxReplayAttempts bounds retries per pending change; a change whose
	// retry count exceeds it is discarded.
	MaxReplayAttempts int
	// QueueOnFailedWrite also enqueues a write that failed while online,
	// instead of only logging it.
	QueueOnFailedWrite bool
}

// State is the engine's authentication lifecycle state.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticating  State = "authenticating"
	StateReady           State = "ready"
)

// Engine is the single mutator of a user's in-memory collections and, via the
// store, their on-disk snapshot. Construct one per process and inject it.
type Engine struct {
	policy Policy
	store  Store
	gw     Gateway
	logger *log.Logger
	now    func() time.Time

	mu        sync.Mutex
	state     State
	user      *domain.AuthUser
	templates []domain.Template
	sessions  []domain.Session
	lastSync  time.Time
	online    bool
	syncing   bool
	replaying bool
}

// Option configures optional behaviour for the Engine.
type Option func(*Engine)

// WithLogger overrides the logger used for background-path failures.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New constructs an Engine. store may be nil to run remote-only.
func New(store Store, gw Gateway, policy Policy, opts ...Option) *Engine {
	e := &Engine{
		policy: policy,
		store:  store,
		gw:     gw,
		logger: log.New(log.Writer(), "[engine] ", log.LstdFlags|log.Lshortfile),
		now:    time.Now,
		state:  StateUnauthenticated,
		online: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SignIn installs the authenticated user and performs the initial load.
func (e *Engine) SignIn(ctx context.Context, user *domain.AuthUser) error {
	if user == nil || user.ID == "" {
		return domain.ErrAuthRequired
	}

	e.mu.Lock()
	e.user = sanitize.User(user)
	e.state = StateAuthenticating
	e.mu.Unlock()

	err := e.LoadData(ctx, false)

	e.mu.Lock()
	e.state = StateReady
	e.mu.Unlock()
	return err
}

// SignOut clears in-memory state and the cached snapshot.
func (e *Engine) SignOut(ctx context.Context) error {
	e.mu.Lock()
	user := e.user
	e.user = nil
	e.state = StateUnauthenticated
	e.templates = nil
	e.sessions = nil
	e.lastSync = time.Time{}
	e.mu.Unlock()

	if user == nil || e.store == nil {
		return nil
	}
	if err := e.store.ClearSnapshot(ctx, user.ID); err != nil {
		return err
	}
	return nil
}

// SetOnline records the connectivity state and reports whether this call was
// an offline-to-online transition.
func (e *Engine) SetOnline(online bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	wentOnline := online && !e.online
	e.online = online
	return wentOnline
}

// LoadData refreshes the user's templates and sessions. Reads are served from
// the cached snapshot when it is younger than the snapshot TTL, unless force
// is set. Concurrent calls coalesce: at most one sync runs per user, and
// later callers return immediately.
//
// Failures never surface an empty state: a failed remote refresh falls back
// to whatever cached snapshot exists.
func (e *Engine) LoadData(ctx context.Context, force bool) error {
	e.mu.Lock()
	if e.user == nil {
		// No-op so background triggers never crash on a signed-out engine.
		e.mu.Unlock()
		return nil
	}
	if e.syncing {
		e.mu.Unlock()
		return nil
	}
	e.syncing = true
	userID := e.user.ID
	user := e.user
	online := e.online
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.syncing = false
		e.mu.Unlock()
	}()

	var cached *domain.UserSnapshot
	if e.store != nil {
		snap, err := e.store.GetSnapshot(ctx, userID)
		if err != nil {
			e.logger.Printf("snapshot read failed: %v", err)
		}
		cached = snap
		if cached != nil && !force && e.now().Sub(cached.LastSync) < e.policy.SnapshotTTL {
			e.applySnapshot(cached)
			observability.RecordCacheHit()
			return nil
		}
	}

	if !online {
		// Offline: serve what we have, even if stale or absent.
		if cached != nil {
			e.applySnapshot(cached)
		} else {
			e.applyEmpty(userID)
		}
		return nil
	}

	observability.RecordCacheMiss()
	start := e.now()

	templates, err := e.gw.ListTemplates(ctx, userID)
	var sessions []domain.Session
	if err == nil {
		sessions, err = e.gw.ListSessions(ctx, userID)
	}
	if err != nil {
		e.logger.Printf("remote refresh failed, serving cached snapshot: %v", err)
		observability.RecordSyncFailure()
		if cached != nil {
			e.applySnapshot(cached)
		} else {
			e.applyEmpty(userID)
		}
		return nil
	}

	// Stored aggregates are never authoritative.
	for i := range sessions {
		sessions[i].RecomputeVolume()
	}

	now := e.now()
	e.mu.Lock()
	e.templates = templates
	e.sessions = sessions
	if now.After(e.lastSync) {
		e.lastSync = now
	}
	lastSync := e.lastSync
	e.mu.Unlock()

	e.persistSnapshot(ctx, userID, user, templates, sessions, lastSync)
	observability.ObserveSyncDuration(e.now().Sub(start))
	observability.RecordLastSync(lastSync)
	return nil
}

// applySnapshot replaces in-memory state from a cached snapshot, rederiving
// volumes rather than trusting stored aggregates.
func (e *Engine) applySnapshot(snap *domain.UserSnapshot) {
	sessions := make([]domain.Session, len(snap.Sessions))
	copy(sessions, snap.Sessions)
	for i := range sessions {
		sessions[i].RecomputeVolume()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates = snap.Templates
	e.sessions = sessions
	if snap.LastSync.After(e.lastSync) {
		e.lastSync = snap.LastSync
	}
}

func (e *Engine) applyEmpty(userID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.user == nil || e.user.ID != userID {
		return
	}
	if e.templates == nil {
		e.templates = []domain.Template{}
	}
	if e.sessions == nil {
		e.sessions = []domain.Session{}
	}
}

// persistSnapshot writes the supplied state through the serialization guard
// to the local store. Persistence failures are logged, never propagated: the
// in-memory state already reflects the data.
func (e *Engine) persistSnapshot(ctx context.Context, userID string, user *domain.AuthUser, templates []domain.Template, sessions []domain.Session, lastSync time.Time) {
	if e.store == nil {
		return
	}
	snap := domain.UserSnapshot{
		UserID:    userID,
		Templates: templates,
		Sessions:  sessions,
		LastSync:  lastSync,
		User:      sanitize.User(user),
	}
	if err := e.store.PutSnapshot(ctx, snap); err != nil {
		e.logger.Printf("snapshot write failed: %v", err)
	}
}

// snapshotLocked captures current state for a read-modify-write persist.
// Callers hold e.mu.
func (e *Engine) snapshotLocked() (string, *domain.AuthUser, []domain.Template, []domain.Session) {
	templates := make([]domain.Template, len(e.templates))
	copy(templates, e.templates)
	sessions := make([]domain.Session, len(e.sessions))
	copy(sessions, e.sessions)
	return e.user.ID, e.user, templates, sessions
}
