package engine

import (
	"context"
	"time"

	"example.com/liftsync/internal/domain"
)

// State reports the auth lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Online reports the current connectivity assumption.
func (e *Engine) Online() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.online
}

// Syncing reports whether a load is in flight.
func (e *Engine) Syncing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.syncing
}

// LastSync returns the time of the last successful sync or optimistic write.
func (e *Engine) LastSync() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSync
}

// Authenticated reports whether a user is signed in.
func (e *Engine) Authenticated() bool {
	return e.authenticated()
}

// CurrentUser returns the signed-in user, or nil.
func (e *Engine) CurrentUser() *domain.AuthUser {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.user
}

// Templates returns a copy of the in-memory templates.
func (e *Engine) Templates() []domain.Template {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Template, len(e.templates))
	copy(out, e.templates)
	return out
}

// Sessions returns a copy of the in-memory sessions.
func (e *Engine) Sessions() []domain.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Session, len(e.sessions))
	copy(out, e.sessions)
	return out
}

// CompletedSessions returns finished sessions, most recent first.
func (e *Engine) CompletedSessions() []domain.Session {
	return domain.CompletedSessions(e.Sessions())
}

// ActiveSession returns the single in-progress session, or nil.
func (e *Engine) ActiveSession() *domain.Session {
	return domain.ActiveSession(e.Sessions())
}

// LifetimeVolume sums volume across completed sessions.
func (e *Engine) LifetimeVolume() float64 {
	return domain.LifetimeVolume(e.Sessions())
}

// AverageDuration returns the mean completed-session duration in minutes.
func (e *Engine) AverageDuration() float64 {
	return domain.AverageDuration(e.Sessions())
}

// MostUsedExercises ranks exercises by appearances in completed sessions.
func (e *Engine) MostUsedExercises(limit int) []domain.ExerciseUsage {
	return domain.MostUsedExercises(e.Sessions(), limit)
}

// WeeklyVolumes buckets completed-session volume by week.
func (e *Engine) WeeklyVolumes() []domain.WeeklyVolume {
	return domain.WeeklyVolumes(e.Sessions())
}

// PendingCount reports the replay queue depth, 0 when storage is unavailable.
func (e *Engine) PendingCount(ctx context.Context) int {
	e.mu.Lock()
	user := e.user
	e.mu.Unlock()
	if user == nil || e.store == nil {
		return 0
	}
	count, err := e.store.PendingCount(ctx, user.ID)
	if err != nil {
		e.logger.Printf("pending count failed: %v", err)
		return 0
	}
	return count
}
