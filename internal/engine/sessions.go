package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"example.com/liftsync/internal/domain"
)

// StartSession creates a new active session from a template. Any prior active
// session for the user is marked completed first, locally and remotely; if
// that step fails the new session is not created, so two sessions can never
// be active at once.
func (e *Engine) StartSession(ctx context.Context, templateID string) (domain.Session, error) {
	if !e.authenticated() {
		return domain.Session{}, domain.ErrAuthRequired
	}
	tmpl, exists := e.findTemplate(templateID)
	if !exists {
		return domain.Session{}, fmt.Errorf("start session from template %s: %w", templateID, domain.ErrNotFound)
	}

	if err := e.completeActiveSessions(ctx, ""); err != nil {
		return domain.Session{}, err
	}

	session := domain.Session{
		ID:            uuid.NewString(),
		TemplateID:    tmpl.ID,
		TemplateName:  tmpl.Name,
		WorkoutTypeID: tmpl.WorkoutTypeID,
		Date:          e.now().UTC(),
		Exercises:     plannedExercises(tmpl.Exercises),
		IsCompleted:   false,
	}

	online, userID, ok := e.mutate(ctx, func() { e.upsertSessionLocked(session) })
	if !ok {
		return domain.Session{}, domain.ErrAuthRequired
	}

	if !online {
		e.enqueueChange(ctx, userID, domain.ChangeKindSession, domain.ChangeOpInsert, session.ID, session)
		return session, nil
	}

	canonical, err := e.gw.InsertSession(ctx, session)
	if err != nil {
		e.logger.Printf("insert session %s failed remotely; local copy retained: %v", session.ID, err)
		if e.policy.QueueOnFailedWrite {
			e.enqueueChange(ctx, userID, domain.ChangeKindSession, domain.ChangeOpInsert, session.ID, session)
			return session, nil
		}
		return session, err
	}
	if canonical.ID != "" && canonical.ID != session.ID {
		e.mutate(ctx, func() { e.replaceSessionLocked(session.ID, canonical) })
		return canonical, nil
	}
	return session, nil
}

// MarkSessionActive swaps which session is active. All other sessions are
// completed first; failure there aborts the activation (fail closed).
func (e *Engine) MarkSessionActive(ctx context.Context, id string) error {
	if !e.authenticated() {
		return domain.ErrAuthRequired
	}
	if _, exists := e.findSession(id); !exists {
		return fmt.Errorf("activate session %s: %w", id, domain.ErrNotFound)
	}

	if err := e.completeActiveSessions(ctx, id); err != nil {
		return err
	}

	active := false
	return e.patchSession(ctx, id, domain.SessionPatch{IsCompleted: &active})
}

// UpdateSession applies a partial update to a session. Volume is rederived
// when the patch touches the sets.
func (e *Engine) UpdateSession(ctx context.Context, id string, patch domain.SessionPatch) error {
	if !e.authenticated() {
		return domain.ErrAuthRequired
	}
	if _, exists := e.findSession(id); !exists {
		return fmt.Errorf("update session %s: %w", id, domain.ErrNotFound)
	}
	return e.patchSession(ctx, id, patch)
}

// CompleteSession finishes a session: marks it completed, rederives the
// volume, and derives the duration from elapsed wall-clock time since the
// session started.
func (e *Engine) CompleteSession(ctx context.Context, id string) error {
	if !e.authenticated() {
		return domain.ErrAuthRequired
	}
	session, exists := e.findSession(id)
	if !exists {
		return fmt.Errorf("complete session %s: %w", id, domain.ErrNotFound)
	}

	completed := true
	duration := int(e.now().Sub(session.Date).Minutes())
	if duration < 0 {
		duration = 0
	}
	return e.patchSession(ctx, id, domain.SessionPatch{IsCompleted: &completed, DurationMinutes: &duration})
}

// AbandonSession finishes a session without crediting elapsed time.
func (e *Engine) AbandonSession(ctx context.Context, id string) error {
	if !e.authenticated() {
		return domain.ErrAuthRequired
	}
	if _, exists := e.findSession(id); !exists {
		return fmt.Errorf("abandon session %s: %w", id, domain.ErrNotFound)
	}

	completed := true
	return e.patchSession(ctx, id, domain.SessionPatch{IsCompleted: &completed})
}

// DeleteSession removes a session locally and remotely.
func (e *Engine) DeleteSession(ctx context.Context, id string) error {
	if !e.authenticated() {
		return domain.ErrAuthRequired
	}
	if _, exists := e.findSession(id); !exists {
		return fmt.Errorf("delete session %s: %w", id, domain.ErrNotFound)
	}

	online, userID, ok := e.mutate(ctx, func() {
		for i := range e.sessions {
			if e.sessions[i].ID == id {
				e.sessions = append(e.sessions[:i], e.sessions[i+1:]...)
				return
			}
		}
	})
	if !ok {
		return domain.ErrAuthRequired
	}

	return e.forwardOrQueue(ctx, online, userID, domain.ChangeKindSession, domain.ChangeOpDelete, id, nil,
		func(ctx context.Context) error { return e.gw.DeleteSession(ctx, id) })
}

// patchSession applies the patch optimistically and forwards or queues the
// remote update. The queued payload is the full post-patch record so replay
// is last-write-wins.
func (e *Engine) patchSession(ctx context.Context, id string, patch domain.SessionPatch) error {
	var updated domain.Session
	online, userID, ok := e.mutate(ctx, func() {
		for i := range e.sessions {
			if e.sessions[i].ID == id {
				patch.Apply(&e.sessions[i])
				e.sessions[i].RecomputeVolume()
				updated = e.sessions[i]
				return
			}
		}
	})
	if !ok {
		return domain.ErrAuthRequired
	}

	return e.forwardOrQueue(ctx, online, userID, domain.ChangeKindSession, domain.ChangeOpUpdate, id, updated,
		func(ctx context.Context) error { return e.gw.UpdateSession(ctx, id, patch) })
}

// completeActiveSessions marks every active session other than exceptID as
// completed, locally first, then remotely. A remote failure returns
// ErrActiveSessionConflict so the caller does not proceed to create or
// activate another session. Offline, the completions are queued ahead of
// whatever the caller enqueues next, so FIFO replay preserves the invariant
// remotely too.
func (e *Engine) completeActiveSessions(ctx context.Context, exceptID string) error {
	var toComplete []domain.Session
	online, userID, ok := e.mutate(ctx, func() {
		for i := range e.sessions {
			if !e.sessions[i].IsCompleted && e.sessions[i].ID != exceptID {
				e.sessions[i].IsCompleted = true
				e.sessions[i].RecomputeVolume()
				toComplete = append(toComplete, e.sessions[i])
			}
		}
	})
	if !ok {
		return domain.ErrAuthRequired
	}

	for _, s := range toComplete {
		if online {
			if err := e.gw.UpdateSession(ctx, s.ID, s.AsPatch()); err != nil {
				return fmt.Errorf("%w: completing session %s: %v", domain.ErrActiveSessionConflict, s.ID, err)
			}
		} else {
			e.enqueueChange(ctx, userID, domain.ChangeKindSession, domain.ChangeOpUpdate, s.ID, s)
		}
	}
	return nil
}

func (e *Engine) upsertSessionLocked(s domain.Session) {
	for i := range e.sessions {
		if e.sessions[i].ID == s.ID {
			e.sessions[i] = s
			return
		}
	}
	e.sessions = append(e.sessions, s)
}

func (e *Engine) replaceSessionLocked(provisionalID string, canonical domain.Session) {
	for i := range e.sessions {
		if e.sessions[i].ID == provisionalID {
			e.sessions[i] = canonical
			return
		}
	}
	e.sessions = append(e.sessions, canonical)
}

func (e *Engine) findSession(id string) (domain.Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range e.sessions {
		if s.ID == id {
			return s, true
		}
	}
	return domain.Session{}, false
}

// plannedExercises copies a template's exercise list with all sets reset to
// incomplete.
func plannedExercises(exercises []domain.ExerciseRecord) []domain.ExerciseRecord {
	out := make([]domain.ExerciseRecord, len(exercises))
	for i, ex := range exercises {
		sets := make([]domain.SetRecord, len(ex.Sets))
		for j, set := range ex.Sets {
			set.IsCompleted = false
			sets[j] = set
		}
		out[i] = domain.ExerciseRecord{ExerciseID: ex.ExerciseID, Name: ex.Name, Sets: sets}
	}
	return out
}
