package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"example.com/liftsync/internal/domain"
	"example.com/liftsync/internal/observability"
	"example.com/liftsync/internal/sanitize"
)

// mutate applies fn to the in-memory collections under the lock, advances the
// sync watermark, and persists the resulting snapshot. The optimistic local
// copy is durable before any remote call happens, so an edit survives even if
// the process terminates before remote sync. ok is false when no user is
// signed in.
func (e *Engine) mutate(ctx context.Context, fn func()) (online bool, userID string, ok bool) {
	e.mu.Lock()
	if e.user == nil {
		e.mu.Unlock()
		return false, "", false
	}
	fn()
	if now := e.now(); now.After(e.lastSync) {
		e.lastSync = now
	}
	userID, user, templates, sessions := e.snapshotLocked()
	lastSync := e.lastSync
	online = e.online
	e.mu.Unlock()

	e.persistSnapshot(ctx, userID, user, templates, sessions, lastSync)
	return online, userID, true
}

// forwardOrQueue completes the write path after the optimistic local persist:
// forward to the gateway while online, enqueue for replay while offline. A
// failed online write keeps the local state either way; whether it is also
// queued is the QueueOnFailedWrite policy.
func (e *Engine) forwardOrQueue(ctx context.Context, online bool, userID string, kind domain.ChangeKind, op domain.ChangeOp, recordID string, record any, remote func(context.Context) error) error {
	if !online {
		e.enqueueChange(ctx, userID, kind, op, recordID, record)
		return nil
	}
	if err := remote(ctx); err != nil {
		e.logger.Printf("%s %s %s failed remotely; local state retained: %v", op, kind, recordID, err)
		if e.policy.QueueOnFailedWrite {
			e.enqueueChange(ctx, userID, kind, op, recordID, record)
			return nil
		}
		return err
	}
	return nil
}

// enqueueChange runs the record through the serialization guard and appends
// it to the pending queue. A record that cannot be serialized at all is
// logged and skipped: the caller's local state already holds the data, only
// offline durability for this one change is lost.
func (e *Engine) enqueueChange(ctx context.Context, userID string, kind domain.ChangeKind, op domain.ChangeOp, recordID string, record any) {
	if e.store == nil {
		e.logger.Printf("no local store; dropping queued %s %s %s", op, kind, recordID)
		return
	}

	var payload []byte
	if record != nil {
		encoded, err := sanitize.Record(record)
		if err != nil {
			e.logger.Printf("%s %s %s not serializable; offline durability not guaranteed: %v", op, kind, recordID, err)
			return
		}
		payload = encoded
	}

	change := domain.PendingChange{
		UserID:     userID,
		Kind:       kind,
		Op:         op,
		RecordID:   recordID,
		Payload:    payload,
		EnqueuedAt: e.now(),
	}
	if _, err := e.store.EnqueuePendingChange(ctx, change); err != nil {
		e.logger.Printf("enqueue %s %s %s failed: %v", op, kind, recordID, err)
		return
	}
	if depth, err := e.store.PendingCount(ctx, userID); err == nil {
		observability.SetQueueDepth(depth)
	}
}

// AddTemplate creates a template under a provisional client id, persists it
// optimistically, and forwards it to the backend, which assigns the canonical
// id.
func (e *Engine) AddTemplate(ctx context.Context, t domain.Template) (domain.Template, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	online, userID, ok := e.mutate(ctx, func() { e.upsertTemplateLocked(t) })
	if !ok {
		return domain.Template{}, domain.ErrAuthRequired
	}

	if !online {
		e.enqueueChange(ctx, userID, domain.ChangeKindTemplate, domain.ChangeOpInsert, t.ID, t)
		return t, nil
	}

	canonical, err := e.gw.InsertTemplate(ctx, t)
	if err != nil {
		e.logger.Printf("insert template %s failed remotely; local copy retained: %v", t.ID, err)
		if e.policy.QueueOnFailedWrite {
			e.enqueueChange(ctx, userID, domain.ChangeKindTemplate, domain.ChangeOpInsert, t.ID, t)
			return t, nil
		}
		return t, err
	}
	if canonical.ID != "" && canonical.ID != t.ID {
		e.mutate(ctx, func() { e.replaceTemplateLocked(t.ID, canonical) })
		return canonical, nil
	}
	return t, nil
}

// UpdateTemplate applies a partial update to an existing template.
func (e *Engine) UpdateTemplate(ctx context.Context, id string, patch domain.TemplatePatch) error {
	if _, exists := e.findTemplate(id); !exists {
		if !e.authenticated() {
			return domain.ErrAuthRequired
		}
		return fmt.Errorf("update template %s: %w", id, domain.ErrNotFound)
	}

	var updated domain.Template
	online, userID, ok := e.mutate(ctx, func() {
		for i := range e.templates {
			if e.templates[i].ID == id {
				patch.Apply(&e.templates[i])
				updated = e.templates[i]
				return
			}
		}
	})
	if !ok {
		return domain.ErrAuthRequired
	}

	return e.forwardOrQueue(ctx, online, userID, domain.ChangeKindTemplate, domain.ChangeOpUpdate, id, updated,
		func(ctx context.Context) error { return e.gw.UpdateTemplate(ctx, id, patch) })
}

// DeleteTemplate removes a template locally and remotely.
func (e *Engine) DeleteTemplate(ctx context.Context, id string) error {
	if _, exists := e.findTemplate(id); !exists {
		if !e.authenticated() {
			return domain.ErrAuthRequired
		}
		return fmt.Errorf("delete template %s: %w", id, domain.ErrNotFound)
	}

	online, userID, ok := e.mutate(ctx, func() {
		for i := range e.templates {
			if e.templates[i].ID == id {
				e.templates = append(e.templates[:i], e.templates[i+1:]...)
				return
			}
		}
	})
	if !ok {
		return domain.ErrAuthRequired
	}

	return e.forwardOrQueue(ctx, online, userID, domain.ChangeKindTemplate, domain.ChangeOpDelete, id, nil,
		func(ctx context.Context) error { return e.gw.DeleteTemplate(ctx, id) })
}

func (e *Engine) upsertTemplateLocked(t domain.Template) {
	for i := range e.templates {
		if e.templates[i].ID == t.ID {
			e.templates[i] = t
			return
		}
	}
	e.templates = append(e.templates, t)
}

func (e *Engine) replaceTemplateLocked(provisionalID string, canonical domain.Template) {
	for i := range e.templates {
		if e.templates[i].ID == provisionalID {
			e.templates[i] = canonical
			return
		}
	}
	e.templates = append(e.templates, canonical)
}

func (e *Engine) findTemplate(id string) (domain.Template, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range e.templates {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Template{}, false
}

func (e *Engine) authenticated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.user != nil
}
