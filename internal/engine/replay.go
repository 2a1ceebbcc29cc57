package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"example.com/liftsync/internal/domain"
	"example.com/liftsync/internal/observability"
)

// SyncPendingChanges replays queued writes against the backend in enqueue
// order. Preconditions: online, authenticated, store available; otherwise it
// is a no-op. A replay already in progress is never re-entered.
//
// On a failed attempt the change's retry count is incremented and the run
// stops, so later changes cannot overtake the failed one. A change whose
// retry count exceeds the policy bound is discarded; the queue never grows
// without bound and nothing is retried indefinitely.
func (e *Engine) SyncPendingChanges(ctx context.Context) error {
	e.mu.Lock()
	if e.user == nil || !e.online || e.store == nil || e.replaying {
		e.mu.Unlock()
		return nil
	}
	e.replaying = true
	userID := e.user.ID
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.replaying = false
		e.mu.Unlock()
	}()

	changes, err := e.store.ListPendingChanges(ctx, userID)
	if err != nil {
		e.logger.Printf("list pending changes failed: %v", err)
		return nil
	}

	for _, change := range changes {
		err := e.replayChange(ctx, change)
		if err == nil {
			if removeErr := e.store.RemovePendingChange(ctx, change.ID); removeErr != nil {
				e.logger.Printf("remove replayed change %d failed: %v", change.ID, removeErr)
			}
			observability.RecordReplayed()
			continue
		}

		retry := change.RetryCount + 1
		observability.RecordReplayFailure()
		e.logger.Printf("replay of change %d (%s %s %s) failed, attempt %d: %v",
			change.ID, change.Op, change.Kind, change.RecordID, retry, err)

		if retry > e.policy.MaxReplayAttempts {
			if removeErr := e.store.RemovePendingChange(ctx, change.ID); removeErr != nil {
				e.logger.Printf("drop exhausted change %d failed: %v", change.ID, removeErr)
			}
			observability.RecordReplayDropped()
			continue
		}
		if updateErr := e.store.UpdatePendingRetry(ctx, change.ID, retry); updateErr != nil {
			e.logger.Printf("record retry for change %d failed: %v", change.ID, updateErr)
		}
		break
	}

	if depth, err := e.store.PendingCount(ctx, userID); err == nil {
		observability.SetQueueDepth(depth)
	}
	return nil
}

// replayChange invokes the gateway operation matching a queued change. A
// payload that no longer decodes is a poison pill: it is removed immediately
// rather than burning retries.
func (e *Engine) replayChange(ctx context.Context, change domain.PendingChange) error {
	switch change.Kind {
	case domain.ChangeKindTemplate:
		switch change.Op {
		case domain.ChangeOpInsert:
			var t domain.Template
			if err := json.Unmarshal(change.Payload, &t); err != nil {
				e.dropMalformed(ctx, change, err)
				return nil
			}
			_, err := e.gw.InsertTemplate(ctx, t)
			return err
		case domain.ChangeOpUpdate:
			var t domain.Template
			if err := json.Unmarshal(change.Payload, &t); err != nil {
				e.dropMalformed(ctx, change, err)
				return nil
			}
			return e.gw.UpdateTemplate(ctx, change.RecordID, t.AsPatch())
		case domain.ChangeOpDelete:
			return e.gw.DeleteTemplate(ctx, change.RecordID)
		}
	case domain.ChangeKindSession:
		switch change.Op {
		case domain.ChangeOpInsert:
			var s domain.Session
			if err := json.Unmarshal(change.Payload, &s); err != nil {
				e.dropMalformed(ctx, change, err)
				return nil
			}
			_, err := e.gw.InsertSession(ctx, s)
			return err
		case domain.ChangeOpUpdate:
			var s domain.Session
			if err := json.Unmarshal(change.Payload, &s); err != nil {
				e.dropMalformed(ctx, change, err)
				return nil
			}
			return e.gw.UpdateSession(ctx, change.RecordID, s.AsPatch())
		case domain.ChangeOpDelete:
			return e.gw.DeleteSession(ctx, change.RecordID)
		}
	}
	e.dropMalformed(ctx, change, fmt.Errorf("unknown change %s/%s", change.Kind, change.Op))
	return nil
}

func (e *Engine) dropMalformed(ctx context.Context, change domain.PendingChange, cause error) {
	e.logger.Printf("dropping malformed pending change %d: %v", change.ID, cause)
	if err := e.store.RemovePendingChange(ctx, change.ID); err != nil {
		e.logger.Printf("remove malformed change %d failed: %v", change.ID, err)
	}
	observability.RecordReplayDropped()
}
