// Package store provides the local persistent cache: one snapshot per user
// plus the FIFO queue of pending writes, backed by SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"example.com/liftsync/internal/domain"
)

const schemaVersion = 2

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS user_data (
	user_id TEXT PRIMARY KEY,
	payload TEXT NOT NULL,
	last_sync INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS pending_changes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	change_type TEXT NOT NULL,
	op TEXT NOT NULL,
	record_id TEXT NOT NULL,
	payload TEXT NOT NULL,
	enqueued_at INTEGER NOT NULL,
	retry_count INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_pending_changes_user
ON pending_changes(user_id, id);
`

// snapshotRow is the persisted snapshot layout. LastSync lives in its own
// column (epoch milliseconds) so freshness checks never decode the payload.
type snapshotRow struct {
	UserID    string            `json:"user_id"`
	Templates []domain.Template `json:"templates"`
	Sessions  []domain.Session  `json:"sessions"`
	User      *domain.AuthUser  `json:"user,omitempty"`
}

// Store owns the on-disk representation of snapshots and pending changes.
// Every exported method runs in its own transaction; partial writes are not
// observable to readers.
type Store struct {
	db *sql.DB
}

// Open prepares the database at path, creating or migrating the schema as
// needed. It is idempotent. Failure to open or migrate is reported as
// ErrStorageUnavailable so callers can degrade to remote-only mode.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: store path is required", domain.ErrStorageUnavailable)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %v", domain.ErrStorageUnavailable, err)
	}
	s := &Store{db: db}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("enable wal: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return s.migrate(ctx)
}

// migrate brings an existing database up to the current schema version. Each
// step is safe to run against a store already at or past the target version.
func (s *Store) migrate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	var version int
	err = tx.QueryRowContext(ctx, `SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		version = 0
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	}

	if version < 2 {
		// v1 cached reference data in dedicated tables; the snapshot payload
		// superseded them.
		for _, obsolete := range []string{"workout_cache", "exercise_cache"} {
			if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+obsolete); err != nil {
				return fmt.Errorf("drop obsolete table %s: %w", obsolete, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE schema_version SET version = ?`, schemaVersion); err != nil {
		return fmt.Errorf("advance schema version: %w", err)
	}
	return tx.Commit()
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutSnapshot replaces the stored snapshot for the user. Last write wins; no
// merging.
func (s *Store) PutSnapshot(ctx context.Context, snap domain.UserSnapshot) error {
	row := snapshotRow{
		UserID:    snap.UserID,
		Templates: snap.Templates,
		Sessions:  snap.Sessions,
		User:      snap.User,
	}
	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_data (user_id, payload, last_sync)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET payload = excluded.payload, last_sync = excluded.last_sync
	`, snap.UserID, string(payload), snap.LastSync.UnixMilli())
	if err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	return nil
}

// GetSnapshot returns the stored snapshot for the user, or nil when absent.
func (s *Store) GetSnapshot(ctx context.Context, userID string) (*domain.UserSnapshot, error) {
	var (
		payload  string
		lastSync int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, last_sync FROM user_data WHERE user_id = ?`, userID,
	).Scan(&payload, &lastSync)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	var row snapshotRow
	if err := json.Unmarshal([]byte(payload), &row); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &domain.UserSnapshot{
		UserID:    row.UserID,
		Templates: row.Templates,
		Sessions:  row.Sessions,
		User:      row.User,
		LastSync:  time.UnixMilli(lastSync).UTC(),
	}, nil
}

// ClearSnapshot removes the user's cached snapshot. Used on sign-out.
func (s *Store) ClearSnapshot(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_data WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}

// EnqueuePendingChange appends a change to the replay queue and returns the
// assigned id. Assigned ids are monotonically increasing, which is the FIFO
// ordering replay relies on.
func (s *Store) EnqueuePendingChange(ctx context.Context, change domain.PendingChange) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_changes (user_id, change_type, op, record_id, payload, enqueued_at, retry_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, change.UserID, string(change.Kind), string(change.Op), change.RecordID,
		string(change.Payload), change.EnqueuedAt.UnixMilli(), change.RetryCount)
	if err != nil {
		return 0, fmt.Errorf("enqueue pending change: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("enqueue pending change id: %w", err)
	}
	return id, nil
}

// ListPendingChanges returns the user's queued changes, oldest first.
func (s *Store) ListPendingChanges(ctx context.Context, userID string) ([]domain.PendingChange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, change_type, op, record_id, payload, enqueued_at, retry_count
		FROM pending_changes
		WHERE user_id = ?
		ORDER BY id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list pending changes: %w", err)
	}
	defer rows.Close()

	var changes []domain.PendingChange
	for rows.Next() {
		var (
			change     domain.PendingChange
			kind, op   string
			payload    string
			enqueuedAt int64
		)
		if err := rows.Scan(&change.ID, &change.UserID, &kind, &op, &change.RecordID, &payload, &enqueuedAt, &change.RetryCount); err != nil {
			return nil, fmt.Errorf("scan pending change: %w", err)
		}
		change.Kind = domain.ChangeKind(kind)
		change.Op = domain.ChangeOp(op)
		change.Payload = []byte(payload)
		change.EnqueuedAt = time.UnixMilli(enqueuedAt).UTC()
		changes = append(changes, change)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending changes: %w", err)
	}
	return changes, nil
}

// RemovePendingChange deletes a queue entry after successful replay, or when
// the retry budget is exhausted.
func (s *Store) RemovePendingChange(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_changes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove pending change: %w", err)
	}
	return nil
}

// UpdatePendingRetry records a failed replay attempt.
func (s *Store) UpdatePendingRetry(ctx context.Context, id int64, retryCount int) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE pending_changes SET retry_count = ? WHERE id = ?`, retryCount, id); err != nil {
		return fmt.Errorf("update pending retry: %w", err)
	}
	return nil
}

// PendingCount reports the queue depth for the user.
func (s *Store) PendingCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_changes WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending changes: %w", err)
	}
	return count, nil
}
