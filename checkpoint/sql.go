package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ctxforge/ctxbudget/types"
)

// SQLStore is the database/sql variant of PostgresStore for callers using
// lib/pq or another database/sql Postgres driver. It shares the
// ctxbudget_snapshots table and its semantics.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates an SQLStore backed by the given database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// EnsureSchema creates the snapshot table if it does not exist.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create snapshot table: %w", err)
	}
	return nil
}

// Save upserts the session's snapshot row.
func (s *SQLStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := validateSnapshot(snap); err != nil {
		return err
	}

	itemsJSON, err := json.Marshal(snap.Items)
	if err != nil {
		return fmt.Errorf("marshal snapshot items: %w", err)
	}

	createdAt := snap.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO ctxbudget_snapshots (session_id, version, compaction_count, items, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id) DO UPDATE SET
			version = EXCLUDED.version,
			compaction_count = EXCLUDED.compaction_count,
			items = EXCLUDED.items,
			created_at = EXCLUDED.created_at
	`

	if _, err := s.db.ExecContext(ctx, query, snap.SessionID, snap.Version, snap.CompactionCount, itemsJSON, createdAt); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	return nil
}

// Load reads the session's snapshot row.
func (s *SQLStore) Load(ctx context.Context, sessionID uuid.UUID) (*Snapshot, error) {
	query := `
		SELECT session_id, version, compaction_count, items, created_at
		FROM ctxbudget_snapshots
		WHERE session_id = $1
	`

	var (
		snap      Snapshot
		itemsJSON []byte
	)
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(
		&snap.SessionID,
		&snap.Version,
		&snap.CompactionCount,
		&itemsJSON,
		&snap.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var items []*types.ContentItem
	if err := json.Unmarshal(itemsJSON, &items); err != nil {
		return nil, &CorruptedError{SessionID: sessionID, Source: "ctxbudget_snapshots", Err: err}
	}
	snap.Items = items

	return &snap, nil
}
