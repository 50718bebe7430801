package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ctxforge/ctxbudget/types"
)

// Schema is the DDL for the snapshot table. Run it once at deploy time or
// call PostgresStore.EnsureSchema.
const Schema = `
CREATE TABLE IF NOT EXISTS ctxbudget_snapshots (
	session_id       UUID PRIMARY KEY,
	version          TEXT NOT NULL,
	compaction_count INTEGER NOT NULL DEFAULT 0,
	items            JSONB NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
)
`

// PostgresStore persists snapshots in a Postgres table, one row per
// session. Save upserts, so each new snapshot supersedes the previous one.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the snapshot table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create snapshot table: %w", err)
	}
	return nil
}

// Save upserts the session's snapshot row. The row replacement is atomic
// at the database level, so readers never observe a partial snapshot.
func (s *PostgresStore) Save(ctx context.Context, snap *Snapshot) error {
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

	if _, err := s.pool.Exec(ctx, query, snap.SessionID, snap.Version, snap.CompactionCount, itemsJSON, createdAt); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	return nil
}

// Load reads the session's snapshot row. A missing row maps to
// ErrNotFound; an item payload that fails to parse maps to
// *CorruptedError and the row is left in place.
func (s *PostgresStore) Load(ctx context.Context, sessionID uuid.UUID) (*Snapshot, error) {
	query := `
		SELECT session_id, version, compaction_count, items, created_at
		FROM ctxbudget_snapshots
		WHERE session_id = $1
	`

	var (
		snap      Snapshot
		itemsJSON []byte
	)
	err := s.pool.QueryRow(ctx, query, sessionID).Scan(
		&snap.SessionID,
		&snap.Version,
		&snap.CompactionCount,
		&itemsJSON,
		&snap.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
