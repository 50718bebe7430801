// Package checkpoint persists session snapshots for crash recovery and
// multi-run resumption.
//
// A snapshot is one JSON document per session carrying the full ordered
// content item list plus monitor state. Each new snapshot supersedes the
// previous one: at most one live snapshot per session is authoritative.
//
// Three stores are provided:
//
//   - FileStore: one file per session, written atomically (temp file +
//     rename) so a partially-written snapshot is never visible.
//   - PostgresStore: a pgx-backed snapshot table with upsert-per-session
//     semantics.
//   - SQLStore: the same table over database/sql for callers on lib/pq or
//     another database/sql driver.
//
// A snapshot that exists but fails to parse is reported as a
// *CorruptedError, never silently treated as "no snapshot": the caller
// decides whether to start fresh or abort, and the corrupted source is
// never auto-deleted.
package checkpoint

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ctxforge/ctxbudget/types"
)

// SnapshotVersion is the current snapshot format version.
const SnapshotVersion = "1"

// Snapshot is a durable capture of session state.
//
// Field order and presence are stable. Unknown future fields are ignored
// on read, not rejected.
type Snapshot struct {
	Version         string               `json:"version"`
	SessionID       uuid.UUID            `json:"session_id"`
	CreatedAt       time.Time            `json:"created_at"`
	CompactionCount int                  `json:"compaction_count"`
	Items           []*types.ContentItem `json:"items"`
}

// Store persists and restores session snapshots.
type Store interface {
	// Save durably writes the snapshot, superseding any previous snapshot
	// for the same session. The write is atomic: a reader never observes a
	// partially-written snapshot.
	Save(ctx context.Context, snap *Snapshot) error

	// Load returns the live snapshot for the session. It returns
	// ErrNotFound when no snapshot exists and a *CorruptedError when a
	// snapshot exists but cannot be parsed.
	Load(ctx context.Context, sessionID uuid.UUID) (*Snapshot, error)
}
