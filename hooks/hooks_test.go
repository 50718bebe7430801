package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/ctxforge/ctxbudget/checkpoint"
	"github.com/ctxforge/ctxbudget/compaction"
	"github.com/ctxforge/ctxbudget/types"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry returned nil")
	}
}

func TestRegistryTriggerOrder(t *testing.T) {
	r := NewRegistry()
	sessionID := uuid.New()

	var order []int
	r.OnTrack(func(ctx context.Context, id uuid.UUID, item *types.ContentItem) error {
		order = append(order, 1)
		return nil
	})
	r.OnTrack(func(ctx context.Context, id uuid.UUID, item *types.ContentItem) error {
		order = append(order, 2)
		return nil
	})

	item := &types.ContentItem{Content: "entry", Type: types.ContentTypeGeneral}
	if err := r.TriggerTrack(context.Background(), sessionID, item); err != nil {
		t.Fatalf("TriggerTrack() error: %v", err)
	}

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("hooks ran in order %v, want [1 2]", order)
	}
}

func TestRegistryHookErrorStopsChain(t *testing.T) {
	r := NewRegistry()
	hookErr := errors.New("hook failed")
	called := false

	r.OnBeforeCompaction(func(ctx context.Context, id uuid.UUID) error {
		return hookErr
	})
	r.OnBeforeCompaction(func(ctx context.Context, id uuid.UUID) error {
		called = true
		return nil
	})

	err := r.TriggerBeforeCompaction(context.Background(), uuid.New())
	if !errors.Is(err, hookErr) {
		t.Fatalf("TriggerBeforeCompaction() = %v, want hookErr", err)
	}
	if called {
		t.Error("second hook ran after the first failed")
	}
}

func TestRegistryReceivesPayloads(t *testing.T) {
	r := NewRegistry()
	sessionID := uuid.New()

	var gotOutcome *compaction.Outcome
	r.OnAfterCompaction(func(ctx context.Context, id uuid.UUID, outcome *compaction.Outcome) error {
		if id != sessionID {
			t.Errorf("session ID = %v, want %v", id, sessionID)
		}
		gotOutcome = outcome
		return nil
	})

	var gotSnap *checkpoint.Snapshot
	r.OnCheckpoint(func(ctx context.Context, snap *checkpoint.Snapshot) error {
		gotSnap = snap
		return nil
	})

	var gotReason string
	r.OnEmergencyStop(func(ctx context.Context, id uuid.UUID, reason string) error {
		gotReason = reason
		return nil
	})

	outcome := &compaction.Outcome{Strategy: compaction.StrategyBasic, BeforeTokens: 100, AfterTokens: 60}
	if err := r.TriggerAfterCompaction(context.Background(), sessionID, outcome); err != nil {
		t.Fatalf("TriggerAfterCompaction() error: %v", err)
	}
	if gotOutcome != outcome {
		t.Error("after-compaction hook did not receive the outcome")
	}

	snap := &checkpoint.Snapshot{Version: checkpoint.SnapshotVersion, SessionID: sessionID}
	if err := r.TriggerCheckpoint(context.Background(), snap); err != nil {
		t.Fatalf("TriggerCheckpoint() error: %v", err)
	}
	if gotSnap != snap {
		t.Error("checkpoint hook did not receive the snapshot")
	}

	if err := r.TriggerEmergencyStop(context.Background(), sessionID, "context ceiling"); err != nil {
		t.Fatalf("TriggerEmergencyStop() error: %v", err)
	}
	if gotReason != "context ceiling" {
		t.Errorf("reason = %q, want %q", gotReason, "context ceiling")
	}
}

func TestRegistryEmptyTriggers(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	if err := r.TriggerTrack(ctx, uuid.New(), nil); err != nil {
		t.Errorf("TriggerTrack() = %v with no hooks", err)
	}
	if err := r.TriggerAfterCompaction(ctx, uuid.New(), nil); err != nil {
		t.Errorf("TriggerAfterCompaction() = %v with no hooks", err)
	}
	if err := r.TriggerCheckpoint(ctx, nil); err != nil {
		t.Errorf("TriggerCheckpoint() = %v with no hooks", err)
	}
}
