// Package hooks provides lifecycle hooks for observing a session's budget
// activity: tracked items, compaction passes, checkpoints, and emergency
// stops.
package hooks

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ctxforge/ctxbudget/checkpoint"
	"github.com/ctxforge/ctxbudget/compaction"
	"github.com/ctxforge/ctxbudget/types"
)

// TrackHook is called after a content item is tracked
type TrackHook func(ctx context.Context, sessionID uuid.UUID, item *types.ContentItem) error

// BeforeCompactionHook is called before a compaction pass runs
type BeforeCompactionHook func(ctx context.Context, sessionID uuid.UUID) error

// AfterCompactionHook is called after a compaction pass, including skipped
// passes
type AfterCompactionHook func(ctx context.Context, sessionID uuid.UUID, outcome *compaction.Outcome) error

// CheckpointHook is called after a checkpoint is saved
type CheckpointHook func(ctx context.Context, snap *checkpoint.Snapshot) error

// EmergencyStopHook is called when the emergency guard halts a session
type EmergencyStopHook func(ctx context.Context, sessionID uuid.UUID, reason string) error

// Registry holds all registered hooks
type Registry struct {
	mu               sync.RWMutex
	track            []TrackHook
	beforeCompaction []BeforeCompactionHook
	afterCompaction  []AfterCompactionHook
	checkpoint       []CheckpointHook
	emergencyStop    []EmergencyStopHook
}

// NewRegistry creates a new hook registry
func NewRegistry() *Registry {
	return &Registry{
		track:            []TrackHook{},
		beforeCompaction: []BeforeCompactionHook{},
		afterCompaction:  []AfterCompactionHook{},
		checkpoint:       []CheckpointHook{},
		emergencyStop:    []EmergencyStopHook{},
	}
}

// OnTrack registers a hook to be called after each tracked item
func (r *Registry) OnTrack(hook TrackHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.track = append(r.track, hook)
}

// OnBeforeCompaction registers a hook to be called before compaction
func (r *Registry) OnBeforeCompaction(hook BeforeCompactionHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beforeCompaction = append(r.beforeCompaction, hook)
}

// OnAfterCompaction registers a hook to be called after compaction
func (r *Registry) OnAfterCompaction(hook AfterCompactionHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.afterCompaction = append(r.afterCompaction, hook)
}

// OnCheckpoint registers a hook to be called after each saved checkpoint
func (r *Registry) OnCheckpoint(hook CheckpointHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkpoint = append(r.checkpoint, hook)
}

// OnEmergencyStop registers a hook to be called when the guard halts the
// session
func (r *Registry) OnEmergencyStop(hook EmergencyStopHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emergencyStop = append(r.emergencyStop, hook)
}

// TriggerTrack calls all registered track hooks
func (r *Registry) TriggerTrack(ctx context.Context, sessionID uuid.UUID, item *types.ContentItem) error {
	r.mu.RLock()
	hooks := make([]TrackHook, len(r.track))
	copy(hooks, r.track)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, sessionID, item); err != nil {
			return err
		}
	}
	return nil
}

// TriggerBeforeCompaction calls all registered before-compaction hooks
func (r *Registry) TriggerBeforeCompaction(ctx context.Context, sessionID uuid.UUID) error {
	r.mu.RLock()
	hooks := make([]BeforeCompactionHook, len(r.beforeCompaction))
	copy(hooks, r.beforeCompaction)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, sessionID); err != nil {
			return err
		}
	}
	return nil
}

// TriggerAfterCompaction calls all registered after-compaction hooks
func (r *Registry) TriggerAfterCompaction(ctx context.Context, sessionID uuid.UUID, outcome *compaction.Outcome) error {
	r.mu.RLock()
	hooks := make([]AfterCompactionHook, len(r.afterCompaction))
	copy(hooks, r.afterCompaction)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, sessionID, outcome); err != nil {
			return err
		}
	}
	return nil
}

// TriggerCheckpoint calls all registered checkpoint hooks
func (r *Registry) TriggerCheckpoint(ctx context.Context, snap *checkpoint.Snapshot) error {
	r.mu.RLock()
	hooks := make([]CheckpointHook, len(r.checkpoint))
	copy(hooks, r.checkpoint)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, snap); err != nil {
			return err
		}
	}
	return nil
}

// TriggerEmergencyStop calls all registered emergency-stop hooks
func (r *Registry) TriggerEmergencyStop(ctx context.Context, sessionID uuid.UUID, reason string) error {
	r.mu.RLock()
	hooks := make([]EmergencyStopHook, len(r.emergencyStop))
	copy(hooks, r.emergencyStop)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, sessionID, reason); err != nil {
			return err
		}
	}
	return nil
}
