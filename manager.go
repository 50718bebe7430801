package ctxbudget

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ctxforge/ctxbudget/checkpoint"
	"github.com/ctxforge/ctxbudget/compaction"
	"github.com/ctxforge/ctxbudget/hooks"
	"github.com/ctxforge/ctxbudget/scoring"
	"github.com/ctxforge/ctxbudget/types"
)

// historyLimit bounds the compaction outcome history kept in memory.
const historyLimit = 16

// Manager ties together a session, the compaction engine, the emergency
// guard, and an optional checkpoint store. It is the main entry point for
// this module.
type Manager struct {
	config  Config
	session *Session
	engine  *compaction.Engine
	guard   *Guard
	store   checkpoint.Store
	logger  Logger
	hooks   *hooks.Registry

	mu              sync.Mutex
	history         []*compaction.Outcome
	sinceCheckpoint int
}

// New creates a Manager. The zero Config is usable; defaults are applied
// before validation.
func New(config Config, opts ...Option) (*Manager, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var o managerOptions
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}

	if o.logger == nil {
		o.logger = noopLogger{}
	}
	if o.hooks == nil {
		o.hooks = hooks.NewRegistry()
	}

	scorer := scoring.New(o.scorerConfig)
	session := NewSession(o.sessionID, config.BudgetTokens, scorer, o.estimator)
	engine := compaction.NewEngine(o.summarizer, o.estimator, o.compactionConfig, o.logger)

	return &Manager{
		config:  config,
		session: session,
		engine:  engine,
		guard:   NewGuard(config),
		store:   o.store,
		logger:  o.logger,
		hooks:   o.hooks,
	}, nil
}

// SessionID returns the identifier of the managed session.
func (m *Manager) SessionID() uuid.UUID {
	return m.session.ID()
}

// Session exposes the underlying session for direct inspection.
func (m *Manager) Session() *Session {
	return m.session
}

// Track records a new content item and, when a checkpoint store is
// configured, saves a checkpoint every AutoCheckpointEvery items. A failed
// automatic checkpoint is logged but does not fail the track.
func (m *Manager) Track(ctx context.Context, content, role, contentType string, metadata map[string]any) (*types.ContentItem, error) {
	item, err := m.session.Track(content, role, contentType, metadata)
	if err != nil {
		return nil, err
	}

	if err := m.hooks.TriggerTrack(ctx, m.session.ID(), item); err != nil {
		m.logger.Warn("track hook failed",
			"session_id", m.session.ID(),
			"error", err,
		)
	}

	if m.store != nil && m.config.AutoCheckpointEvery > 0 {
		m.mu.Lock()
		m.sinceCheckpoint++
		due := m.sinceCheckpoint >= m.config.AutoCheckpointEvery
		if due {
			m.sinceCheckpoint = 0
		}
		m.mu.Unlock()

		if due {
			if _, err := m.Checkpoint(ctx); err != nil {
				m.logger.Warn("automatic checkpoint failed",
					"session_id", m.session.ID(),
					"error", err,
				)
			}
		}
	}

	return item, nil
}

// Usage returns the current usage metrics.
func (m *Manager) Usage() UsageMetrics {
	return m.session.Usage()
}

// Classify returns the health bucket for the current usage.
func (m *Manager) Classify() Health {
	return m.session.Classify()
}

// ShouldCompact reports whether a compaction pass is warranted right now,
// with the reason either way. Usage below the elevated threshold never
// warrants one, and neither does a working set without enough compactable
// content to make a pass worthwhile.
func (m *Manager) ShouldCompact() (bool, string) {
	health := m.session.Classify()
	if !health.AtLeast(HealthElevated) {
		return false, "below threshold"
	}
	partition := m.engine.Partition(m.session.Items())
	if !partition.CanCompact(m.engine.Config()) {
		return false, "insufficient compactable content"
	}
	return true, string(health)
}

// Compact runs one compaction pass. When ShouldCompact is false the pass
// is recorded as skipped and the working set is untouched, so calling
// Compact repeatedly is safe.
//
// After an applied pass the emergency guard inspects the result; if it
// fires, the outcome is still returned together with an error wrapping
// ErrEmergencyStop. An error wrapping compaction.ErrIneffective likewise
// comes with a valid, applied outcome.
func (m *Manager) Compact(ctx context.Context) (*compaction.Outcome, error) {
	if ok, reason := m.ShouldCompact(); !ok {
		usage := m.session.Usage()
		outcome := &compaction.Outcome{
			Strategy:      compaction.StrategySkipped,
			Reason:        reason,
			BeforeTokens:  usage.TotalTokens,
			AfterTokens:   usage.TotalTokens,
			RetainedItems: m.session.Items(),
		}
		m.record(outcome)
		return outcome, nil
	}

	if err := m.hooks.TriggerBeforeCompaction(ctx, m.session.ID()); err != nil {
		return nil, NewSessionError("Compact", err).WithSession(m.session.ID())
	}

	outcome, err := m.engine.Compact(ctx, m.session.Items())
	if err != nil && outcome == nil {
		return nil, NewSessionError("Compact", err).WithSession(m.session.ID())
	}

	m.session.Apply(outcome)
	m.record(outcome)

	if hookErr := m.hooks.TriggerAfterCompaction(ctx, m.session.ID(), outcome); hookErr != nil {
		m.logger.Warn("after-compaction hook failed",
			"session_id", m.session.ID(),
			"error", hookErr,
		)
	}

	if halt, reason := m.guard.Check(m.session.Usage(), m.recent()); halt {
		m.logger.Error("emergency stop",
			"session_id", m.session.ID(),
			"reason", reason,
		)
		if hookErr := m.hooks.TriggerEmergencyStop(ctx, m.session.ID(), reason); hookErr != nil {
			m.logger.Warn("emergency-stop hook failed",
				"session_id", m.session.ID(),
				"error", hookErr,
			)
		}
		return outcome, NewSessionError("Compact", fmt.Errorf("%w: %s", ErrEmergencyStop, reason)).
			WithSession(m.session.ID())
	}

	if err != nil {
		return outcome, NewSessionError("Compact", err).WithSession(m.session.ID())
	}
	return outcome, nil
}

// CompactIfNeeded compacts only when ShouldCompact says so. It returns a
// nil outcome when no pass was warranted.
func (m *Manager) CompactIfNeeded(ctx context.Context) (*compaction.Outcome, error) {
	if ok, _ := m.ShouldCompact(); !ok {
		return nil, nil
	}
	return m.Compact(ctx)
}

// CheckGuard runs the emergency guard against the current usage and
// compaction history without compacting.
func (m *Manager) CheckGuard() (bool, string) {
	return m.guard.Check(m.session.Usage(), m.recent())
}

// History returns the recorded compaction outcomes, oldest first.
func (m *Manager) History() []*compaction.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*compaction.Outcome, len(m.history))
	copy(out, m.history)
	return out
}

// Checkpoint saves the current session state to the configured store and
// returns the snapshot that was written.
func (m *Manager) Checkpoint(ctx context.Context) (*checkpoint.Snapshot, error) {
	if m.store == nil {
		return nil, NewSessionError("Checkpoint", ErrNoCheckpointStore).WithSession(m.session.ID())
	}

	snap := m.session.Snapshot()
	if err := m.store.Save(ctx, snap); err != nil {
		return nil, NewSessionError("Checkpoint", err).WithSession(m.session.ID())
	}

	m.logger.Debug("checkpoint saved",
		"session_id", snap.SessionID,
		"items", len(snap.Items),
	)
	if err := m.hooks.TriggerCheckpoint(ctx, snap); err != nil {
		m.logger.Warn("checkpoint hook failed",
			"session_id", snap.SessionID,
			"error", err,
		)
	}
	return snap, nil
}

// Resume loads the session's checkpoint from the store and replaces the
// in-memory state with it. A missing checkpoint is not an error: Resume
// returns (nil, nil) and the session starts fresh. A corrupted checkpoint
// is surfaced as a *checkpoint.CorruptedError and the in-memory state is
// left untouched; the stored file is never deleted automatically.
func (m *Manager) Resume(ctx context.Context) (*checkpoint.Snapshot, error) {
	if m.store == nil {
		return nil, NewSessionError("Resume", ErrNoCheckpointStore).WithSession(m.session.ID())
	}

	snap, err := m.store.Load(ctx, m.session.ID())
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			return nil, nil
		}
		return nil, NewSessionError("Resume", err).WithSession(m.session.ID())
	}

	if err := m.session.Restore(snap); err != nil {
		return nil, err
	}

	m.logger.Info("session resumed from checkpoint",
		"session_id", snap.SessionID,
		"items", len(snap.Items),
		"compaction_count", snap.CompactionCount,
	)
	return snap, nil
}

// record appends an outcome to the bounded history ring.
func (m *Manager) record(outcome *compaction.Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, outcome)
	if len(m.history) > historyLimit {
		m.history = m.history[len(m.history)-historyLimit:]
	}
}

// recent returns the history slice for guard inspection.
func (m *Manager) recent() []*compaction.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history
}
