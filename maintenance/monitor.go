// Package maintenance provides a background service that keeps a session's
// context budget under control: it periodically checks usage, compacts when
// warranted, and saves checkpoints.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ctxforge/ctxbudget"
	"github.com/ctxforge/ctxbudget/checkpoint"
	"github.com/ctxforge/ctxbudget/compaction"
)

// Default monitor configuration values
const (
	DefaultMonitorInterval = 30 * time.Second
)

// MonitorConfig holds configuration for the monitor service.
type MonitorConfig struct {
	// Interval is how often to run a maintenance pass.
	// Default: 30 seconds
	Interval time.Duration

	// CheckpointEachPass also saves a checkpoint on every pass when the
	// manager has a checkpoint store configured.
	CheckpointEachPass bool

	// OnCompaction is called after each applied compaction pass.
	OnCompaction func(outcome *compaction.Outcome)

	// OnCheckpoint is called after each saved checkpoint.
	OnCheckpoint func(snap *checkpoint.Snapshot)

	// OnEmergencyStop is called when the guard halts the session. The
	// monitor stops its loop afterwards; the session needs intervention.
	OnEmergencyStop func(reason string)

	// OnError is called when a maintenance operation fails.
	OnError func(err error)
}

// DefaultMonitorConfig returns the default monitor configuration.
func DefaultMonitorConfig() *MonitorConfig {
	return &MonitorConfig{
		Interval: DefaultMonitorInterval,
	}
}

// MonitorResult holds the results of one maintenance pass.
type MonitorResult struct {
	// Outcome is the compaction outcome, nil when no pass was warranted.
	Outcome *compaction.Outcome

	// Snapshot is the checkpoint saved during the pass, if any.
	Snapshot *checkpoint.Snapshot

	// Halted is set when the emergency guard fired during the pass.
	Halted bool

	// Errors contains any errors that occurred during the pass.
	Errors []error
}

// Monitor periodically compacts and checkpoints a managed session.
type Monitor struct {
	manager *ctxbudget.Manager
	config  *MonitorConfig

	started atomic.Bool
	done    chan struct{}
	cancel  context.CancelFunc
}

// NewMonitor creates a new monitor service for the given manager.
func NewMonitor(manager *ctxbudget.Manager, config *MonitorConfig) *Monitor {
	if config == nil {
		config = DefaultMonitorConfig()
	}
	if config.Interval <= 0 {
		config.Interval = DefaultMonitorInterval
	}

	return &Monitor{
		manager: manager,
		config:  config,
		done:    make(chan struct{}),
	}
}

// Start begins the maintenance loop.
// It returns immediately and runs passes in a goroutine.
func (m *Monitor) Start(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	ctx, m.cancel = context.WithCancel(ctx)
	go m.run(ctx)

	return nil
}

// Stop stops the maintenance loop.
func (m *Monitor) Stop(ctx context.Context) error {
	if !m.started.Load() {
		return ErrNotStarted
	}

	m.cancel()
	<-m.done

	m.started.Store(false)
	return nil
}

// run is the main maintenance loop.
func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	if m.runPass(ctx) {
		return
	}

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.runPass(ctx) {
				return
			}
		}
	}
}

// runPass performs one pass and reports whether the loop should stop.
func (m *Monitor) runPass(ctx context.Context) bool {
	result := m.RunOnce(ctx)

	if m.config.OnCompaction != nil && result.Outcome != nil {
		m.config.OnCompaction(result.Outcome)
	}

	if m.config.OnCheckpoint != nil && result.Snapshot != nil {
		m.config.OnCheckpoint(result.Snapshot)
	}

	if m.config.OnError != nil {
		for _, err := range result.Errors {
			m.config.OnError(err)
		}
	}

	if result.Halted {
		if m.config.OnEmergencyStop != nil {
			_, reason := m.manager.CheckGuard()
			m.config.OnEmergencyStop(reason)
		}
		return true
	}

	return false
}

// RunOnce performs one maintenance pass and returns the result.
// This can be called manually for testing or one-off maintenance.
func (m *Monitor) RunOnce(ctx context.Context) *MonitorResult {
	result := &MonitorResult{}

	outcome, err := m.manager.CompactIfNeeded(ctx)
	result.Outcome = outcome
	if err != nil {
		if errors.Is(err, ctxbudget.ErrEmergencyStop) {
			result.Halted = true
		}
		result.Errors = append(result.Errors, err)
	}

	// A session can sit above the ceiling without any compaction being
	// warranted, for example when the whole budget lives in the recent
	// window. The guard still has the final word on every pass.
	if !result.Halted {
		if halt, reason := m.manager.CheckGuard(); halt {
			result.Halted = true
			result.Errors = append(result.Errors, fmt.Errorf("%w: %s", ctxbudget.ErrEmergencyStop, reason))
		}
	}

	if m.config.CheckpointEachPass {
		snap, err := m.manager.Checkpoint(ctx)
		if err != nil {
			// No store configured means checkpointing is simply off.
			if !errors.Is(err, ctxbudget.ErrNoCheckpointStore) {
				result.Errors = append(result.Errors, err)
			}
		} else {
			result.Snapshot = snap
		}
	}

	return result
}

// IsRunning returns true if the monitor service is running.
func (m *Monitor) IsRunning() bool {
	return m.started.Load()
}
