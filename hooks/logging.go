package hooks

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/ctxforge/ctxbudget/checkpoint"
	"github.com/ctxforge/ctxbudget/compaction"
	"github.com/ctxforge/ctxbudget/types"
)

// LoggingHooks provides built-in logging hooks for observability
type LoggingHooks struct {
	logger *log.Logger
}

// NewLoggingHooks creates logging hooks with the provided logger
func NewLoggingHooks(logger *log.Logger) *LoggingHooks {
	return &LoggingHooks{logger: logger}
}

// DefaultLoggingHooks creates logging hooks with the default logger
func DefaultLoggingHooks() *LoggingHooks {
	return &LoggingHooks{logger: log.Default()}
}

// Register attaches all logging hooks to the registry
func (h *LoggingHooks) Register(r *Registry) {
	r.OnTrack(h.Track)
	r.OnBeforeCompaction(h.BeforeCompaction)
	r.OnAfterCompaction(h.AfterCompaction)
	r.OnCheckpoint(h.Checkpoint)
	r.OnEmergencyStop(h.EmergencyStop)
}

// Track logs each tracked item
func (h *LoggingHooks) Track(ctx context.Context, sessionID uuid.UUID, item *types.ContentItem) error {
	h.logger.Printf("[ctxbudget] Tracked %s item (%d tokens, score %.2f) in session %s",
		item.Type, item.TokenEstimate, item.ImportanceScore, sessionID)
	return nil
}

// BeforeCompaction logs the start of a compaction pass
func (h *LoggingHooks) BeforeCompaction(ctx context.Context, sessionID uuid.UUID) error {
	h.logger.Printf("[ctxbudget] Starting compaction for session %s", sessionID)
	return nil
}

// AfterCompaction logs the result of a compaction pass
func (h *LoggingHooks) AfterCompaction(ctx context.Context, sessionID uuid.UUID, outcome *compaction.Outcome) error {
	if outcome.Strategy == compaction.StrategySkipped {
		h.logger.Printf("[ctxbudget] Compaction skipped for session %s: %s", sessionID, outcome.Reason)
		return nil
	}
	h.logger.Printf("[ctxbudget] Compaction complete for session %s: %d -> %d tokens (%.1f%% reduction, strategy: %s)",
		sessionID, outcome.BeforeTokens, outcome.AfterTokens, outcome.ReductionPct*100, outcome.Strategy)
	return nil
}

// Checkpoint logs each saved checkpoint
func (h *LoggingHooks) Checkpoint(ctx context.Context, snap *checkpoint.Snapshot) error {
	h.logger.Printf("[ctxbudget] Checkpoint saved for session %s (%d items)", snap.SessionID, len(snap.Items))
	return nil
}

// EmergencyStop logs guard halts
func (h *LoggingHooks) EmergencyStop(ctx context.Context, sessionID uuid.UUID, reason string) error {
	h.logger.Printf("[ctxbudget] EMERGENCY STOP for session %s: %s", sessionID, reason)
	return nil
}

// MetricsHooks collects metrics for monitoring
type MetricsHooks struct {
	OnMetric func(name string, value float64, tags map[string]string)
}

// NewMetricsHooks creates metrics collection hooks
func NewMetricsHooks(onMetric func(string, float64, map[string]string)) *MetricsHooks {
	return &MetricsHooks{OnMetric: onMetric}
}

// Register attaches all metrics hooks to the registry
func (h *MetricsHooks) Register(r *Registry) {
	r.OnTrack(h.Track)
	r.OnAfterCompaction(h.AfterCompaction)
	r.OnEmergencyStop(h.EmergencyStop)
}

// Track records per-item metrics
func (h *MetricsHooks) Track(ctx context.Context, sessionID uuid.UUID, item *types.ContentItem) error {
	tags := map[string]string{"content_type": string(item.Type)}
	h.OnMetric("ctxbudget.item.tokens", float64(item.TokenEstimate), tags)
	h.OnMetric("ctxbudget.item.importance", item.ImportanceScore, tags)
	return nil
}

// AfterCompaction records compaction metrics
func (h *MetricsHooks) AfterCompaction(ctx context.Context, sessionID uuid.UUID, outcome *compaction.Outcome) error {
	tags := map[string]string{"strategy": string(outcome.Strategy)}

	h.OnMetric("ctxbudget.compaction.before_tokens", float64(outcome.BeforeTokens), tags)
	h.OnMetric("ctxbudget.compaction.after_tokens", float64(outcome.AfterTokens), tags)
	h.OnMetric("ctxbudget.compaction.reduction_pct", outcome.ReductionPct*100, tags)
	return nil
}

// EmergencyStop records guard halts
func (h *MetricsHooks) EmergencyStop(ctx context.Context, sessionID uuid.UUID, reason string) error {
	h.OnMetric("ctxbudget.emergency_stop", 1, map[string]string{"reason": reason})
	return nil
}
