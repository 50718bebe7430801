package compaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ctxforge/ctxbudget/tokens"
	"github.com/ctxforge/ctxbudget/types"
)

// Logger interface for compaction logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a no-op implementation of Logger.
type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...any) {}
func (noopLogger) Info(msg string, args ...any)  {}
func (noopLogger) Warn(msg string, args ...any)  {}
func (noopLogger) Error(msg string, args ...any) {}

// Strategy identifies how a compaction pass reduced the working set.
type Strategy string

const (
	// StrategySmart summarizes compactable items via the Summarizer.
	StrategySmart Strategy = "smart"

	// StrategyBasic drops the oldest half of the compactable items
	// outright. Used as the fallback when the smart path fails.
	StrategyBasic Strategy = "basic"

	// StrategySkipped means the pass did not run; the working set is
	// unchanged.
	StrategySkipped Strategy = "skipped"
)

// SummaryImportance is the importance score assigned to synthetic summary
// items, matching the summary content type's base score.
const SummaryImportance = 0.95

// Outcome is the full accounting of one compaction pass.
type Outcome struct {
	// Strategy is the strategy that produced this outcome.
	Strategy Strategy

	// Reason explains a skip or a fallback.
	Reason string

	// BeforeTokens is the working set's token total before the pass.
	BeforeTokens int

	// AfterTokens is the token total of the new working set.
	AfterTokens int

	// ReductionPct is (BeforeTokens - AfterTokens) / BeforeTokens.
	ReductionPct float64

	// RetainedItems is the ordered sequence of items kept verbatim.
	RetainedItems []*types.ContentItem

	// SummaryItem is the synthetic summary replacing the compacted items.
	// Nil for skipped and basic outcomes.
	SummaryItem *types.ContentItem

	// Ineffective is set when even the basic fallback failed to reach the
	// minimum reduction. The emergency guard counts such outcomes toward
	// its trend detection.
	Ineffective bool

	// Duration is how long the pass took.
	Duration time.Duration
}

// WorkingSet returns the new working set: the summary item (when present)
// followed by the retained items in order.
func (o *Outcome) WorkingSet() []*types.ContentItem {
	if o.SummaryItem == nil {
		return o.RetainedItems
	}
	set := make([]*types.ContentItem, 0, len(o.RetainedItems)+1)
	set = append(set, o.SummaryItem)
	set = append(set, o.RetainedItems...)
	return set
}

// DeltaTokens returns the token reduction achieved by the pass.
func (o *Outcome) DeltaTokens() int {
	return o.BeforeTokens - o.AfterTokens
}

// errSmartBelowThreshold marks a smart pass that ran but did not shrink
// the set enough. Internal; converted into a basic fallback.
var errSmartBelowThreshold = errors.New("smart reduction below threshold")

// Engine runs compaction passes over a session's working set. It never
// mutates the input items: the outcome carries a new sequence for the
// caller to swap in.
type Engine struct {
	config      *Config
	summarizer  Summarizer
	estimator   tokens.Estimator
	partitioner *Partitioner
	logger      Logger
}

// NewEngine creates an Engine. A nil config uses defaults, a nil estimator
// uses the character heuristic, and a nil logger disables logging. The
// summarizer may be nil, in which case every pass uses the basic strategy.
func NewEngine(summarizer Summarizer, estimator tokens.Estimator, config *Config, logger Logger) *Engine {
	if config == nil {
		config = DefaultConfig()
	} else {
		config.ApplyDefaults()
	}

	if estimator == nil {
		estimator = tokens.Heuristic{}
	}

	if logger == nil {
		logger = noopLogger{}
	}

	return &Engine{
		config:      config,
		summarizer:  summarizer,
		estimator:   estimator,
		partitioner: NewPartitioner(config),
		logger:      logger,
	}
}

// Config returns the engine's configuration.
func (e *Engine) Config() *Config {
	return e.config
}

// Partition categorizes items without running a pass. Used by callers to
// check whether enough compactable content exists.
func (e *Engine) Partition(items []*types.ContentItem) *Partition {
	return e.partitioner.Partition(items)
}

// Compact runs one compaction pass over items.
//
// The smart path summarizes the compactable items and validates both the
// summary content and the resulting size delta; a pass that "succeeds" but
// fails either check falls back to the basic strategy. When even the basic
// strategy cannot reach the minimum reduction, the outcome is returned
// flagged ineffective together with an error wrapping ErrIneffective: a
// warning-level condition, not a failure of the pass itself.
func (e *Engine) Compact(ctx context.Context, items []*types.ContentItem) (*Outcome, error) {
	start := time.Now()

	partition := e.partitioner.Partition(items)
	before := partition.Stats.TotalTokens

	if !partition.CanCompact(e.config) {
		e.logger.Debug("compaction skipped",
			"compactable_items", len(partition.Compactable),
			"compactable_tokens", partition.Stats.CompactableTokens,
		)
		return &Outcome{
			Strategy:      StrategySkipped,
			Reason:        "insufficient compactable content",
			BeforeTokens:  before,
			AfterTokens:   before,
			RetainedItems: items,
			Duration:      time.Since(start),
		}, nil
	}

	outcome, err := e.compactSmart(ctx, partition, before)
	if err != nil {
		reason := fallbackReason(err)
		e.logger.Warn("smart compaction unusable, falling back to basic",
			"reason", reason,
			"error", err,
		)
		outcome, err = e.compactBasic(items, partition, before, reason)
	}

	outcome.Duration = time.Since(start)

	e.logger.Info("compaction complete",
		"strategy", outcome.Strategy,
		"before_tokens", outcome.BeforeTokens,
		"after_tokens", outcome.AfterTokens,
		"reduction_pct", outcome.ReductionPct,
		"retained_items", len(outcome.RetainedItems),
		"ineffective", outcome.Ineffective,
	)

	return outcome, err
}

// compactSmart summarizes the compactable items. Any failure (transport,
// timeout, rejected summary, or insufficient reduction) is returned as an
// error for the caller to convert into a basic fallback.
func (e *Engine) compactSmart(ctx context.Context, partition *Partition, before int) (*Outcome, error) {
	if e.summarizer == nil {
		return nil, fmt.Errorf("%w: no summarizer configured", ErrSummarizationFailed)
	}

	sctx, cancel := context.WithTimeout(ctx, e.config.SummarizerTimeout)
	defer cancel()

	rendered := RenderItems(partition.Compactable)
	summary, err := e.summarizer.Summarize(sctx, rendered)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(sctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrSummarizerTimeout, err)
		}
		return nil, err
	}

	if err := ValidateSummary(summary.Text, e.config); err != nil {
		return nil, err
	}

	estimate := summary.TokenEstimate
	if estimate <= 0 {
		estimate = e.estimator.Estimate(summary.Text)
	}

	compactable := partition.Compactable
	summaryItem := &types.ContentItem{
		Content:         summary.Text,
		Role:            types.RoleAssistant,
		Type:            types.ContentTypeSummary,
		ImportanceScore: SummaryImportance,
		TokenEstimate:   estimate,
		// Carry the timestamp of the newest item the summary replaces so
		// the working set stays timestamp-ordered.
		Timestamp: compactable[len(compactable)-1].Timestamp,
	}

	retained := partition.Retained()
	after := types.SumTokens(retained) + estimate
	reduction := reductionPct(before, after)

	if reduction < e.config.MinReductionPct {
		return nil, fmt.Errorf("%w: %.1f%% < %.1f%%",
			errSmartBelowThreshold, reduction*100, e.config.MinReductionPct*100)
	}

	return &Outcome{
		Strategy:      StrategySmart,
		BeforeTokens:  before,
		AfterTokens:   after,
		ReductionPct:  reduction,
		RetainedItems: retained,
		SummaryItem:   summaryItem,
	}, nil
}

// compactBasic drops the oldest half of the compactable items outright,
// keeping everything else verbatim and in order.
func (e *Engine) compactBasic(items []*types.ContentItem, partition *Partition, before int, reason string) (*Outcome, error) {
	dropCount := (len(partition.Compactable) + 1) / 2
	dropped := make(map[*types.ContentItem]struct{}, dropCount)
	droppedTokens := 0
	for _, item := range partition.Compactable[:dropCount] {
		dropped[item] = struct{}{}
		droppedTokens += item.TokenEstimate
	}

	retained := make([]*types.ContentItem, 0, len(items)-dropCount)
	for _, item := range items {
		if _, ok := dropped[item]; !ok {
			retained = append(retained, item)
		}
	}

	after := before - droppedTokens
	reduction := reductionPct(before, after)

	outcome := &Outcome{
		Strategy:      StrategyBasic,
		Reason:        reason,
		BeforeTokens:  before,
		AfterTokens:   after,
		ReductionPct:  reduction,
		RetainedItems: retained,
	}

	if reduction < e.config.MinReductionPct {
		outcome.Ineffective = true
		return outcome, fmt.Errorf("%w: basic reduction %.1f%% below minimum %.1f%%",
			ErrIneffective, reduction*100, e.config.MinReductionPct*100)
	}

	return outcome, nil
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, ErrSummarizerTimeout):
		return "summarizer timeout"
	case errors.Is(err, ErrSummarizerRejected):
		return "summarizer output rejected"
	case errors.Is(err, errSmartBelowThreshold):
		return "smart reduction below threshold"
	default:
		return "summarizer failed"
	}
}

func reductionPct(before, after int) float64 {
	if before <= 0 {
		return 0
	}
	return float64(before-after) / float64(before)
}
