package ctxbudget

import (
	"fmt"

	"github.com/ctxforge/ctxbudget/compaction"
)

// Guard is the emergency stop for sessions where compaction can no longer
// keep usage under control. It halts on two conditions: usage still at or
// above the emergency ceiling after a compaction, or a run of consecutive
// compactions that each freed almost nothing.
type Guard struct {
	ceilingPct        float64
	trendWindow       int
	trendMinReduction float64
}

// NewGuard builds a Guard from the manager configuration.
func NewGuard(config Config) *Guard {
	config.ApplyDefaults()
	return &Guard{
		ceilingPct:        config.EmergencyCeilingPct,
		trendWindow:       config.GuardTrendWindow,
		trendMinReduction: config.GuardTrendMinReduction,
	}
}

// Check inspects post-compaction usage and the recent compaction history.
// It returns true with a human-readable reason when the session should
// halt. Skipped outcomes do not count toward the trend.
func (g *Guard) Check(usage UsageMetrics, history []*compaction.Outcome) (bool, string) {
	if usage.ContextPercentage >= g.ceilingPct {
		return true, fmt.Sprintf("context usage %.1f%% at or above emergency ceiling %.0f%%",
			usage.ContextPercentage, g.ceilingPct)
	}

	attempted := 0
	for i := len(history) - 1; i >= 0; i-- {
		out := history[i]
		if out.Strategy == compaction.StrategySkipped {
			continue
		}
		if out.ReductionPct >= g.trendMinReduction {
			return false, ""
		}
		attempted++
		if attempted == g.trendWindow {
			return true, "compaction trend failure"
		}
	}
	return false, ""
}
