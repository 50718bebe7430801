// Package compaction reduces a session's working set while preserving
// high-value content.
//
// A compaction pass partitions items into mutually exclusive categories:
//
//   - Recent: the last RetainRecent items, never compacted.
//   - Critical: items typed decision or error, or scored at or above
//     CriticalScore; retained verbatim from any position.
//   - Compactable: everything else.
//
// # Strategies
//
//   - Smart (StrategySmart): the compactable items are rendered as plain
//     text and summarized by the Summarizer collaborator; the summary
//     replaces them as a synthetic summary item.
//
//   - Basic (StrategyBasic): the oldest half of the compactable items is
//     dropped outright, no summarization. Used as the fallback when the
//     smart path fails.
//
// # Validation
//
// The failure mode this package guards against is a pass that appears to
// run successfully but net-increases token usage; for example a
// summarizer refusal ("I don't see any content to summarize") accepted as
// the summary. The engine therefore validates both the summary content
// (non-empty, minimum length, refusal deny-list) and the resulting size
// delta (a smart pass must shrink the set by MinReductionPct). Either
// check failing falls back to the basic strategy; when basic also misses
// the threshold, the outcome is flagged ineffective so the session's
// emergency guard can count it.
//
// # Usage
//
//	engine := compaction.NewEngine(summarizer, estimator, &compaction.Config{
//	    RetainRecent:    8,
//	    MinReductionPct: 0.10,
//	}, logger)
//
//	outcome, err := engine.Compact(ctx, items)
//	if err != nil && !errors.Is(err, compaction.ErrIneffective) {
//	    return err
//	}
//	store.Swap(outcome.WorkingSet())
//
// The engine never mutates its input; the caller swaps the outcome's
// working set into the store.
package compaction
