// Package ctxbudget manages the context window budget of long-running AI
// agent sessions: it tracks content items with token estimates and
// importance scores, classifies usage against configurable thresholds,
// compacts the working set when usage climbs, checkpoints sessions for
// crash recovery, and halts sessions that compaction can no longer save.
//
// # Quick Start
//
// Create a manager and track content as the session progresses:
//
//	mgr, err := ctxbudget.New(ctxbudget.DefaultConfig(),
//	    ctxbudget.WithSummarizer(compaction.NewAnthropicSummarizer(&client, "", 0)),
//	    ctxbudget.WithCheckpointStore(checkpoint.NewFileStore("/var/lib/myagent/checkpoints")),
//	)
//
//	mgr.Track(ctx, "Use PostgreSQL for persistence", "assistant", "decision", nil)
//
//	if outcome, err := mgr.CompactIfNeeded(ctx); err != nil {
//	    if errors.Is(err, ctxbudget.ErrEmergencyStop) {
//	        // usage cannot be brought under control; stop the session
//	    }
//	}
//
// # Usage Monitoring
//
// Every tracked item carries a deterministic token estimate and an
// importance score derived from its content type, keyword signals, and
// length. Usage is classified into four buckets: healthy below 40% of the
// budget, elevated from 40%, critical from 70%, and emergency from 80%.
//
// # Compaction
//
// The compaction engine partitions the working set into recent items
// (never touched), critical items (retained verbatim), and compactable
// items. The smart strategy replaces the compactable items with a
// Claude-written structured summary; when summarization fails, times out,
// produces a rejected summary, or shrinks the set too little, the engine
// falls back to dropping the oldest half of the compactable items.
//
// # Checkpointing
//
// Sessions can be checkpointed to a file, PostgreSQL, or any Store
// implementation, and resumed after a crash. A missing checkpoint starts
// the session fresh; a corrupted one is reported without destroying
// either the stored data or the in-memory state.
//
// # Emergency Guard
//
// After each compaction the guard checks that usage dropped below the
// emergency ceiling and that recent compactions are still freeing tokens.
// When either check fails, Compact returns an error wrapping
// ErrEmergencyStop and the session should be halted.
package ctxbudget
