package ctxbudget

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ctxforge/ctxbudget/checkpoint"
	"github.com/ctxforge/ctxbudget/compaction"
	"github.com/ctxforge/ctxbudget/scoring"
	"github.com/ctxforge/ctxbudget/tokens"
	"github.com/ctxforge/ctxbudget/types"
)

// Session is the in-memory store for a single conversation's tracked
// content. All methods are safe for concurrent use.
type Session struct {
	id           uuid.UUID
	budgetTokens int
	scorer       *scoring.Scorer
	estimator    tokens.Estimator

	mu              sync.Mutex
	items           []*types.ContentItem
	totalTokens     int
	compactionCount int
	lastDelta       int
	lastTimestamp   time.Time

	now func() time.Time
}

// NewSession creates a session with the given identity and token budget.
// A nil scorer or estimator falls back to the package defaults.
func NewSession(id uuid.UUID, budgetTokens int, scorer *scoring.Scorer, estimator tokens.Estimator) *Session {
	if id == uuid.Nil {
		id = uuid.New()
	}
	if budgetTokens <= 0 {
		budgetTokens = DefaultBudgetTokens
	}
	if scorer == nil {
		scorer = scoring.New(nil)
	}
	if estimator == nil {
		estimator = tokens.Heuristic{}
	}
	return &Session{
		id:           id,
		budgetTokens: budgetTokens,
		scorer:       scorer,
		estimator:    estimator,
		now:          time.Now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Track records a new content item. The role and content type are parsed
// leniently: unknown roles default to user and unknown content types
// to general. The returned item is a copy and safe to retain.
func (s *Session) Track(content, role, contentType string, metadata map[string]any) (*types.ContentItem, error) {
	if content == "" {
		return nil, NewSessionError("Track", ErrInvalidContent).WithSession(s.id)
	}

	ctype := types.ParseContentType(contentType)
	estimate := s.estimator.Estimate(content)
	score := s.scorer.Score(ctype, content, estimate)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Timestamps never go backwards, even if the clock does.
	ts := s.now()
	if !ts.After(s.lastTimestamp) {
		ts = s.lastTimestamp
	}
	s.lastTimestamp = ts

	item := &types.ContentItem{
		Content:         content,
		Role:            types.ParseRole(role),
		Type:            ctype,
		ImportanceScore: score,
		TokenEstimate:   estimate,
		Timestamp:       ts,
		Metadata:        metadata,
	}
	s.items = append(s.items, item)
	s.totalTokens += estimate

	return item.Clone(), nil
}

// Items returns a snapshot of the tracked items in insertion order. The
// slice is a copy; the items themselves are shared and must be treated as
// read-only.
func (s *Session) Items() []*types.ContentItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.ContentItem, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of tracked items.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Usage returns the current usage metrics.
func (s *Session) Usage() UsageMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usageLocked()
}

func (s *Session) usageLocked() UsageMetrics {
	pct := 0.0
	if s.budgetTokens > 0 {
		pct = float64(s.totalTokens) / float64(s.budgetTokens) * 100
	}
	return UsageMetrics{
		TotalTokens:         s.totalTokens,
		BudgetTokens:        s.budgetTokens,
		ItemCount:           len(s.items),
		ContextPercentage:   pct,
		CompactionCount:     s.compactionCount,
		LastCompactionDelta: s.lastDelta,
	}
}

// Classify returns the health bucket for the current usage.
func (s *Session) Classify() Health {
	return s.Usage().Classify()
}

// Apply atomically replaces the tracked items with a compaction outcome's
// working set. Skipped outcomes leave the session untouched.
func (s *Session) Apply(outcome *compaction.Outcome) {
	if outcome == nil || outcome.Strategy == compaction.StrategySkipped {
		return
	}

	working := outcome.WorkingSet()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = working
	s.totalTokens = types.SumTokens(working)
	s.compactionCount++
	s.lastDelta = outcome.DeltaTokens()
	if n := len(working); n > 0 && working[n-1].Timestamp.After(s.lastTimestamp) {
		s.lastTimestamp = working[n-1].Timestamp
	}
}

// Snapshot captures the session state for checkpointing.
func (s *Session) Snapshot() *checkpoint.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]*types.ContentItem, len(s.items))
	for i, item := range s.items {
		items[i] = item.Clone()
	}
	return &checkpoint.Snapshot{
		Version:         checkpoint.SnapshotVersion,
		SessionID:       s.id,
		CreatedAt:       s.now().UTC(),
		CompactionCount: s.compactionCount,
		Items:           items,
	}
}

// Restore replaces the session state with a snapshot's contents. The
// current in-memory state is discarded.
func (s *Session) Restore(snap *checkpoint.Snapshot) error {
	if snap == nil {
		return NewSessionError("Restore", checkpoint.ErrInvalidSnapshot).WithSession(s.id)
	}

	items := make([]*types.ContentItem, len(snap.Items))
	for i, item := range snap.Items {
		items[i] = item.Clone()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = snap.SessionID
	s.items = items
	s.totalTokens = types.SumTokens(items)
	s.compactionCount = snap.CompactionCount
	s.lastDelta = 0
	if n := len(items); n > 0 {
		s.lastTimestamp = items[n-1].Timestamp
	}
	return nil
}
