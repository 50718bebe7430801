package compaction

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ctxforge/ctxbudget/types"
)

// stubSummarizer is a scriptable Summarizer for engine tests.
type stubSummarizer struct {
	text   string
	tokens int
	err    error
	delay  time.Duration
	calls  int
}

func (s *stubSummarizer) Summarize(ctx context.Context, rendered string) (*Summary, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	tokenEstimate := s.tokens
	if tokenEstimate == 0 {
		tokenEstimate = (len(s.text) + 3) / 4
	}
	return &Summary{Text: s.text, TokenEstimate: tokenEstimate}, nil
}

// goodSummary is long enough to pass validation.
var goodSummary = strings.Repeat("1. **Objectives and Intent**: build the ingestion service. ", 8)

// compactableItems returns a working set with plenty of compactable
// content: 12 old general items of 1000 tokens each plus the recent
// window.
func compactableItems() []*types.ContentItem {
	items := make([]*types.ContentItem, 0, 20)
	for i := 0; i < 12; i++ {
		items = append(items, testItem(i, types.ContentTypeGeneral, 0.5, 1000))
	}
	for i := 12; i < 20; i++ {
		items = append(items, testItem(i, types.ContentTypeGeneral, 0.5, 100))
	}
	return items
}

func TestCompactSkipsInsufficientItems(t *testing.T) {
	stub := &stubSummarizer{text: goodSummary}
	engine := NewEngine(stub, nil, nil, nil)

	// Only 4 compactable items (12 total minus recent window of 8)
	items := generalItems(12, 2000)
	outcome, err := engine.Compact(context.Background(), items)
	if err != nil {
		t.Fatalf("Compact() error: %v", err)
	}

	if outcome.Strategy != StrategySkipped {
		t.Errorf("strategy = %s, want skipped", outcome.Strategy)
	}
	if outcome.Reason != "insufficient compactable content" {
		t.Errorf("reason = %q", outcome.Reason)
	}
	if len(outcome.RetainedItems) != len(items) {
		t.Errorf("retained %d items, want all %d unchanged", len(outcome.RetainedItems), len(items))
	}
	if outcome.AfterTokens != outcome.BeforeTokens {
		t.Error("skipped outcome must not change token totals")
	}
	if stub.calls != 0 {
		t.Error("summarizer must not be called on a skipped pass")
	}
}

func TestCompactSkipsInsufficientTokens(t *testing.T) {
	engine := NewEngine(&stubSummarizer{text: goodSummary}, nil, nil, nil)

	// 10 compactable items but only 100 tokens each (1000 < 5000)
	items := generalItems(18, 100)
	outcome, err := engine.Compact(context.Background(), items)
	if err != nil {
		t.Fatalf("Compact() error: %v", err)
	}
	if outcome.Strategy != StrategySkipped {
		t.Errorf("strategy = %s, want skipped", outcome.Strategy)
	}
}

func TestCompactSmart(t *testing.T) {
	stub := &stubSummarizer{text: goodSummary}
	engine := NewEngine(stub, nil, nil, nil)

	items := compactableItems()
	before := types.SumTokens(items)

	outcome, err := engine.Compact(context.Background(), items)
	if err != nil {
		t.Fatalf("Compact() error: %v", err)
	}

	if outcome.Strategy != StrategySmart {
		t.Fatalf("strategy = %s, want smart", outcome.Strategy)
	}
	if outcome.BeforeTokens != before {
		t.Errorf("before tokens = %d, want %d", outcome.BeforeTokens, before)
	}
	if outcome.AfterTokens >= outcome.BeforeTokens {
		t.Errorf("after tokens %d not below before %d", outcome.AfterTokens, outcome.BeforeTokens)
	}
	if outcome.ReductionPct < DefaultMinReductionPct {
		t.Errorf("reduction %.3f below minimum", outcome.ReductionPct)
	}

	if outcome.SummaryItem == nil {
		t.Fatal("smart outcome missing summary item")
	}
	if outcome.SummaryItem.Type != types.ContentTypeSummary {
		t.Errorf("summary item type = %s", outcome.SummaryItem.Type)
	}
	if outcome.SummaryItem.ImportanceScore != SummaryImportance {
		t.Errorf("summary importance = %v, want %v", outcome.SummaryItem.ImportanceScore, SummaryImportance)
	}

	set := outcome.WorkingSet()
	if set[0] != outcome.SummaryItem {
		t.Error("summary item not first in working set")
	}
	if len(set) != 1+len(outcome.RetainedItems) {
		t.Errorf("working set size = %d", len(set))
	}
}

func TestCompactRefusalFallsBackToBasic(t *testing.T) {
	stub := &stubSummarizer{text: "I don't see any content to summarize"}
	engine := NewEngine(stub, nil, nil, nil)

	items := compactableItems()
	outcome, err := engine.Compact(context.Background(), items)
	if err != nil {
		t.Fatalf("Compact() error: %v", err)
	}

	if outcome.Strategy != StrategyBasic {
		t.Fatalf("strategy = %s, want basic", outcome.Strategy)
	}
	if outcome.SummaryItem != nil {
		t.Error("basic outcome must not carry a summary item")
	}
	if len(outcome.RetainedItems) >= len(items) {
		t.Error("basic compaction dropped nothing")
	}
	if outcome.AfterTokens >= outcome.BeforeTokens {
		t.Error("basic compaction did not reduce tokens")
	}
}

func TestCompactTimeoutFallsBackToBasic(t *testing.T) {
	config := DefaultConfig()
	config.SummarizerTimeout = 10 * time.Millisecond
	stub := &stubSummarizer{text: goodSummary, delay: 200 * time.Millisecond}
	engine := NewEngine(stub, nil, config, nil)

	outcome, err := engine.Compact(context.Background(), compactableItems())
	if err != nil {
		t.Fatalf("Compact() error: %v", err)
	}
	if outcome.Strategy != StrategyBasic {
		t.Errorf("strategy = %s, want basic after timeout", outcome.Strategy)
	}
	if outcome.Reason != "summarizer timeout" {
		t.Errorf("reason = %q, want summarizer timeout", outcome.Reason)
	}
}

func TestCompactSummarizerErrorFallsBackToBasic(t *testing.T) {
	stub := &stubSummarizer{err: errors.New("api unavailable")}
	engine := NewEngine(stub, nil, nil, nil)

	outcome, err := engine.Compact(context.Background(), compactableItems())
	if err != nil {
		t.Fatalf("Compact() error: %v", err)
	}
	if outcome.Strategy != StrategyBasic {
		t.Errorf("strategy = %s, want basic", outcome.Strategy)
	}
}

func TestCompactNilSummarizerUsesBasic(t *testing.T) {
	engine := NewEngine(nil, nil, nil, nil)

	outcome, err := engine.Compact(context.Background(), compactableItems())
	if err != nil {
		t.Fatalf("Compact() error: %v", err)
	}
	if outcome.Strategy != StrategyBasic {
		t.Errorf("strategy = %s, want basic", outcome.Strategy)
	}
}

func TestCompactSmartInsufficientReductionFallsBackToBasic(t *testing.T) {
	// A "valid" summary as large as the content it replaces: the smart
	// path must be discarded even though the call succeeded.
	stub := &stubSummarizer{text: goodSummary, tokens: 12000}
	engine := NewEngine(stub, nil, nil, nil)

	outcome, err := engine.Compact(context.Background(), compactableItems())
	if err != nil {
		t.Fatalf("Compact() error: %v", err)
	}
	if outcome.Strategy != StrategyBasic {
		t.Fatalf("strategy = %s, want basic", outcome.Strategy)
	}
	if outcome.Reason != "smart reduction below threshold" {
		t.Errorf("reason = %q", outcome.Reason)
	}
	if outcome.AfterTokens >= outcome.BeforeTokens {
		t.Error("fallback did not reduce tokens")
	}
}

func TestCompactBasicIneffective(t *testing.T) {
	// Compactable tokens are a sliver of the total: even dropping half of
	// them cannot reach the minimum reduction.
	items := make([]*types.ContentItem, 0, 14)
	for i := 0; i < 6; i++ {
		items = append(items, testItem(i, types.ContentTypeGeneral, 0.5, 1000))
	}
	for i := 6; i < 14; i++ {
		items = append(items, testItem(i, types.ContentTypeGeneral, 0.5, 50000))
	}

	stub := &stubSummarizer{err: errors.New("api unavailable")}
	engine := NewEngine(stub, nil, nil, nil)

	outcome, err := engine.Compact(context.Background(), items)
	if !errors.Is(err, ErrIneffective) {
		t.Fatalf("Compact() error = %v, want ErrIneffective", err)
	}
	if outcome == nil {
		t.Fatal("ineffective compaction must still return the outcome")
	}
	if outcome.Strategy != StrategyBasic {
		t.Errorf("strategy = %s, want basic", outcome.Strategy)
	}
	if !outcome.Ineffective {
		t.Error("outcome not flagged ineffective")
	}
	if outcome.AfterTokens >= outcome.BeforeTokens {
		t.Error("even an ineffective pass must reduce tokens")
	}
}

func TestCompactPreservesCriticalItems(t *testing.T) {
	items := []*types.ContentItem{
		testItem(0, types.ContentTypeDecision, 0.90, 1000),
		testItem(1, types.ContentTypeGeneral, 0.50, 1000),
		testItem(2, types.ContentTypeError, 0.85, 1000),
		testItem(3, types.ContentTypeGeneral, 0.95, 1000),
	}
	for i := 4; i < 12; i++ {
		items = append(items, testItem(i, types.ContentTypeGeneral, 0.5, 1000))
	}
	for i := 12; i < 20; i++ {
		items = append(items, testItem(i, types.ContentTypeGeneral, 0.5, 100))
	}

	critical := map[*types.ContentItem]bool{
		items[0]: true,
		items[2]: true,
		items[3]: true,
	}

	// Exercise both the smart path and the basic fallback
	for _, stub := range []*stubSummarizer{
		{text: goodSummary},
		{err: errors.New("api unavailable")},
	} {
		engine := NewEngine(stub, nil, nil, nil)
		outcome, err := engine.Compact(context.Background(), items)
		if err != nil {
			t.Fatalf("Compact() error: %v", err)
		}

		present := make(map[*types.ContentItem]bool)
		for _, item := range outcome.WorkingSet() {
			present[item] = true
		}
		for item := range critical {
			if !present[item] {
				t.Errorf("strategy %s dropped a critical item (%s, score %v)",
					outcome.Strategy, item.Type, item.ImportanceScore)
			}
		}
	}
}

func TestCompactDoesNotMutateInput(t *testing.T) {
	items := compactableItems()
	contents := make([]string, len(items))
	for i, item := range items {
		contents[i] = item.Content
	}

	engine := NewEngine(&stubSummarizer{text: goodSummary}, nil, nil, nil)
	if _, err := engine.Compact(context.Background(), items); err != nil {
		t.Fatalf("Compact() error: %v", err)
	}

	for i, item := range items {
		if item.Content != contents[i] {
			t.Errorf("input item %d mutated", i)
		}
	}
}

func TestSummaryItemTimestampOrdered(t *testing.T) {
	engine := NewEngine(&stubSummarizer{text: goodSummary}, nil, nil, nil)

	items := compactableItems()
	outcome, err := engine.Compact(context.Background(), items)
	if err != nil {
		t.Fatalf("Compact() error: %v", err)
	}
	if outcome.Strategy != StrategySmart {
		t.Fatalf("strategy = %s, want smart", outcome.Strategy)
	}

	set := outcome.WorkingSet()
	for i := 1; i < len(set); i++ {
		if set[i].Timestamp.Before(set[i-1].Timestamp) {
			t.Fatalf("working set out of timestamp order at %d", i)
		}
	}
}
