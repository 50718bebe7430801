package compaction

import (
	"github.com/ctxforge/ctxbudget/types"
)

// Partition categorizes items for a compaction pass. Categories are
// mutually exclusive and each preserves the original item order.
type Partition struct {
	// Recent items are the last RetainRecent items. Never compacted.
	Recent []*types.ContentItem

	// Critical items carry a decision or error content type, or an
	// importance score at or above CriticalScore. Retained verbatim from
	// any position.
	Critical []*types.ContentItem

	// Compactable items are eligible for summarization and removal.
	Compactable []*types.ContentItem

	// Stats contains token totals per category.
	Stats PartitionStats
}

// PartitionStats contains token totals per partition category.
type PartitionStats struct {
	RecentTokens      int
	CriticalTokens    int
	CompactableTokens int
	TotalTokens       int
}

// CanCompact reports whether enough compactable content exists for a pass,
// per the configured minimums.
func (p *Partition) CanCompact(config *Config) bool {
	return len(p.Compactable) >= config.MinCompactableItems &&
		p.Stats.CompactableTokens >= config.MinCompactableTokens
}

// Retained returns the critical and recent items in their original
// chronological order. Every critical item precedes the recent window, so
// concatenation preserves order.
func (p *Partition) Retained() []*types.ContentItem {
	retained := make([]*types.ContentItem, 0, len(p.Critical)+len(p.Recent))
	retained = append(retained, p.Critical...)
	retained = append(retained, p.Recent...)
	return retained
}

// Partitioner partitions items for compaction processing.
type Partitioner struct {
	config *Config
}

// NewPartitioner creates a Partitioner with the given configuration.
func NewPartitioner(config *Config) *Partitioner {
	return &Partitioner{config: config}
}

// Partition categorizes items into recent, critical, and compactable.
//
// The last RetainRecent items go to Recent regardless of their attributes.
// Among the older items, anything typed decision or error, or scored at or
// above CriticalScore, goes to Critical; the rest is Compactable.
func (p *Partitioner) Partition(items []*types.ContentItem) *Partition {
	partition := &Partition{
		Recent:      make([]*types.ContentItem, 0, p.config.RetainRecent),
		Critical:    make([]*types.ContentItem, 0),
		Compactable: make([]*types.ContentItem, 0),
	}

	recentStart := len(items) - p.config.RetainRecent
	if recentStart < 0 {
		recentStart = 0
	}

	for i, item := range items {
		partition.Stats.TotalTokens += item.TokenEstimate

		switch {
		case i >= recentStart:
			partition.Recent = append(partition.Recent, item)
			partition.Stats.RecentTokens += item.TokenEstimate

		case p.isCritical(item):
			partition.Critical = append(partition.Critical, item)
			partition.Stats.CriticalTokens += item.TokenEstimate

		default:
			partition.Compactable = append(partition.Compactable, item)
			partition.Stats.CompactableTokens += item.TokenEstimate
		}
	}

	return partition
}

func (p *Partitioner) isCritical(item *types.ContentItem) bool {
	if item.Type == types.ContentTypeDecision || item.Type == types.ContentTypeError {
		return true
	}
	return item.ImportanceScore >= p.config.CriticalScore
}
