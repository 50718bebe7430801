package ctxbudget

import (
	"time"

	"github.com/google/uuid"

	"github.com/ctxforge/ctxbudget/compaction"
	"github.com/ctxforge/ctxbudget/types"
)

// Insights is a point-in-time report of a session's context budget: usage,
// health, the compaction history, and a token breakdown by content type.
// The report package renders it for humans.
type Insights struct {
	SessionID    uuid.UUID                 `json:"session_id"`
	GeneratedAt  time.Time                 `json:"generated_at"`
	Usage        UsageMetrics              `json:"usage"`
	Health       Health                    `json:"health"`
	Halted       bool                      `json:"halted"`
	HaltReason   string                    `json:"halt_reason,omitempty"`
	TokensByType map[types.ContentType]int `json:"tokens_by_type"`
	Outcomes     []*compaction.Outcome     `json:"outcomes"`
}

// Insights assembles the current report.
func (m *Manager) Insights() *Insights {
	usage := m.session.Usage()
	halted, reason := m.CheckGuard()

	byType := make(map[types.ContentType]int)
	for _, item := range m.session.Items() {
		byType[item.Type] += item.TokenEstimate
	}

	return &Insights{
		SessionID:    m.session.ID(),
		GeneratedAt:  time.Now().UTC(),
		Usage:        usage,
		Health:       usage.Classify(),
		Halted:       halted,
		HaltReason:   reason,
		TokensByType: byType,
		Outcomes:     m.History(),
	}
}
