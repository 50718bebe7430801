package ctxbudget

// Health classifies context usage against the token budget.
type Health string

const (
	// HealthHealthy means usage is below the elevated threshold
	HealthHealthy Health = "healthy"

	// HealthElevated means usage warrants compaction soon
	HealthElevated Health = "elevated"

	// HealthCritical means usage warrants immediate compaction
	HealthCritical Health = "critical"

	// HealthEmergency means usage is at or above the emergency ceiling
	HealthEmergency Health = "emergency"
)

var healthRank = map[Health]int{
	HealthHealthy:   0,
	HealthElevated:  1,
	HealthCritical:  2,
	HealthEmergency: 3,
}

// AtLeast reports whether h is at least as severe as other.
func (h Health) AtLeast(other Health) bool {
	return healthRank[h] >= healthRank[other]
}

// ClassifyPct classifies a usage percentage. Values exactly on a threshold
// fall into the higher bucket.
func ClassifyPct(pct float64) Health {
	switch {
	case pct >= ThresholdEmergencyPct:
		return HealthEmergency
	case pct >= ThresholdCriticalPct:
		return HealthCritical
	case pct >= ThresholdElevatedPct:
		return HealthElevated
	default:
		return HealthHealthy
	}
}

// UsageMetrics is a point-in-time view of a session's context usage.
type UsageMetrics struct {
	// TotalTokens is the sum of token estimates across tracked items
	TotalTokens int `json:"total_tokens"`

	// BudgetTokens is the configured context window budget
	BudgetTokens int `json:"budget_tokens"`

	// ItemCount is the number of tracked items
	ItemCount int `json:"item_count"`

	// ContextPercentage is TotalTokens as a percentage of BudgetTokens
	ContextPercentage float64 `json:"context_percentage"`

	// CompactionCount is how many compactions have been applied
	CompactionCount int `json:"compaction_count"`

	// LastCompactionDelta is the tokens freed by the most recent
	// compaction, zero if none has run
	LastCompactionDelta int `json:"last_compaction_delta"`
}

// Classify returns the health bucket for the current usage.
func (m UsageMetrics) Classify() Health {
	return ClassifyPct(m.ContextPercentage)
}
