package compaction

import (
	"fmt"
	"time"
)

// Default configuration values.
const (
	DefaultRetainRecent         = 8                // always keep the last 8 items
	DefaultCriticalScore        = 0.90             // importance score that marks an item must-keep
	DefaultMinCompactableItems  = 5                // skip below this many compactable items
	DefaultMinCompactableTokens = 5000             // skip below this many compactable tokens
	DefaultMinReductionPct      = 0.10             // smart outcome must shrink the set by 10%
	DefaultSummaryMinChars      = 200              // reject summaries shorter than this
	DefaultSummarizerTimeout    = 60 * time.Second // bound on the summarizer call
	DefaultSummarizerModel      = "claude-3-5-haiku-20241022"
	DefaultSummarizerMaxTokens  = 4096 // max tokens for the summarization response
)

// Config holds compaction engine configuration.
type Config struct {
	// RetainRecent is the number of most recent items that are never
	// compacted.
	// Default: 8
	RetainRecent int

	// CriticalScore is the importance score at or above which an item is
	// always retained verbatim.
	// Default: 0.90
	CriticalScore float64

	// MinCompactableItems is the minimum number of compactable items
	// required to attempt compaction; below it the pass is skipped.
	// Default: 5
	MinCompactableItems int

	// MinCompactableTokens is the minimum total token estimate across
	// compactable items required to attempt compaction.
	// Default: 5000
	MinCompactableTokens int

	// MinReductionPct is the fractional token reduction a compaction pass
	// must achieve. A smart pass below it is discarded and re-run with the
	// basic strategy; a basic pass below it is flagged ineffective.
	// Default: 0.10
	MinReductionPct float64

	// SummaryMinChars is the minimum length of an acceptable summary.
	// Shorter summaries are treated as summarizer failures.
	// Default: 200
	SummaryMinChars int

	// SummarizerTimeout bounds the summarizer call. On timeout the engine
	// falls back to the basic strategy instead of hanging the session.
	// Default: 60s
	SummarizerTimeout time.Duration

	// SummarizerModel is the model used by the Anthropic summarizer.
	// Default: "claude-3-5-haiku-20241022"
	SummarizerModel string

	// SummarizerMaxTokens is the maximum tokens for the summarization
	// response.
	// Default: 4096
	SummarizerMaxTokens int
}

// DefaultConfig returns a Config with the default values.
func DefaultConfig() *Config {
	return &Config{
		RetainRecent:         DefaultRetainRecent,
		CriticalScore:        DefaultCriticalScore,
		MinCompactableItems:  DefaultMinCompactableItems,
		MinCompactableTokens: DefaultMinCompactableTokens,
		MinReductionPct:      DefaultMinReductionPct,
		SummaryMinChars:      DefaultSummaryMinChars,
		SummarizerTimeout:    DefaultSummarizerTimeout,
		SummarizerModel:      DefaultSummarizerModel,
		SummarizerMaxTokens:  DefaultSummarizerMaxTokens,
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.RetainRecent < 0 {
		return fmt.Errorf("%w: retain_recent must be non-negative, got %d", ErrInvalidConfig, c.RetainRecent)
	}

	if c.CriticalScore < 0 || c.CriticalScore > 1 {
		return fmt.Errorf("%w: critical_score must be in [0,1], got %f", ErrInvalidConfig, c.CriticalScore)
	}

	if c.MinCompactableItems < 1 {
		return fmt.Errorf("%w: min_compactable_items must be positive, got %d", ErrInvalidConfig, c.MinCompactableItems)
	}

	if c.MinCompactableTokens < 0 {
		return fmt.Errorf("%w: min_compactable_tokens must be non-negative, got %d", ErrInvalidConfig, c.MinCompactableTokens)
	}

	if c.MinReductionPct <= 0 || c.MinReductionPct >= 1 {
		return fmt.Errorf("%w: min_reduction_pct must be between 0 and 1, got %f", ErrInvalidConfig, c.MinReductionPct)
	}

	if c.SummaryMinChars < 0 {
		return fmt.Errorf("%w: summary_min_chars must be non-negative, got %d", ErrInvalidConfig, c.SummaryMinChars)
	}

	if c.SummarizerTimeout <= 0 {
		return fmt.Errorf("%w: summarizer_timeout must be positive, got %s", ErrInvalidConfig, c.SummarizerTimeout)
	}

	if c.SummarizerModel == "" {
		return fmt.Errorf("%w: summarizer_model is required", ErrInvalidConfig)
	}

	if c.SummarizerMaxTokens <= 0 {
		return fmt.Errorf("%w: summarizer_max_tokens must be positive, got %d", ErrInvalidConfig, c.SummarizerMaxTokens)
	}

	return nil
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.RetainRecent == 0 {
		c.RetainRecent = DefaultRetainRecent
	}
	if c.CriticalScore == 0 {
		c.CriticalScore = DefaultCriticalScore
	}
	if c.MinCompactableItems == 0 {
		c.MinCompactableItems = DefaultMinCompactableItems
	}
	if c.MinCompactableTokens == 0 {
		c.MinCompactableTokens = DefaultMinCompactableTokens
	}
	if c.MinReductionPct == 0 {
		c.MinReductionPct = DefaultMinReductionPct
	}
	if c.SummaryMinChars == 0 {
		c.SummaryMinChars = DefaultSummaryMinChars
	}
	if c.SummarizerTimeout == 0 {
		c.SummarizerTimeout = DefaultSummarizerTimeout
	}
	if c.SummarizerModel == "" {
		c.SummarizerModel = DefaultSummarizerModel
	}
	if c.SummarizerMaxTokens == 0 {
		c.SummarizerMaxTokens = DefaultSummarizerMaxTokens
	}
}
