package ctxbudget

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Default configuration values
const (
	// DefaultBudgetTokens is the default context window budget
	DefaultBudgetTokens = 200000

	// DefaultAutoCheckpointEvery is the default number of tracked items
	// between automatic checkpoints
	DefaultAutoCheckpointEvery = 5

	// DefaultEmergencyCeilingPct is the usage percentage at or above which
	// the emergency guard halts the session
	DefaultEmergencyCeilingPct = 80.0

	// DefaultGuardTrendWindow is the number of consecutive compactions the
	// guard inspects for diminishing returns
	DefaultGuardTrendWindow = 3

	// DefaultGuardTrendMinReduction is the minimum per-compaction reduction
	// below which a compaction counts toward a trend failure
	DefaultGuardTrendMinReduction = 0.05
)

// Usage thresholds, as percentages of the token budget. A usage exactly on
// a boundary classifies into the higher bucket.
const (
	// ThresholdElevatedPct is where usage moves from healthy to elevated
	ThresholdElevatedPct = 40.0

	// ThresholdCriticalPct is where usage moves from elevated to critical
	ThresholdCriticalPct = 70.0

	// ThresholdEmergencyPct is where usage moves from critical to emergency
	ThresholdEmergencyPct = 80.0
)

// Config holds the configuration for a Manager.
//
// Example:
//
//	mgr, _ := ctxbudget.New(ctxbudget.DefaultConfig(),
//	    ctxbudget.WithCheckpointStore(store),
//	)
type Config struct {
	// BudgetTokens is the total context window budget in tokens
	BudgetTokens int `env:"CTXBUDGET_BUDGET_TOKENS"`

	// AutoCheckpointEvery saves a checkpoint after this many tracked
	// items when a checkpoint store is configured. Zero disables
	// automatic checkpoints.
	AutoCheckpointEvery int `env:"CTXBUDGET_AUTO_CHECKPOINT_EVERY"`

	// EmergencyCeilingPct is the usage percentage at or above which the
	// guard halts the session even after compaction
	EmergencyCeilingPct float64 `env:"CTXBUDGET_EMERGENCY_CEILING_PCT"`

	// GuardTrendWindow is the number of consecutive compactions whose
	// reductions must all fall below GuardTrendMinReduction before the
	// guard reports a trend failure
	GuardTrendWindow int `env:"CTXBUDGET_GUARD_TREND_WINDOW"`

	// GuardTrendMinReduction is the reduction fraction (0.0-1.0) below
	// which a compaction counts toward a trend failure
	GuardTrendMinReduction float64 `env:"CTXBUDGET_GUARD_TREND_MIN_REDUCTION"`
}

// DefaultConfig returns a Config populated with defaults
func DefaultConfig() Config {
	return Config{
		BudgetTokens:           DefaultBudgetTokens,
		AutoCheckpointEvery:    DefaultAutoCheckpointEvery,
		EmergencyCeilingPct:    DefaultEmergencyCeilingPct,
		GuardTrendWindow:       DefaultGuardTrendWindow,
		GuardTrendMinReduction: DefaultGuardTrendMinReduction,
	}
}

// ConfigFromEnv builds a Config from CTXBUDGET_* environment variables,
// falling back to defaults for unset values.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills in zero values with defaults
func (c *Config) ApplyDefaults() {
	if c.BudgetTokens == 0 {
		c.BudgetTokens = DefaultBudgetTokens
	}
	if c.EmergencyCeilingPct == 0 {
		c.EmergencyCeilingPct = DefaultEmergencyCeilingPct
	}
	if c.GuardTrendWindow == 0 {
		c.GuardTrendWindow = DefaultGuardTrendWindow
	}
	if c.GuardTrendMinReduction == 0 {
		c.GuardTrendMinReduction = DefaultGuardTrendMinReduction
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.BudgetTokens <= 0 {
		return fmt.Errorf("%w: BudgetTokens must be positive", ErrInvalidConfig)
	}
	if c.AutoCheckpointEvery < 0 {
		return fmt.Errorf("%w: AutoCheckpointEvery must not be negative", ErrInvalidConfig)
	}
	if c.EmergencyCeilingPct <= 0 || c.EmergencyCeilingPct > 100 {
		return fmt.Errorf("%w: EmergencyCeilingPct must be in (0, 100]", ErrInvalidConfig)
	}
	if c.GuardTrendWindow <= 0 {
		return fmt.Errorf("%w: GuardTrendWindow must be positive", ErrInvalidConfig)
	}
	if c.GuardTrendMinReduction < 0 || c.GuardTrendMinReduction > 1 {
		return fmt.Errorf("%w: GuardTrendMinReduction must be in [0, 1]", ErrInvalidConfig)
	}
	return nil
}
