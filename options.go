package ctxbudget

import (
	"github.com/google/uuid"

	"github.com/ctxforge/ctxbudget/checkpoint"
	"github.com/ctxforge/ctxbudget/compaction"
	"github.com/ctxforge/ctxbudget/hooks"
	"github.com/ctxforge/ctxbudget/scoring"
	"github.com/ctxforge/ctxbudget/tokens"
)

// Option is a functional option for configuring a Manager
type Option func(*managerOptions) error

// managerOptions collects optional dependencies before the Manager is built
type managerOptions struct {
	sessionID        uuid.UUID
	logger           Logger
	summarizer       compaction.Summarizer
	estimator        tokens.Estimator
	scorerConfig     *scoring.Config
	compactionConfig *compaction.Config
	store            checkpoint.Store
	hooks            *hooks.Registry
}

// WithSessionID sets the session identifier instead of generating one
func WithSessionID(id uuid.UUID) Option {
	return func(o *managerOptions) error {
		if id == uuid.Nil {
			return NewSessionError("WithSessionID", ErrInvalidConfig).
				WithContext("reason", "session ID must not be nil")
		}
		o.sessionID = id
		return nil
	}
}

// WithLogger sets the logger used by the manager and its compaction engine
func WithLogger(logger Logger) Option {
	return func(o *managerOptions) error {
		o.logger = logger
		return nil
	}
}

// WithSummarizer sets the summarizer used for smart compaction.
// Without one, every compaction uses the basic strategy.
func WithSummarizer(s compaction.Summarizer) Option {
	return func(o *managerOptions) error {
		o.summarizer = s
		return nil
	}
}

// WithEstimator overrides the token estimator
func WithEstimator(e tokens.Estimator) Option {
	return func(o *managerOptions) error {
		o.estimator = e
		return nil
	}
}

// WithScorerConfig overrides the importance scoring configuration
func WithScorerConfig(cfg *scoring.Config) Option {
	return func(o *managerOptions) error {
		o.scorerConfig = cfg
		return nil
	}
}

// WithCompactionConfig overrides the compaction engine configuration
func WithCompactionConfig(cfg *compaction.Config) Option {
	return func(o *managerOptions) error {
		if cfg != nil {
			cfg.ApplyDefaults()
			if err := cfg.Validate(); err != nil {
				return NewSessionError("WithCompactionConfig", err)
			}
		}
		o.compactionConfig = cfg
		return nil
	}
}

// WithCheckpointStore enables checkpointing through the given store
func WithCheckpointStore(store checkpoint.Store) Option {
	return func(o *managerOptions) error {
		o.store = store
		return nil
	}
}

// WithHooks attaches a hook registry for lifecycle observability
func WithHooks(registry *hooks.Registry) Option {
	return func(o *managerOptions) error {
		o.hooks = registry
		return nil
	}
}
