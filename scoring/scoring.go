// Package scoring computes importance scores for tracked content items.
//
// The scorer is a pure function of an item's attributes: same input always
// yields the same score, which keeps compaction partitioning reproducible
// and testable. Scores rank retainability in [0, 1]; the compaction engine
// treats anything at or above its critical threshold as must-keep.
package scoring

import (
	"strings"

	"github.com/ctxforge/ctxbudget/types"
)

// Default scoring parameters.
const (
	// DefaultKeywordBoost is added per matched keyword.
	DefaultKeywordBoost = 0.05

	// DefaultKeywordBoostCap caps the total keyword boost.
	DefaultKeywordBoostCap = 0.15

	// DefaultLengthCeiling is the token estimate above which the length
	// penalty applies.
	DefaultLengthCeiling = 2000

	// DefaultLengthPenalty is subtracted per full ceiling-worth of overage.
	DefaultLengthPenalty = 0.10
)

// defaultKeywords are the domain keywords that boost an item's score when
// found (case-insensitively) in its content.
var defaultKeywords = []string{
	"architecture",
	"critical",
	"decision",
	"security",
	"invariant",
	"breaking",
}

// baseScores maps content types to their base importance.
var baseScores = map[types.ContentType]float64{
	types.ContentTypeDecision: 0.90,
	types.ContentTypeError:    0.85,
	types.ContentTypePattern:  0.80,
	types.ContentTypeCode:     0.70,
	types.ContentTypeSummary:  0.95,
	types.ContentTypeGeneral:  0.50,
}

// Config holds scorer parameters. Zero values fall back to defaults.
type Config struct {
	// Keywords is the fixed keyword list checked against content.
	Keywords []string

	// KeywordBoost is the score added per matched keyword.
	KeywordBoost float64

	// KeywordBoostCap caps the total keyword boost.
	KeywordBoostCap float64

	// LengthCeiling is the token estimate above which the length penalty
	// applies.
	LengthCeiling int

	// LengthPenalty is subtracted per full ceiling-worth of overage.
	LengthPenalty float64
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.Keywords == nil {
		c.Keywords = defaultKeywords
	}
	if c.KeywordBoost == 0 {
		c.KeywordBoost = DefaultKeywordBoost
	}
	if c.KeywordBoostCap == 0 {
		c.KeywordBoostCap = DefaultKeywordBoostCap
	}
	if c.LengthCeiling == 0 {
		c.LengthCeiling = DefaultLengthCeiling
	}
	if c.LengthPenalty == 0 {
		c.LengthPenalty = DefaultLengthPenalty
	}
}

// Scorer computes importance scores. The zero-value config is usable;
// construct with New.
type Scorer struct {
	config Config
}

// New creates a Scorer with the given configuration. A nil config uses
// defaults.
func New(config *Config) *Scorer {
	cfg := Config{}
	if config != nil {
		cfg = *config
	}
	cfg.ApplyDefaults()
	return &Scorer{config: cfg}
}

// Score computes the importance score for an item with the given content
// type, content, and token estimate.
//
// The score starts from the content type's base, gains a capped boost per
// domain keyword found in the content, loses a penalty proportional to how
// far the token estimate exceeds the length ceiling, and is clamped to
// [0, 1].
func (s *Scorer) Score(contentType types.ContentType, content string, tokenEstimate int) float64 {
	base, ok := baseScores[contentType]
	if !ok {
		base = baseScores[types.ContentTypeGeneral]
	}

	score := base + s.keywordBoost(content) - s.lengthPenalty(tokenEstimate)

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// ScoreItem scores an already-constructed item.
func (s *Scorer) ScoreItem(item *types.ContentItem) float64 {
	return s.Score(item.Type, item.Content, item.TokenEstimate)
}

func (s *Scorer) keywordBoost(content string) float64 {
	lowered := strings.ToLower(content)
	boost := 0.0
	for _, kw := range s.config.Keywords {
		if strings.Contains(lowered, kw) {
			boost += s.config.KeywordBoost
		}
		if boost >= s.config.KeywordBoostCap {
			return s.config.KeywordBoostCap
		}
	}
	return boost
}

func (s *Scorer) lengthPenalty(tokenEstimate int) float64 {
	if tokenEstimate <= s.config.LengthCeiling {
		return 0
	}
	overage := tokenEstimate - s.config.LengthCeiling
	return s.config.LengthPenalty * float64(overage) / float64(s.config.LengthCeiling)
}
