// Package tokens provides token estimation for tracked content.
//
// The Estimator interface is the cheap, deterministic contract used for
// every tracked item. APICounter layers Claude's count-tokens API on top
// for callers that want accurate counts, falling back to the character
// approximation when the API is unavailable.
package tokens

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
)

// Estimator estimates the token footprint of a piece of text.
// Implementations must be deterministic: the same input always yields the
// same estimate.
type Estimator interface {
	Estimate(text string) int
}

// DefaultCharsPerToken is the character-to-token ratio used by the
// heuristic estimator. ~4 characters per token is a conservative estimate
// for English text.
const DefaultCharsPerToken = 4

// Heuristic is a character-based Estimator.
type Heuristic struct {
	// CharsPerToken overrides the ratio; zero means DefaultCharsPerToken.
	CharsPerToken int
}

// Estimate returns the approximate token count for text, with a minimum of
// 1 token for non-empty input.
func (h Heuristic) Estimate(text string) int {
	if len(text) == 0 {
		return 0
	}
	ratio := h.CharsPerToken
	if ratio <= 0 {
		ratio = DefaultCharsPerToken
	}
	t := (len(text) + ratio - 1) / ratio
	if t < 1 {
		t = 1
	}
	return t
}

// APICounter counts tokens using Claude's count-tokens API with a
// heuristic fallback. After the first API failure it stops retrying the
// API and uses the approximation for the remainder of its lifetime.
type APICounter struct {
	client    *anthropic.Client
	model     string
	heuristic Heuristic
	fallback  bool
}

// NewAPICounter creates an APICounter for the given client and model.
func NewAPICounter(client *anthropic.Client, model string) *APICounter {
	return &APICounter{
		client: client,
		model:  model,
	}
}

// Estimate satisfies Estimator using the character approximation. It never
// performs network I/O, keeping the Estimator contract cheap and
// deterministic.
func (c *APICounter) Estimate(text string) int {
	return c.heuristic.Estimate(text)
}

// Count returns the token count for text, preferring the API.
func (c *APICounter) Count(ctx context.Context, text string) (int, error) {
	if c.client != nil && !c.fallback {
		result, err := c.client.Messages.CountTokens(ctx, anthropic.MessageCountTokensParams{
			Model: anthropic.Model(c.model),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
			},
		})
		if err == nil {
			return int(result.InputTokens), nil
		}
		c.fallback = true
		return c.heuristic.Estimate(text), fmt.Errorf("token counting API failed, using approximation: %w", err)
	}

	return c.heuristic.Estimate(text), nil
}
