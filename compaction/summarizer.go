package compaction

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ctxforge/ctxbudget/tokens"
)

// Summary is the result of a summarization call.
type Summary struct {
	// Text is the summary text.
	Text string

	// TokenEstimate is the estimated token count of the summary.
	TokenEstimate int
}

// Summarizer produces a summary for a plain-text rendering of compactable
// items. Implementations are external collaborators; the engine only
// relies on this contract plus a bounded timeout.
type Summarizer interface {
	Summarize(ctx context.Context, rendered string) (*Summary, error)
}

// AnthropicSummarizer summarizes rendered content using Claude's streaming
// API with a structured summary prompt.
type AnthropicSummarizer struct {
	client    *anthropic.Client
	model     string
	maxTokens int
	counter   *tokens.APICounter
}

// NewAnthropicSummarizer creates a summarizer for the given client. An
// empty model or zero maxTokens falls back to the package defaults.
func NewAnthropicSummarizer(client *anthropic.Client, model string, maxTokens int) *AnthropicSummarizer {
	if model == "" {
		model = DefaultSummarizerModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultSummarizerMaxTokens
	}
	return &AnthropicSummarizer{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		counter:   tokens.NewAPICounter(client, model),
	}
}

// Summarize generates a summary of the rendered content.
func (s *AnthropicSummarizer) Summarize(ctx context.Context, rendered string) (*Summary, error) {
	if strings.TrimSpace(rendered) == "" {
		return nil, fmt.Errorf("%w: nothing to summarize", ErrNoItems)
	}

	stream := s.client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: int64(s.maxTokens),
		System: []anthropic.TextBlockParam{
			{Text: SummarySystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(BuildSummaryUserPrompt(rendered))),
		},
	})

	message := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			return nil, fmt.Errorf("%w: failed to accumulate stream: %v", ErrSummarizationFailed, err)
		}
	}

	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSummarizationFailed, err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}

	summaryText := text.String()
	// Count falls back to the character approximation on API failure, so
	// the estimate is usable either way.
	estimate, _ := s.counter.Count(ctx, summaryText)

	return &Summary{Text: summaryText, TokenEstimate: estimate}, nil
}
