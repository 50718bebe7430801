package compaction

import (
	"fmt"
	"strings"
)

// refusalMarkers identifies "I don't see any content" style summarizer
// replies. A reply containing one of these is a summarizer failure, not a
// summary: treating it as valid is how a compaction pass can net-increase
// token usage.
var refusalMarkers = []string{
	"i don't see any content",
	"i do not see any content",
	"there is no content",
	"there are no entries",
	"nothing to summarize",
	"no conversation provided",
	"i cannot summarize",
	"i can't summarize",
	"unable to summarize",
}

// ValidateSummary rejects unusable summarizer output. It returns an error
// wrapping ErrSummarizerRejected when the text is empty, shorter than the
// configured minimum, or matches the refusal deny-list.
func ValidateSummary(text string, config *Config) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return fmt.Errorf("%w: empty summary", ErrSummarizerRejected)
	}

	if len(trimmed) < config.SummaryMinChars {
		return fmt.Errorf("%w: summary too short (%d chars, minimum %d)",
			ErrSummarizerRejected, len(trimmed), config.SummaryMinChars)
	}

	lowered := strings.ToLower(trimmed)
	for _, marker := range refusalMarkers {
		if strings.Contains(lowered, marker) {
			return fmt.Errorf("%w: refusal-like summary (%q)", ErrSummarizerRejected, marker)
		}
	}

	return nil
}
