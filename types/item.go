package types

import (
	"time"
)

// Role represents the conversational role that produced a content item.
type Role string

const (
	// RoleUser represents a user-authored item
	RoleUser Role = "user"

	// RoleAssistant represents a model-authored item
	RoleAssistant Role = "assistant"

	// RoleSystem represents a system-authored item
	RoleSystem Role = "system"
)

// ParseRole maps a raw string onto a Role, defaulting to RoleUser for
// unrecognized values.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleUser, RoleAssistant, RoleSystem:
		return Role(s)
	default:
		return RoleUser
	}
}

// ContentType classifies a content item for importance scoring and
// compaction handling. The set is closed; unknown inputs degrade to
// ContentTypeGeneral via ParseContentType rather than failing.
type ContentType string

const (
	// ContentTypeDecision marks an architectural or design decision
	ContentTypeDecision ContentType = "decision"

	// ContentTypePattern marks a reusable pattern or convention
	ContentTypePattern ContentType = "pattern"

	// ContentTypeError marks an error report and its resolution
	ContentTypeError ContentType = "error"

	// ContentTypeCode marks generated or discussed source code
	ContentTypeCode ContentType = "code"

	// ContentTypeSummary marks a synthetic compaction summary
	ContentTypeSummary ContentType = "summary"

	// ContentTypeGeneral is the fallback for everything else
	ContentTypeGeneral ContentType = "general"
)

// ParseContentType maps a raw string onto a ContentType. Unknown values
// return ContentTypeGeneral; a content-type input is never fatal.
func ParseContentType(s string) ContentType {
	switch ContentType(s) {
	case ContentTypeDecision, ContentTypePattern, ContentTypeError,
		ContentTypeCode, ContentTypeSummary, ContentTypeGeneral:
		return ContentType(s)
	default:
		return ContentTypeGeneral
	}
}

// Valid reports whether t is one of the defined content types.
func (t ContentType) Valid() bool {
	return ParseContentType(string(t)) == t
}

// ContentItem is one tracked unit of conversational or content history.
// Items are immutable after insertion: compaction replaces ranges of items
// with a new synthetic summary item, it never edits items in place.
type ContentItem struct {
	Content         string         `json:"content"`
	Role            Role           `json:"role"`
	Type            ContentType    `json:"content_type"`
	ImportanceScore float64        `json:"importance_score"`
	TokenEstimate   int            `json:"token_estimate"`
	Timestamp       time.Time      `json:"timestamp"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Clone returns a deep copy of the item. Metadata is copied so callers can
// hold the clone without aliasing the tracked item.
func (i *ContentItem) Clone() *ContentItem {
	itemCopy := *i

	if i.Metadata != nil {
		itemCopy.Metadata = make(map[string]any, len(i.Metadata))
		for k, v := range i.Metadata {
			itemCopy.Metadata[k] = v
		}
	}

	return &itemCopy
}

// SumTokens returns the total token estimate across items.
func SumTokens(items []*ContentItem) int {
	total := 0
	for _, item := range items {
		total += item.TokenEstimate
	}
	return total
}
