package compaction

import (
	"fmt"
	"strings"

	"github.com/ctxforge/ctxbudget/types"
)

// SummarySystemPrompt is the system prompt used for working-set
// summarization. It instructs the model to produce a structured summary
// that preserves the information a long-running workflow needs to
// continue: goals, decisions, errors, conventions, and pending work.
const SummarySystemPrompt = `You are a summarizer for a long-running engineering workflow. Older entries from the workflow's history are being replaced with your summary, so the summary must preserve everything needed to continue the work correctly.

Produce a structured summary with the following sections. Write "None" for a section with no relevant content.

1. **Objectives and Intent**
   - The overall goal of the work and any stated requirements or constraints

2. **Decisions and Rationale**
   - Design and architecture decisions made, with the reasoning behind them

3. **Errors and Resolutions**
   - Errors encountered, how they were resolved, and workarounds in place

4. **Patterns and Conventions**
   - Coding patterns, naming conventions, and domain rules established

5. **Artifacts**
   - Files, components, and interfaces created or discussed, with their purposes

6. **Pending Work**
   - Unfinished tasks, planned follow-ups, and the immediate next step

Guidelines:
- Be concise but complete; keep specific identifiers (file names, function names, error messages)
- Use bullet points and keep events in chronological order within each section
- Do not add information that was not in the entries
- Do not comment on the summarization task itself`

// BuildSummaryUserPrompt creates the user message for a summarization call.
func BuildSummaryUserPrompt(rendered string) string {
	return `Summarize the following workflow history entries according to the format in your instructions.

<entries>
` + rendered + `
</entries>

The summary will replace these entries, so it must carry enough context to continue the workflow without them.`
}

// RenderItems produces the plain-text rendering of items handed to the
// summarizer. Each entry carries its role, content type, and the phase
// from metadata when present.
func RenderItems(items []*types.ContentItem) string {
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(renderHeader(item))
		b.WriteString("\n")
		b.WriteString(item.Content)
	}
	return b.String()
}

func renderHeader(item *types.ContentItem) string {
	label := roleLabel(item.Role)
	if phase, ok := item.Metadata["phase"].(string); ok && phase != "" {
		return fmt.Sprintf("[%s / %s / phase: %s]", label, item.Type, phase)
	}
	return fmt.Sprintf("[%s / %s]", label, item.Type)
}

func roleLabel(role types.Role) string {
	switch role {
	case types.RoleAssistant:
		return "Assistant"
	case types.RoleSystem:
		return "System"
	default:
		return "User"
	}
}
