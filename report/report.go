// Package report renders session insights as Markdown and sanitized HTML.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/ctxforge/ctxbudget"
	"github.com/ctxforge/ctxbudget/compaction"
	"github.com/ctxforge/ctxbudget/types"
)

// Renderer renders insights reports. The zero value is not usable; use
// NewRenderer.
type Renderer struct {
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
}

// NewRenderer creates a Renderer with table support and a UGC sanitization
// policy for the HTML output.
func NewRenderer() *Renderer {
	return &Renderer{
		markdown: goldmark.New(goldmark.WithExtensions(extension.Table)),
		policy:   bluemonday.UGCPolicy(),
	}
}

// Markdown renders the insights as a Markdown document.
func (r *Renderer) Markdown(ins *ctxbudget.Insights) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Context Budget Report\n\n")
	fmt.Fprintf(&b, "Session `%s`, generated %s.\n\n", ins.SessionID, ins.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	fmt.Fprintf(&b, "## Usage\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Health | %s |\n", ins.Health)
	fmt.Fprintf(&b, "| Tokens | %d / %d (%.1f%%) |\n", ins.Usage.TotalTokens, ins.Usage.BudgetTokens, ins.Usage.ContextPercentage)
	fmt.Fprintf(&b, "| Items | %d |\n", ins.Usage.ItemCount)
	fmt.Fprintf(&b, "| Compactions | %d |\n", ins.Usage.CompactionCount)
	if ins.Usage.LastCompactionDelta > 0 {
		fmt.Fprintf(&b, "| Last compaction freed | %d tokens |\n", ins.Usage.LastCompactionDelta)
	}
	b.WriteString("\n")

	if ins.Halted {
		fmt.Fprintf(&b, "**Emergency stop:** %s\n\n", ins.HaltReason)
	}

	if len(ins.TokensByType) > 0 {
		fmt.Fprintf(&b, "## Tokens by Content Type\n\n")
		fmt.Fprintf(&b, "| Type | Tokens |\n|---|---|\n")

		keys := make([]string, 0, len(ins.TokensByType))
		for ct := range ins.TokensByType {
			keys = append(keys, string(ct))
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(&b, "| %s | %d |\n", key, ins.TokensByType[types.ContentType(key)])
		}
		b.WriteString("\n")
	}

	if len(ins.Outcomes) > 0 {
		fmt.Fprintf(&b, "## Compaction History\n\n")
		fmt.Fprintf(&b, "| # | Strategy | Before | After | Reduction | Note |\n|---|---|---|---|---|---|\n")
		for i, out := range ins.Outcomes {
			fmt.Fprintf(&b, "| %d | %s | %d | %d | %.1f%% | %s |\n",
				i+1, out.Strategy, out.BeforeTokens, out.AfterTokens,
				out.ReductionPct*100, outcomeNote(out))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// HTML renders the insights as sanitized HTML.
func (r *Renderer) HTML(ins *ctxbudget.Insights) (string, error) {
	md := r.Markdown(ins)

	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("rendering report: %w", err)
	}

	return r.policy.Sanitize(buf.String()), nil
}

func outcomeNote(out *compaction.Outcome) string {
	switch {
	case out.Ineffective:
		return "ineffective"
	case out.Reason != "":
		return out.Reason
	default:
		return "-"
	}
}
