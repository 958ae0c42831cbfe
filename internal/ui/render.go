package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/penflow/penflow/internal/textpatch"
	"github.com/penflow/penflow/models"
)

// RenderDiff renders highlight spans as a single styled line: removed text
// struck through in red, added text in green.
func RenderDiff(spans []textpatch.Span) string {
	var sb strings.Builder
	for _, s := range spans {
		switch s.Kind {
		case textpatch.SpanRemoved:
			sb.WriteString(StyleDiffRemoved.Render(s.Text))
		case textpatch.SpanAdded:
			sb.WriteString(StyleDiffAdded.Render(s.Text))
		default:
			sb.WriteString(StyleDiffSame.Render(s.Text))
		}
	}
	return sb.String()
}

// PriorityBadge returns the priority tag styled by severity.
func PriorityBadge(p models.Priority) string {
	switch p {
	case models.PriorityHigh:
		return StylePriorityHigh.Render("HIGH")
	case models.PriorityLow:
		return StylePriorityLow.Render("low")
	default:
		return StylePriorityMedium.Render("med")
	}
}

// RenderSuggestion renders one suggestion as a boxed card: a header line
// with index, priority and category, the inline diff, and the reason.
// Applied suggestions are marked; anchor misses carry a manual-compare
// warning instead of the diff.
func RenderSuggestion(ordinal int, s models.Suggestion, applied, manualCompare bool) string {
	header := fmt.Sprintf("%s  %s  %s",
		StyleTitle.Render(fmt.Sprintf("#%d · ¶%d", ordinal, s.ParagraphIndex+1)),
		PriorityBadge(s.Priority),
		StyleSubtle.Render(s.Category))
	if applied {
		header += "  " + StylePrefixDone.Render("✓ applied")
	}

	var body string
	if manualCompare {
		body = StylePrefixWarn.Render("⚠ original text not found, compare manually") + "\n" +
			StyleSubtle.Render(s.SuggestedText)
	} else {
		body = RenderDiff(textpatch.Highlight(s.OriginalText, s.SuggestedText))
	}

	lines := []string{header, body}
	if s.Reason != "" {
		lines = append(lines, StyleSubtle.Render(s.Reason))
	}
	return StyleSuggestionBox.Render(strings.Join(lines, "\n"))
}

// RenderPreviewBanner renders the banner shown while an inline preview is
// installed in the document.
func RenderPreviewBanner(p models.InlinePreview) string {
	return StylePreviewBox.Render(
		StylePrefixDone.Render("preview") + " " + StyleText.Render(p.Label) + "\n" +
			StyleSubtle.Render("confirm to keep, revert to discard"))
}

// TracePrefix maps a trace kind to its styled one-glyph prefix.
func TracePrefix(kind models.ThinkingKind) string {
	switch kind {
	case models.ThinkingAction:
		return StylePrefixAction.Render("▸")
	case models.ThinkingObservation:
		return StylePrefixObservation.Render("◂")
	case models.ThinkingProgress:
		return StylePrefixDone.Render("·")
	case models.ThinkingError:
		return StylePrefixError.Render("✗")
	default:
		return StylePrefixThinking.Render("…")
	}
}

// RenderTraceLine renders one reasoning-trace entry as a single line.
func RenderTraceLine(ev models.ThinkingEvent) string {
	line := TracePrefix(ev.Kind) + " " + StyleText.Render(ev.Title)
	if ev.Body != "" {
		line += " " + StyleSubtle.Render(truncate(ev.Body, 80))
	}
	return line
}

// RenderStatusLine renders the session status with progress when known.
func RenderStatusLine(s models.Session) string {
	var style lipgloss.Style
	switch s.Status {
	case models.StatusRunning:
		style = StylePrimary
	case models.StatusCompleted:
		style = StyleSuccess
	case models.StatusError:
		style = StyleError
	case models.StatusPaused, models.StatusCancelled:
		style = StyleWarning
	default:
		style = StyleSubtle
	}
	line := style.Render(string(s.Status))
	if s.TotalUnits > 0 {
		line += StyleSubtle.Render(fmt.Sprintf("  %d/%d paragraphs", s.CurrentUnit, s.TotalUnits))
	}
	return line
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
