package cli

import (
	"fmt"
	"strings"

	"spotfinder_go_backend/internal/models"
	"spotfinder_go_backend/internal/services"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"
)

// paletteColors maps services.SourcePalette names to terminal colours.
var paletteColors = map[string]lipgloss.Color{
	"blue":    lipgloss.Color("#3b82f6"),
	"rose":    lipgloss.Color("#f43f5e"),
	"amber":   lipgloss.Color("#f59e0b"),
	"teal":    lipgloss.Color("#14b8a6"),
	"violet":  lipgloss.Color("#8b5cf6"),
	"fuchsia": lipgloss.Color("#d946ef"),
	"indigo":  lipgloss.Color("#6366f1"),
	"orange":  lipgloss.Color("#f97316"),
}

var (
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f43f5e")).
			Bold(true)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Bold(true)

	suggestionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	mapsBadgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10b981")).
			Bold(true)
)

var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		log.Debug().Err(err).Msg("Markdown renderer unavailable, printing plain text")
	}
}

func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// chipColor picks the palette colour for a source's hostname.
func chipColor(uri string) lipgloss.Color {
	idx := services.PaletteIndex(services.Hostname(uri), len(services.SourcePalette))
	return paletteColors[services.SourcePalette[idx]]
}

func sourceChip(src services.SourceRef) string {
	style := lipgloss.NewStyle().
		Foreground(chipColor(src.URI)).
		Padding(0, 1)
	label := src.Title
	if label == "" {
		label = services.Hostname(src.URI)
	}
	if src.Kind == services.SourceMaps {
		return mapsBadgeStyle.Render("[map]") + style.Render(label)
	}
	return style.Render(label)
}

func renderChart(chart *models.ChartSpec) string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render(fmt.Sprintf("%s (%s chart)", chart.Title, chart.Type)))
	b.WriteString("\n")

	maxValue := 0.0
	for _, point := range chart.Data {
		if point.Value > maxValue {
			maxValue = point.Value
		}
	}
	for _, point := range chart.Data {
		width := 0
		if maxValue > 0 {
			width = int(point.Value / maxValue * 30)
		}
		fmt.Fprintf(&b, "  %-20s %s %g\n", point.Label, strings.Repeat("█", width), point.Value)
	}
	return b.String()
}

// renderMessage formats a model message for the terminal: answer, chart,
// sources and suggested follow-ups.
func renderMessage(msg models.Message) string {
	if msg.IsError {
		return errorStyle.Render(msg.Text) + "\n"
	}

	var b strings.Builder
	b.WriteString(renderMarkdown(msg.Text))

	if msg.ChartSpec != nil {
		b.WriteString("\n")
		b.WriteString(renderChart(msg.ChartSpec))
	}

	if sources := services.UniqueSources(msg.GroundingMetadata); len(sources) > 0 {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render("Sources"))
		b.WriteString("\n")
		chips := make([]string, 0, len(sources))
		for _, src := range sources {
			chips = append(chips, sourceChip(src))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, chips...))
		b.WriteString("\n")
	}

	if len(msg.RelatedQuestions) > 0 {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render("Related"))
		b.WriteString("\n")
		for _, q := range msg.RelatedQuestions {
			b.WriteString(suggestionStyle.Render("  → " + q))
			b.WriteString("\n")
		}
	}
	return b.String()
}
