// Package display renders research results for the terminal.
package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/equityscribe/equityscribe/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	reportStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(1, 2).
			Width(100)

	buyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#10B981"))

	sellStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#EF4444"))

	holdStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F59E0B"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#EF4444"))
)

// ExtractRating pulls the headline verdict out of the final report.
// Keywords are checked in priority order, strongest first, so the CLI can
// show a colored one-word summary above the full memo. Matches inside
// longer words ("BUYBACK", "SHAREHOLDER") never count.
func ExtractRating(report string) string {
	upper := strings.ToUpper(report)
	for _, rating := range []string{"STRONG BUY", "BUY", "SELL", "HOLD", "NEUTRAL"} {
		if containsWord(upper, rating) {
			return rating
		}
	}
	return ""
}

// containsWord reports whether word occurs in s on word boundaries,
// scanning past embedded matches.
func containsWord(s, word string) bool {
	for offset := 0; ; {
		idx := strings.Index(s[offset:], word)
		if idx < 0 {
			return false
		}
		idx += offset
		end := idx + len(word)
		startOK := idx == 0 || !isWordChar(s[idx-1])
		endOK := end == len(s) || !isWordChar(s[end])
		if startOK && endOK {
			return true
		}
		offset = idx + 1
	}
}

func isWordChar(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func ratingStyle(rating string) lipgloss.Style {
	switch rating {
	case "BUY", "STRONG BUY":
		return buyStyle
	case "SELL":
		return sellStyle
	default:
		return holdStyle
	}
}

// RenderReport formats a completed research run for the terminal.
func RenderReport(state models.ResearchState) string {
	var out strings.Builder

	out.WriteString(titleStyle.Render("Investment Research Report"))
	out.WriteString("\n")
	out.WriteString(metaStyle.Render(fmt.Sprintf("Run %s | Style: %s | Tickers: %s",
		state.RunID, state.Style, tickersLine(state.Tickers))))
	out.WriteString("\n\n")

	if rating := ExtractRating(state.FinalReport); rating != "" {
		out.WriteString(headerStyle.Render("Verdict: "))
		out.WriteString(ratingStyle(rating).Render(rating))
		out.WriteString("\n\n")
	}

	out.WriteString(reportStyle.Render(models.OrDefault(state.FinalReport)))
	out.WriteString("\n")

	return out.String()
}

// RenderSections formats the intermediate analyses for verbose output.
func RenderSections(state models.ResearchState) string {
	sections := []struct {
		title string
		body  string
	}{
		{"Data Analysis", state.DataAnalysis},
		{"News Analysis", state.NewsAnalysis},
		{"Trend Analysis", state.TrendAnalysis},
		{"Pattern Analysis", state.PatternAnalysis},
		{"Indicator Analysis", state.IndicatorAnalysis},
		{"Technical Strategy", state.TechnicalStrategy},
		{"Risk Assessment", state.RiskAssessment},
	}

	var out strings.Builder
	for _, s := range sections {
		out.WriteString(headerStyle.Render("## " + s.title))
		out.WriteString("\n")
		out.WriteString(models.OrDefault(s.body))
		out.WriteString("\n\n")
	}
	return out.String()
}

// RenderError formats a run-level failure.
func RenderError(err error) string {
	return errorStyle.Render("Error: " + err.Error())
}

func tickersLine(tickers []string) string {
	if len(tickers) == 0 {
		return "(none)"
	}
	return strings.Join(tickers, ", ")
}
