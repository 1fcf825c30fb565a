package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/goodtune/pqoptimizer/internal/analytics"
)

var (
	colorPrimary = lipgloss.Color("#64b5f6")
	colorSuccess = lipgloss.Color("#66bb6a")
	colorMuted   = lipgloss.Color("#888888")
)

var (
	styleHeader = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	styleSuccess = lipgloss.NewStyle().
			Foreground(colorSuccess)

	styleMuted = lipgloss.NewStyle().
			Foreground(colorMuted)

	styleLabel = lipgloss.NewStyle().
			Width(24)

	styleValue = lipgloss.NewStyle().
			Bold(true).
			Width(12)
)

// table is a minimal column-aligned renderer.
type table struct {
	headers []string
	rows    [][]string
	widths  []int
}

func newTable(headers ...string) *table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	return &table{headers: headers, widths: widths}
}

func (t *table) addRow(values ...string) {
	row := make([]string, len(t.headers))
	for i := range t.headers {
		if i < len(values) {
			row[i] = values[i]
		}
		if len(row[i]) > t.widths[i] {
			t.widths[i] = len(row[i])
		}
	}
	t.rows = append(t.rows, row)
}

func (t *table) render() string {
	if len(t.headers) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, h := range t.headers {
		if i > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(styleHeader.Render(pad(h, t.widths[i])))
	}
	sb.WriteString("\n")

	for i, w := range t.widths {
		if i > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(styleMuted.Render(strings.Repeat("─", w)))
	}
	sb.WriteString("\n")

	for _, row := range t.rows {
		for i, cell := range row {
			if i > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(pad(cell, t.widths[i]))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func metricLine(w io.Writer, label string, value int) {
	fmt.Fprintln(w, styleLabel.Render(label)+styleValue.Render(strconv.Itoa(value)))
}

// renderStats writes a human-readable report of summary and adv.
func renderStats(w io.Writer, summary analytics.Summary, adv analytics.AdvancedAnalytics) {
	fmt.Fprintln(w, styleHeader.Render("Usage"))
	metricLine(w, "Total optimizations", summary.TotalOptimizations)
	metricLine(w, "Today", summary.TodayCount)
	metricLine(w, "Steps reduced", summary.TotalStepsReduced)
	metricLine(w, "Avg steps per session", adv.AvgStepsReduced)
	fmt.Fprintln(w, styleLabel.Render("Hours saved")+styleSuccess.Bold(true).Render(strconv.Itoa(adv.HoursSaved)))

	if len(summary.TopPatterns) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, styleHeader.Render("Top patterns"))
		t := newTable("PATTERN", "COUNT")
		for _, p := range summary.TopPatterns {
			t.addRow(p.Pattern, strconv.Itoa(p.Count))
		}
		fmt.Fprint(w, t.render())
	}

	if len(adv.SourceBreakdown) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, styleHeader.Render("Sources"))
		t := newTable("SOURCE", "SESSIONS", "SHARE", "AVG STEPS", "TOP PATTERN")
		for _, s := range adv.SourceBreakdown {
			t.addRow(s.Source, strconv.Itoa(s.Count), s.Percentage+"%", strconv.Itoa(s.AvgStepsReduced), s.TopPattern)
		}
		fmt.Fprint(w, t.render())
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, styleHeader.Render("Last 7 days"))
	t := newTable("DATE", "OPTIMIZATIONS", "STEPS REDUCED")
	for _, d := range adv.Last7Days {
		t.addRow(d.Label, strconv.Itoa(d.Optimizations), strconv.Itoa(d.StepsReduced))
	}
	fmt.Fprint(w, t.render())

	if len(summary.RecentSessions) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, styleHeader.Render("Recent sessions"))
		t := newTable("TIME", "SOURCE", "STEPS", "PATTERNS")
		for _, s := range summary.RecentSessions {
			t.addRow(
				s.Timestamp.Format("2006-01-02 15:04"),
				s.Source,
				strconv.Itoa(s.StepsReduced),
				strings.Join(s.Patterns, ", "),
			)
		}
		fmt.Fprint(w, t.render())
	}
}
