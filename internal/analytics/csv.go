package analytics

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/goodtune/pqoptimizer/internal/usage"
)

// ExportFilename returns the download name for a CSV export generated at t.
func ExportFilename(t time.Time) string {
	return fmt.Sprintf("pq-analytics-%s.csv", t.Format("2006-01-02"))
}

// WriteCSV writes the analytics export: title rows, summary rows, one row per
// pattern, one row per source and one row per trailing day.
func WriteCSV(w io.Writer, generated time.Time, summary Summary, adv AdvancedAnalytics, patterns usage.PatternCounts) error {
	cw := csv.NewWriter(w)
	itoa := strconv.Itoa

	records := [][]string{
		{"Power Query Optimizer Analytics"},
		{"Generated", generated.Format(time.RFC3339)},
		{},
		{"Metric", "Value"},
		{"Total Optimizations", itoa(summary.TotalOptimizations)},
		{"Optimizations Today", itoa(summary.TodayCount)},
		{"Total Steps Reduced", itoa(summary.TotalStepsReduced)},
		{"Average Steps Reduced", itoa(adv.AvgStepsReduced)},
		{"Estimated Hours Saved", itoa(adv.HoursSaved)},
		{},
		{"Pattern", "Count"},
	}
	for _, name := range patterns.Names() {
		records = append(records, []string{name, itoa(patterns.Get(name))})
	}

	records = append(records, []string{}, []string{"Source", "Count", "Percentage", "Avg Steps Reduced", "Top Pattern"})
	for _, s := range adv.SourceBreakdown {
		records = append(records, []string{s.Source, itoa(s.Count), s.Percentage + "%", itoa(s.AvgStepsReduced), s.TopPattern})
	}

	records = append(records, []string{}, []string{"Date", "Optimizations", "Steps Reduced"})
	for _, d := range adv.Last7Days {
		records = append(records, []string{d.Date, itoa(d.Optimizations), itoa(d.StepsReduced)})
	}

	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write analytics csv: %w", err)
	}
	return nil
}
