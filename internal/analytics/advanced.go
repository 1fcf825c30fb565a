package analytics

import (
	"sort"
	"strconv"
	"time"

	"github.com/goodtune/pqoptimizer/internal/source"
	"github.com/goodtune/pqoptimizer/internal/usage"
)

const (
	// TrailingDays is the length of the daily activity window.
	TrailingDays = 7

	// SecondsSavedPerStep is the fixed estimate of manual work avoided per removed step.
	SecondsSavedPerStep = 30

	// NoPattern is reported as the top pattern of a source with no recorded patterns.
	NoPattern = "N/A"
)

// DayBucket aggregates the sessions of one calendar day.
type DayBucket struct {
	Date          string `json:"date"`  // 2006-01-02
	Label         string `json:"label"` // Jan 2
	Optimizations int    `json:"optimizations"`
	StepsReduced  int    `json:"stepsReduced"`
}

// SourceBreakdown aggregates the sessions of one detected source.
type SourceBreakdown struct {
	Source          string `json:"source"`
	Count           int    `json:"count"`
	Percentage      string `json:"percentage"`
	AvgStepsReduced int    `json:"avgStepsReduced"`
	TopPattern      string `json:"topPattern"`
}

// AdvancedAnalytics holds the trend and breakdown figures.
type AdvancedAnalytics struct {
	Last7Days         []DayBucket       `json:"last7Days"`
	SourceBreakdown   []SourceBreakdown `json:"sourceBreakdown"`
	TotalSessions     int               `json:"totalSessions"`
	TotalStepsReduced int               `json:"totalStepsReduced"`
	AvgStepsReduced   int               `json:"avgStepsReduced"`
	HoursSaved        int               `json:"hoursSaved"`
}

// Advanced computes trend and breakdown figures for sessions as seen at now.
func Advanced(sessions []usage.Session, now time.Time) AdvancedAnalytics {
	total := 0
	for _, s := range sessions {
		total += s.StepsReduced
	}

	out := AdvancedAnalytics{
		Last7Days:         lastDays(sessions, now, TrailingDays),
		SourceBreakdown:   breakdown(sessions),
		TotalSessions:     len(sessions),
		TotalStepsReduced: total,
		HoursSaved:        round(float64(total*SecondsSavedPerStep) / 3600),
	}
	if len(sessions) > 0 {
		out.AvgStepsReduced = round(float64(total) / float64(len(sessions)))
	}
	return out
}

// lastDays buckets sessions into the n calendar days ending today, oldest first.
func lastDays(sessions []usage.Session, now time.Time, n int) []DayBucket {
	loc := now.Location()
	y, m, d := now.Date()

	buckets := make([]DayBucket, n)
	index := make(map[string]int, n)
	for i := 0; i < n; i++ {
		day := time.Date(y, m, d-(n-1-i), 0, 0, 0, 0, loc)
		key := day.Format("2006-01-02")
		buckets[i] = DayBucket{Date: key, Label: day.Format("Jan 2")}
		index[key] = i
	}

	for _, s := range sessions {
		i, ok := index[s.Timestamp.In(loc).Format("2006-01-02")]
		if !ok {
			continue
		}
		buckets[i].Optimizations++
		buckets[i].StepsReduced += s.StepsReduced
	}
	return buckets
}

type sourceGroup struct {
	label    string
	count    int
	steps    int
	patterns usage.PatternCounts
}

// breakdown groups sessions by source, largest group first. Equal counts keep
// first-seen order.
func breakdown(sessions []usage.Session) []SourceBreakdown {
	var groups []*sourceGroup
	byLabel := make(map[string]*sourceGroup)

	for _, s := range sessions {
		label := s.Source
		if label == "" {
			label = source.Unknown
		}
		g, ok := byLabel[label]
		if !ok {
			g = &sourceGroup{label: label}
			byLabel[label] = g
			groups = append(groups, g)
		}
		g.count++
		g.steps += s.StepsReduced
		for _, p := range s.Patterns {
			g.patterns.Inc(p)
		}
	}

	out := make([]SourceBreakdown, 0, len(groups))
	for _, g := range groups {
		out = append(out, SourceBreakdown{
			Source:          g.label,
			Count:           g.count,
			Percentage:      percentage(g.count, len(sessions)),
			AvgStepsReduced: round(float64(g.steps) / float64(g.count)),
			TopPattern:      mostFrequent(g.patterns),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

func percentage(count, total int) string {
	if total == 0 {
		return "0"
	}
	return strconv.Itoa(round(float64(count) / float64(total) * 100))
}

// mostFrequent returns the highest-count pattern, the earliest on ties.
func mostFrequent(counts usage.PatternCounts) string {
	best, bestCount := NoPattern, 0
	for _, name := range counts.Names() {
		if n := counts.Get(name); n > bestCount {
			best, bestCount = name, n
		}
	}
	return best
}
