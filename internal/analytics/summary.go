// Package analytics derives dashboard figures from recorded usage sessions.
// Every function here is pure: inputs are never modified and time is passed in.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/goodtune/pqoptimizer/internal/usage"
)

const (
	// TopPatternLimit is the number of patterns reported by Summarize.
	TopPatternLimit = 5

	// RecentSessionLimit is the number of sessions reported by Summarize.
	RecentSessionLimit = 10
)

// PatternCount is a pattern name with its occurrence count.
type PatternCount struct {
	Pattern string `json:"pattern"`
	Count   int    `json:"count"`
}

// Summary holds the headline dashboard figures.
type Summary struct {
	TotalOptimizations int             `json:"totalOptimizations"`
	TodayCount         int             `json:"todayCount"`
	TotalStepsReduced  int             `json:"totalStepsReduced"`
	TopPatterns        []PatternCount  `json:"topPatterns"`
	RecentSessions     []usage.Session `json:"recentSessions"`
}

// Summarize computes the headline figures for store as seen at now. "Today" is the
// calendar day of now in now's location.
func Summarize(store *usage.Store, now time.Time) Summary {
	if store == nil {
		store = usage.NewStore()
	}

	summary := Summary{
		TotalOptimizations: len(store.Sessions),
		TotalStepsReduced:  store.TotalStepsReduced(),
		TopPatterns:        topPatterns(store.Patterns, TopPatternLimit),
		RecentSessions:     recentSessions(store.Sessions, RecentSessionLimit),
	}

	for _, s := range store.Sessions {
		if sameDay(s.Timestamp, now) {
			summary.TodayCount++
		}
	}

	return summary
}

// topPatterns returns the n most frequent patterns. Equal counts keep first-seen order.
func topPatterns(counts usage.PatternCounts, n int) []PatternCount {
	out := make([]PatternCount, 0, counts.Len())
	for _, name := range counts.Names() {
		out = append(out, PatternCount{Pattern: name, Count: counts.Get(name)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})

	if len(out) > n {
		out = out[:n]
	}
	return out
}

// recentSessions returns the last n sessions, newest first.
func recentSessions(sessions []usage.Session, n int) []usage.Session {
	start := len(sessions) - n
	if start < 0 {
		start = 0
	}

	out := make([]usage.Session, 0, len(sessions)-start)
	for i := len(sessions) - 1; i >= start; i-- {
		out = append(out, sessions[i])
	}
	return out
}

// sameDay reports whether t falls on the calendar day of ref in ref's location.
func sameDay(t, ref time.Time) bool {
	y1, m1, d1 := t.In(ref.Location()).Date()
	y2, m2, d2 := ref.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// round rounds halves upward, e.g. 2.5 -> 3 and -2.5 -> -2.
func round(x float64) int {
	return int(math.Floor(x + 0.5))
}
