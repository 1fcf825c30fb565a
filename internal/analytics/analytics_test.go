package analytics

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"testing"
	"time"

	"github.com/goodtune/pqoptimizer/internal/storage/memory"
	"github.com/goodtune/pqoptimizer/internal/usage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)

func session(ts time.Time, steps int, source string, patterns ...string) usage.Session {
	return usage.Session{Timestamp: ts, StepsReduced: steps, Source: source, Patterns: patterns}
}

func storeOf(sessions ...usage.Session) *usage.Store {
	s := usage.NewStore()
	for _, sess := range sessions {
		s.TotalOptimizations++
		s.Sessions = append(s.Sessions, sess)
		for _, p := range sess.Patterns {
			s.Patterns.Inc(p)
		}
	}
	return s
}

func TestScenarioThreeSessions(t *testing.T) {
	store := storeOf(
		session(now.Add(-2*time.Hour), 2, "Excel", "A", "B"),
		session(now.Add(-time.Hour), 5, "Excel", "A"),
		session(now, 0, "CSV"),
	)

	summary := Summarize(store, now)
	assert.Equal(t, 3, summary.TotalOptimizations)
	assert.Equal(t, 7, summary.TotalStepsReduced)
	assert.Equal(t, []PatternCount{{"A", 2}, {"B", 1}}, summary.TopPatterns)

	adv := Advanced(store.Sessions, now)
	assert.Equal(t, 2, adv.AvgStepsReduced)
	assert.Equal(t, 0, adv.HoursSaved)
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(usage.NewStore(), now)

	assert.Equal(t, 0, summary.TotalOptimizations)
	assert.Equal(t, 0, summary.TodayCount)
	assert.Equal(t, 0, summary.TotalStepsReduced)
	assert.Empty(t, summary.TopPatterns)
	assert.Empty(t, summary.RecentSessions)

	assert.Equal(t, 0, Summarize(nil, now).TotalOptimizations)
}

func TestSummarizeTodayCount(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	localNow := time.Date(2024, 3, 15, 8, 0, 0, 0, loc)

	store := storeOf(
		// 2024-03-14 23:30 UTC is 2024-03-15 09:30 in UTC+10.
		session(time.Date(2024, 3, 14, 23, 30, 0, 0, time.UTC), 1, "CSV"),
		// 2024-03-14 13:00 UTC is 2024-03-14 23:00 in UTC+10.
		session(time.Date(2024, 3, 14, 13, 0, 0, 0, time.UTC), 1, "CSV"),
	)

	assert.Equal(t, 1, Summarize(store, localNow).TodayCount)
}

func TestSummarizeTopPatternsLimitAndTies(t *testing.T) {
	store := usage.NewStore()
	for _, name := range []string{"p1", "p2", "p3", "p4", "p5", "p6"} {
		store.Patterns.Inc(name)
	}
	store.Patterns.Add("p6", 2)
	store.Patterns.Add("p4", 2)

	top := Summarize(store, now).TopPatterns
	require.Len(t, top, TopPatternLimit)
	assert.Equal(t, []PatternCount{{"p4", 3}, {"p6", 3}, {"p1", 1}, {"p2", 1}, {"p3", 1}}, top)
}

func TestSummarizeRecentSessions(t *testing.T) {
	store := usage.NewStore()
	for i := 0; i < 12; i++ {
		store.Sessions = append(store.Sessions, session(now.Add(time.Duration(i)*time.Minute), i, "CSV"))
	}
	store.TotalOptimizations = len(store.Sessions)

	recent := Summarize(store, now).RecentSessions
	require.Len(t, recent, RecentSessionLimit)
	assert.Equal(t, 11, recent[0].StepsReduced)
	assert.Equal(t, 2, recent[9].StepsReduced)

	// The input is untouched.
	assert.Equal(t, 0, store.Sessions[0].StepsReduced)
}

func TestRecordThenSummarize(t *testing.T) {
	kv, err := memory.Open(0)
	require.NoError(t, err)
	defer kv.Close()

	rec := usage.NewRecorder(kv, usage.Config{Clock: &usage.FixedClock{CurrentTime: now}}, zerolog.Nop())
	ctx := context.Background()

	recorded, err := rec.Record(ctx, 4, []string{"Query Folding"}, "SQL Server")
	require.NoError(t, err)

	store, err := rec.Load(ctx)
	require.NoError(t, err)

	summary := Summarize(store, now)
	require.Len(t, summary.RecentSessions, 1)
	assert.Equal(t, recorded.ID, summary.RecentSessions[0].ID)
	assert.Equal(t, 1, summary.TodayCount)
}

func TestAdvancedEmpty(t *testing.T) {
	adv := Advanced(nil, now)

	require.Len(t, adv.Last7Days, 7)
	for _, b := range adv.Last7Days {
		assert.Zero(t, b.Optimizations)
		assert.Zero(t, b.StepsReduced)
	}
	assert.Empty(t, adv.SourceBreakdown)
	assert.Equal(t, 0, adv.AvgStepsReduced)
	assert.Equal(t, 0, adv.HoursSaved)
}

func TestAdvancedLast7Days(t *testing.T) {
	sessions := []usage.Session{
		session(now.AddDate(0, 0, -6), 3, "CSV"),
		session(now.AddDate(0, 0, -7), 9, "CSV"),
		session(now, 1, "CSV"),
		session(now.Add(-time.Hour), 2, "CSV"),
		session(now.AddDate(0, 0, 1), 5, "CSV"),
	}

	days := Advanced(sessions, now).Last7Days
	require.Len(t, days, 7)

	assert.Equal(t, "2024-03-09", days[0].Date)
	assert.Equal(t, "Mar 9", days[0].Label)
	assert.Equal(t, 1, days[0].Optimizations)
	assert.Equal(t, 3, days[0].StepsReduced)

	assert.Equal(t, "2024-03-15", days[6].Date)
	assert.Equal(t, 2, days[6].Optimizations)
	assert.Equal(t, 3, days[6].StepsReduced)

	counted := 0
	for _, d := range days {
		counted += d.Optimizations
	}
	assert.LessOrEqual(t, counted, len(sessions))
	assert.Equal(t, 3, counted)
}

func TestAdvancedLast7DaysAcrossMonth(t *testing.T) {
	days := Advanced(nil, time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)).Last7Days

	assert.Equal(t, "2024-02-25", days[0].Date)
	assert.Equal(t, "2024-02-29", days[4].Date)
	assert.Equal(t, "2024-03-02", days[6].Date)
}

func TestAdvancedSourceBreakdown(t *testing.T) {
	sessions := []usage.Session{
		session(now, 2, "Excel", "A", "B"),
		session(now, 4, "SQL Server", "C"),
		session(now, 3, "Excel", "B"),
		session(now, 1, "SQL Server"),
		session(now, 0, "Web API"),
		session(now, 6, "SQL Server", "C", "D"),
	}

	got := Advanced(sessions, now).SourceBreakdown
	require.Len(t, got, 3)

	assert.Equal(t, SourceBreakdown{Source: "SQL Server", Count: 3, Percentage: "50", AvgStepsReduced: 4, TopPattern: "C"}, got[0])
	assert.Equal(t, SourceBreakdown{Source: "Excel", Count: 2, Percentage: "33", AvgStepsReduced: 3, TopPattern: "B"}, got[1])
	assert.Equal(t, SourceBreakdown{Source: "Web API", Count: 1, Percentage: "17", AvgStepsReduced: 0, TopPattern: NoPattern}, got[2])

	sum := 0
	for _, b := range got {
		p, err := strconv.Atoi(b.Percentage)
		require.NoError(t, err)
		sum += p
	}
	assert.InDelta(t, 100, sum, float64(len(got)))
}

func TestAdvancedBreakdownTieKeepsFirstSeen(t *testing.T) {
	sessions := []usage.Session{
		session(now, 1, "OData", "X", "Y"),
		session(now, 1, "JSON", "Y", "X"),
	}

	got := Advanced(sessions, now).SourceBreakdown
	require.Len(t, got, 2)
	assert.Equal(t, "OData", got[0].Source)
	assert.Equal(t, "X", got[0].TopPattern)
	assert.Equal(t, "Y", got[1].TopPattern)
}

func TestAdvancedHoursSaved(t *testing.T) {
	// 180 steps * 30s = 1.5h, rounds up to 2.
	sessions := []usage.Session{session(now, 100, "CSV"), session(now, 80, "CSV")}

	adv := Advanced(sessions, now)
	assert.Equal(t, 2, adv.HoursSaved)
	assert.Equal(t, 90, adv.AvgStepsReduced)
	assert.Equal(t, 180, adv.TotalStepsReduced)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 3, round(2.5))
	assert.Equal(t, 2, round(2.49))
	assert.Equal(t, -2, round(-2.5))
	assert.Equal(t, 0, round(0))
}

func TestWriteCSV(t *testing.T) {
	store := storeOf(
		session(now, 2, "Excel", "Remove, then filter", "B"),
		session(now, 5, "Excel", "B"),
	)
	summary := Summarize(store, now)
	adv := Advanced(store.Sessions, now)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, now, summary, adv, store.Patterns))

	r := csv.NewReader(&buf)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)

	assert.Equal(t, []string{"Generated", "2024-03-15T14:00:00Z"}, records[1])
	assert.Contains(t, records, []string{"Total Optimizations", "2"})
	assert.Contains(t, records, []string{"Total Steps Reduced", "7"})
	assert.Contains(t, records, []string{"Remove, then filter", "1"})
	assert.Contains(t, records, []string{"B", "2"})
	assert.Contains(t, records, []string{"Excel", "2", "100%", "4", "B"})
	assert.Contains(t, records, []string{"2024-03-15", "2", "7"})

	section := map[string]int{}
	for i, rec := range records {
		if len(rec) > 0 {
			if _, seen := section[rec[0]]; !seen {
				section[rec[0]] = i
			}
		}
	}
	assert.Less(t, section["Pattern"], section["Source"], "sources follow patterns")
	assert.Less(t, section["Source"], section["Date"], "days follow sources")
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "pq-analytics-2024-03-15.csv", ExportFilename(now))
}
