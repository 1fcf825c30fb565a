package usage

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternCountsKeepFirstSeenOrder(t *testing.T) {
	var p PatternCounts
	p.Inc("Zeta")
	p.Inc("Alpha")
	p.Inc("Zeta")
	p.Add("Mid", 3)

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, `{"Zeta":2,"Alpha":1,"Mid":3}`, string(data))

	var decoded PatternCounts
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []string{"Zeta", "Alpha", "Mid"}, decoded.Names())
	assert.Equal(t, 2, decoded.Get("Zeta"))
	assert.Equal(t, 6, decoded.Total())
}

func TestPatternCountsEmpty(t *testing.T) {
	var p PatternCounts

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))

	require.NoError(t, json.Unmarshal([]byte(`null`), &p))
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, 0, p.Get("missing"))
}

func TestPatternCountsRejectsNonObject(t *testing.T) {
	var p PatternCounts
	assert.Error(t, json.Unmarshal([]byte(`["A"]`), &p))
	assert.Error(t, json.Unmarshal([]byte(`{"A":"many"}`), &p))
}

func TestStoreJSONShape(t *testing.T) {
	s := NewStore()
	s.TotalOptimizations = 1
	s.Sessions = append(s.Sessions, Session{
		Timestamp:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		StepsReduced: 2,
		Patterns:     []string{"A"},
		Source:       "CSV",
		Locale:       Locale{Timezone: "UTC", Language: "en-US"},
	})
	s.Patterns.Inc("A")

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.EqualValues(t, 1, raw["totalOptimizations"])
	assert.Equal(t, map[string]any{"A": float64(1)}, raw["patterns"])

	session := raw["sessions"].([]any)[0].(map[string]any)
	assert.Equal(t, "UTC", session["timezone"])
	assert.Equal(t, "en-US", session["language"])
	assert.Equal(t, "2024-01-02T03:04:05Z", session["timestamp"])
}

func TestLanguageFromEnv(t *testing.T) {
	tests := map[string]string{
		"en_US.UTF-8": "en-US",
		"de_DE@euro":  "de-DE",
		"C":           "",
		"":            "",
		"fr":          "fr",
		"POSIX":       "",
	}
	for in, want := range tests {
		assert.Equal(t, want, languageFromEnv(in), in)
	}
}
