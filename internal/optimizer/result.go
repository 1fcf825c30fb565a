package optimizer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Result is the optimization payload returned to clients.
type Result struct {
	OptimizedCode string        `json:"optimizedCode"`
	Improvements  []Improvement `json:"improvements"`
	Metrics       Metrics       `json:"metrics"`
	Warnings      []string      `json:"warnings"`
}

// StepsReduced returns how many query steps the optimization removed, never negative.
func (r *Result) StepsReduced() int {
	if d := r.Metrics.OriginalSteps - r.Metrics.OptimizedSteps; d > 0 {
		return d
	}
	return 0
}

// PatternNames returns the non-empty pattern names of the improvements, in order.
func (r *Result) PatternNames() []string {
	names := make([]string, 0, len(r.Improvements))
	for _, imp := range r.Improvements {
		if p := strings.TrimSpace(imp.Pattern); p != "" {
			names = append(names, p)
		}
	}
	return names
}

// Improvement describes one applied optimization pattern.
type Improvement struct {
	Pattern     string `json:"pattern"`
	Description string `json:"description"`
	Impact      string `json:"impact,omitempty"`
}

// UnmarshalJSON accepts either an object or a bare string, which is taken as the
// description.
func (i *Improvement) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*i = Improvement{Description: s}
		return nil
	}

	var raw struct {
		Pattern     flexString `json:"pattern"`
		Description flexString `json:"description"`
		Impact      flexString `json:"impact"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("improvement: %w", err)
	}
	*i = Improvement{
		Pattern:     string(raw.Pattern),
		Description: string(raw.Description),
		Impact:      string(raw.Impact),
	}
	return nil
}

// Metrics reports the step counts before and after optimization.
type Metrics struct {
	OriginalSteps      int    `json:"originalSteps"`
	OptimizedSteps     int    `json:"optimizedSteps"`
	Reduction          string `json:"reduction"`
	EstimatedSpeedGain string `json:"estimatedSpeedGain"`
}

// UnmarshalJSON tolerates numbers and strings in every field.
func (m *Metrics) UnmarshalJSON(data []byte) error {
	var raw struct {
		OriginalSteps      flexInt    `json:"originalSteps"`
		OptimizedSteps     flexInt    `json:"optimizedSteps"`
		Reduction          flexString `json:"reduction"`
		EstimatedSpeedGain flexString `json:"estimatedSpeedGain"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	*m = Metrics{
		OriginalSteps:      int(raw.OriginalSteps),
		OptimizedSteps:     int(raw.OptimizedSteps),
		Reduction:          string(raw.Reduction),
		EstimatedSpeedGain: string(raw.EstimatedSpeedGain),
	}
	return nil
}

// flexString decodes a JSON string, number or boolean as text.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if bytes.Equal(data, []byte("true")) || bytes.Equal(data, []byte("false")) {
		*f = flexString(data)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

// flexInt decodes a JSON number or numeric string, rounding fractions.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	text := strings.TrimSpace(string(s))
	if text == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("expected a step count, got %q", text)
	}
	*f = flexInt(math.Floor(v + 0.5))
	return nil
}
