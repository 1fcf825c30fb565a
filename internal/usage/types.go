package usage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Locale is the display environment a session was recorded from.
type Locale struct {
	Timezone string `json:"timezone"`
	Language string `json:"language"`
}

// Session is one recorded optimization. Sessions are never modified after creation.
type Session struct {
	ID           uuid.UUID `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	StepsReduced int       `json:"stepsReduced"`
	Patterns     []string  `json:"patterns"`
	Source       string    `json:"source"`
	Locale
}

// Store is the persisted usage record.
//
// TotalOptimizations always equals len(Sessions), and the pattern counters sum to the
// total number of pattern names across all sessions.
type Store struct {
	TotalOptimizations int           `json:"totalOptimizations"`
	Sessions           []Session     `json:"sessions"`
	Patterns           PatternCounts `json:"patterns"`
}

// NewStore returns a zeroed store.
func NewStore() *Store {
	return &Store{Sessions: []Session{}}
}

// TotalStepsReduced sums StepsReduced over every session.
func (s *Store) TotalStepsReduced() int {
	total := 0
	for _, session := range s.Sessions {
		total += session.StepsReduced
	}
	return total
}

// PatternCounts maps pattern names to occurrence counts and remembers the order in
// which names were first seen. The order survives a JSON round trip.
type PatternCounts struct {
	names  []string
	counts map[string]int
}

// Inc adds one occurrence of name.
func (p *PatternCounts) Inc(name string) {
	p.Add(name, 1)
}

// Add adds n occurrences of name, creating the entry at zero if new.
func (p *PatternCounts) Add(name string, n int) {
	if p.counts == nil {
		p.counts = make(map[string]int)
	}
	if _, ok := p.counts[name]; !ok {
		p.names = append(p.names, name)
	}
	p.counts[name] += n
}

// Get returns the count for name, zero when absent.
func (p PatternCounts) Get(name string) int {
	return p.counts[name]
}

// Len returns the number of distinct names.
func (p PatternCounts) Len() int {
	return len(p.names)
}

// Names returns the names in first-seen order.
func (p PatternCounts) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// Total sums every counter.
func (p PatternCounts) Total() int {
	total := 0
	for _, n := range p.counts {
		total += n
	}
	return total
}

// MarshalJSON encodes the counters as a JSON object in first-seen order.
func (p PatternCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range p.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		fmt.Fprintf(&buf, ":%d", p.counts[name])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the key order of the document.
func (p *PatternCounts) UnmarshalJSON(data []byte) error {
	*p = PatternCounts{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("patterns: expected object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("patterns: expected string key, got %v", tok)
		}
		var n int
		if err := dec.Decode(&n); err != nil {
			return fmt.Errorf("patterns: count for %q: %w", name, err)
		}
		if _, seen := p.counts[name]; seen {
			p.counts[name] = n
			continue
		}
		p.Add(name, n)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
