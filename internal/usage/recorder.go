package usage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/goodtune/pqoptimizer/internal/metrics"
	"github.com/goodtune/pqoptimizer/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultKey is the namespaced storage key holding the usage store.
const DefaultKey = "pq-optimizer-usage"

// Recorder loads, appends to and clears the persisted usage store.
type Recorder struct {
	store  storage.KVStore
	key    string
	clock  Clock
	locale LocaleProvider
	logger zerolog.Logger
	mu     sync.Mutex
}

// Config holds recorder configuration
type Config struct {
	Key    string
	Clock  Clock
	Locale LocaleProvider
}

// NewRecorder creates a recorder persisting under config.Key in store.
func NewRecorder(store storage.KVStore, config Config, logger zerolog.Logger) *Recorder {
	if config.Key == "" {
		config.Key = DefaultKey
	}
	if config.Clock == nil {
		config.Clock = RealClock{}
	}
	if config.Locale == nil {
		config.Locale = NewEnvLocale(nil, "")
	}

	return &Recorder{
		store:  store,
		key:    config.Key,
		clock:  config.Clock,
		locale: config.Locale,
		logger: logger.With().Str("component", "usage-recorder").Logger(),
	}
}

// Load returns the persisted store. An absent or unparseable record yields a zeroed
// store; only backend failures are returned as errors.
func (r *Recorder) Load(ctx context.Context) (*Store, error) {
	data, err := r.store.Get(ctx, r.key)
	if errors.Is(err, storage.ErrNotFound) {
		return NewStore(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read usage store: %w", err)
	}

	var s Store
	if err := json.Unmarshal(data, &s); err != nil {
		r.logger.Warn().Err(err).Str("key", r.key).Msg("Discarding unparseable usage store")
		return NewStore(), nil
	}
	if s.Sessions == nil {
		s.Sessions = []Session{}
	}
	return &s, nil
}

// Record appends a session and bumps the counters. Calling it twice records two
// sessions. Negative stepsReduced is stored as zero.
func (r *Recorder) Record(ctx context.Context, stepsReduced int, patterns []string, source string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.Load(ctx)
	if err != nil {
		return Session{}, err
	}

	if stepsReduced < 0 {
		stepsReduced = 0
	}
	names := make([]string, len(patterns))
	copy(names, patterns)

	session := Session{
		ID:           uuid.New(),
		Timestamp:    r.clock.Now(),
		StepsReduced: stepsReduced,
		Patterns:     names,
		Source:       source,
		Locale:       r.locale.Locale(ctx),
	}

	s.TotalOptimizations++
	s.Sessions = append(s.Sessions, session)
	for _, name := range names {
		s.Patterns.Inc(name)
	}

	if err := r.save(ctx, s); err != nil {
		return Session{}, err
	}

	metrics.SessionsRecorded.WithLabelValues(source).Inc()
	metrics.StepsReduced.Add(float64(stepsReduced))

	r.logger.Debug().
		Str("session_id", session.ID.String()).
		Str("source", source).
		Int("steps_reduced", stepsReduced).
		Int("patterns", len(names)).
		Int("total", s.TotalOptimizations).
		Msg("Recorded usage session")

	return session, nil
}

// Reset deletes the persisted store.
func (r *Recorder) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Delete(ctx, r.key); err != nil {
		return fmt.Errorf("failed to reset usage store: %w", err)
	}

	metrics.UsageResets.Inc()
	r.logger.Info().Str("key", r.key).Msg("Usage store reset")
	return nil
}

func (r *Recorder) save(ctx context.Context, s *Store) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode usage store: %w", err)
	}
	if err := r.store.Put(ctx, r.key, data); err != nil {
		return fmt.Errorf("failed to write usage store: %w", err)
	}
	return nil
}
