package usage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goodtune/pqoptimizer/internal/storage"
	"github.com/goodtune/pqoptimizer/internal/storage/memory"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

type fixedLocale Locale

func (f fixedLocale) Locale(context.Context) Locale { return Locale(f) }

func newTestRecorder(t *testing.T) (*Recorder, *memory.Store, *FixedClock) {
	t.Helper()

	store, err := memory.Open(0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	clock := &FixedClock{CurrentTime: testStart}
	rec := NewRecorder(store, Config{
		Clock:  clock,
		Locale: fixedLocale{Timezone: "Europe/London", Language: "en-GB"},
	}, zerolog.Nop())
	return rec, store, clock
}

func TestLoadAbsentReturnsZeroedStore(t *testing.T) {
	rec, _, _ := newTestRecorder(t)

	s, err := rec.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, s.TotalOptimizations)
	assert.Empty(t, s.Sessions)
	assert.Equal(t, 0, s.Patterns.Len())
}

func TestLoadCorruptReturnsZeroedStore(t *testing.T) {
	rec, store, _ := newTestRecorder(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, DefaultKey, []byte("{not json")))

	s, err := rec.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, s.TotalOptimizations)
	assert.NotNil(t, s.Sessions)
}

func TestRecordScenario(t *testing.T) {
	rec, _, clock := newTestRecorder(t)
	ctx := context.Background()

	inputs := []struct {
		steps    int
		patterns []string
	}{
		{2, []string{"A", "B"}},
		{5, []string{"A"}},
		{0, nil},
	}
	for _, in := range inputs {
		_, err := rec.Record(ctx, in.steps, in.patterns, "Excel")
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}

	s, err := rec.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, s.TotalOptimizations)
	assert.Len(t, s.Sessions, 3)
	assert.Equal(t, 7, s.TotalStepsReduced())
	assert.Equal(t, 2, s.Patterns.Get("A"))
	assert.Equal(t, 1, s.Patterns.Get("B"))
	assert.Equal(t, []string{"A", "B"}, s.Patterns.Names())
	assert.Equal(t, 3, s.Patterns.Total())
}

func TestRecordStampsSession(t *testing.T) {
	rec, _, _ := newTestRecorder(t)

	session, err := rec.Record(context.Background(), 4, []string{"Query Folding"}, "SQL Server")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, session.ID)
	assert.True(t, session.Timestamp.Equal(testStart))
	assert.Equal(t, "SQL Server", session.Source)
	assert.Equal(t, "Europe/London", session.Timezone)
	assert.Equal(t, "en-GB", session.Language)
}

func TestRecordClampsNegativeSteps(t *testing.T) {
	rec, _, _ := newTestRecorder(t)

	session, err := rec.Record(context.Background(), -3, nil, "Other")
	require.NoError(t, err)
	assert.Equal(t, 0, session.StepsReduced)
}

func TestRecordDoesNotAliasCallerSlice(t *testing.T) {
	rec, _, _ := newTestRecorder(t)
	patterns := []string{"A"}

	session, err := rec.Record(context.Background(), 1, patterns, "CSV")
	require.NoError(t, err)

	patterns[0] = "mutated"
	assert.Equal(t, "A", session.Patterns[0])
}

func TestRecordIsNotIdempotent(t *testing.T) {
	rec, _, _ := newTestRecorder(t)
	ctx := context.Background()

	first, err := rec.Record(ctx, 1, []string{"A"}, "JSON")
	require.NoError(t, err)
	second, err := rec.Record(ctx, 1, []string{"A"}, "JSON")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)

	s, err := rec.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, s.TotalOptimizations)
	assert.Equal(t, 2, s.Patterns.Get("A"))
}

func TestRecordConcurrent(t *testing.T) {
	rec, _, _ := newTestRecorder(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := rec.Record(ctx, 1, []string{"A"}, "Web API")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	s, err := rec.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, s.TotalOptimizations)
	assert.Len(t, s.Sessions, 20)
	assert.Equal(t, 20, s.Patterns.Get("A"))
}

func TestReset(t *testing.T) {
	rec, store, _ := newTestRecorder(t)
	ctx := context.Background()

	_, err := rec.Record(ctx, 3, []string{"A"}, "OData")
	require.NoError(t, err)

	require.NoError(t, rec.Reset(ctx))

	_, err = store.Get(ctx, DefaultKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	s, err := rec.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, s.TotalOptimizations)

	// Resetting an empty store is fine.
	require.NoError(t, rec.Reset(ctx))
}

type failingStore struct{ err error }

func (f failingStore) Get(context.Context, string) ([]byte, error) { return nil, f.err }
func (f failingStore) Put(context.Context, string, []byte) error { return f.err }
func (f failingStore) Delete(context.Context, string) error { return f.err }
func (f failingStore) Close() error { return nil }

func TestBackendErrorsPropagate(t *testing.T) {
	boom := errors.New("disk on fire")
	rec := NewRecorder(failingStore{err: boom}, Config{}, zerolog.Nop())
	ctx := context.Background()

	_, err := rec.Load(ctx)
	assert.ErrorIs(t, err, boom)

	_, err = rec.Record(ctx, 1, nil, "CSV")
	assert.ErrorIs(t, err, boom)

	assert.ErrorIs(t, rec.Reset(ctx), boom)
}
