package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listing struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type countingRecorder struct {
	mu     sync.Mutex
	hits   int
	misses int
	errors map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{errors: map[string]int{}}
}

func (r *countingRecorder) RecordCacheHit(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits++
}

func (r *countingRecorder) RecordCacheMiss(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.misses++
}

func (r *countingRecorder) RecordCacheError(_ string, op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors[op]++
}

func (r *countingRecorder) RecordAuthFailure(string) {}
func (r *countingRecorder) RecordHTTPStatus(int)     {}

// failingStore fails every call with err.
type failingStore struct {
	err  error
	sets int
}

func (s *failingStore) Get(context.Context, string) ([]byte, error) { return nil, s.err }

func (s *failingStore) Set(context.Context, string, []byte, time.Duration) error {
	s.sets++
	return s.err
}

func newMiniredisStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return m, NewRedisStoreFromClient(client)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func countedCompute(calls *int, value []listing) func(context.Context) ([]listing, error) {
	return func(context.Context) ([]listing, error) {
		*calls++
		return value, nil
	}
}

func TestGetOrCompute_HitWithinTTL(t *testing.T) {
	ctx := context.Background()
	_, store := newMiniredisStore(t)
	rec := newCountingRecorder()
	l := NewLookup(store, time.Second, rec, quietLogger())

	want := []listing{{Name: "Widget", Price: 9.5}}
	calls := 0

	first, err := GetOrCompute(ctx, l, "all_products", time.Minute, countedCompute(&calls, want))
	require.NoError(t, err)
	second, err := GetOrCompute(ctx, l, "all_products", time.Minute, countedCompute(&calls, nil))
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, want, first)
	assert.Equal(t, want, second)
	assert.Equal(t, 1, rec.hits)
	assert.Equal(t, 1, rec.misses)
}

func TestGetOrCompute_RecomputesAfterTTL(t *testing.T) {
	ctx := context.Background()
	m, store := newMiniredisStore(t)
	l := NewLookup(store, time.Second, nil, quietLogger())

	calls := 0
	compute := countedCompute(&calls, []listing{{Name: "Widget"}})

	_, err := GetOrCompute(ctx, l, "all_products", 60*time.Second, compute)
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, m.TTL("all_products"))

	m.FastForward(61 * time.Second)

	_, err = GetOrCompute(ctx, l, "all_products", 60*time.Second, compute)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestGetOrCompute_UnreachableStoreStillReturnsValue(t *testing.T) {
	ctx := context.Background()
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr:        m.Addr(),
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })
	m.Close()

	rec := newCountingRecorder()
	l := NewLookup(NewRedisStoreFromClient(client), time.Second, rec, quietLogger())

	want := []listing{{Name: "Widget"}}
	calls := 0
	got, err := GetOrCompute(ctx, l, "all_products", time.Minute, countedCompute(&calls, want))

	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, rec.errors["get"])
}

func TestGetOrCompute_ReadFailureSkipsWrite(t *testing.T) {
	store := &failingStore{err: errors.New("connection refused")}
	l := NewLookup(store, time.Second, nil, quietLogger())

	calls := 0
	_, err := GetOrCompute(context.Background(), l, "k", time.Minute, countedCompute(&calls, []listing{}))

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Zero(t, store.sets)
}

func TestGetOrCompute_WriteFailureIsSwallowed(t *testing.T) {
	store := &missThenFailStore{}
	rec := newCountingRecorder()
	l := NewLookup(store, time.Second, rec, quietLogger())

	want := []listing{{Name: "Widget"}}
	calls := 0
	got, err := GetOrCompute(context.Background(), l, "k", time.Minute, countedCompute(&calls, want))

	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, rec.errors["set"])
}

type missThenFailStore struct{}

func (missThenFailStore) Get(context.Context, string) ([]byte, error) { return nil, ErrMiss }

func (missThenFailStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("read-only replica")
}

func TestGetOrCompute_ComputeErrorPropagates(t *testing.T) {
	ctx := context.Background()
	m, store := newMiniredisStore(t)
	l := NewLookup(store, time.Second, nil, quietLogger())

	storeDown := errors.New("store down")
	_, err := GetOrCompute(ctx, l, "all_products", time.Minute, func(context.Context) ([]listing, error) {
		return nil, storeDown
	})

	assert.ErrorIs(t, err, storeDown)
	assert.False(t, m.Exists("all_products"))
}

func TestGetOrCompute_CorruptEntryIsRecomputed(t *testing.T) {
	ctx := context.Background()
	m, store := newMiniredisStore(t)
	l := NewLookup(store, time.Second, nil, quietLogger())

	require.NoError(t, m.Set("all_products", "{not json"))

	want := []listing{{Name: "Widget", Price: 1}}
	calls := 0
	got, err := GetOrCompute(ctx, l, "all_products", time.Minute, countedCompute(&calls, want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, calls)

	stored, err := m.Get("all_products")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"Widget","price":1}]`, stored)
}

func TestGetOrCompute_NilStoreAlwaysComputes(t *testing.T) {
	l := NewLookup(nil, time.Second, nil, nil)

	calls := 0
	for range 3 {
		_, err := GetOrCompute(context.Background(), l, "k", time.Minute, countedCompute(&calls, nil))
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls)
}
