package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/catalog/catalog-go/internal/metrics"
)

// Lookup holds what GetOrCompute needs besides the key and the compute function.
// A Lookup with a nil store always computes.
type Lookup struct {
	store   Store
	timeout time.Duration
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewLookup creates a Lookup. store may be nil to disable caching.
func NewLookup(store Store, timeout time.Duration, m metrics.Recorder, logger *slog.Logger) *Lookup {
	if m == nil {
		m = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Lookup{store: store, timeout: timeout, metrics: m, logger: logger}
}

// GetOrCompute returns the cached value for key, or calls compute and caches its result for ttl.
//
// Cache failures never reach the caller. When the store cannot be read the value is computed
// and not written back. Entries that fail to decode are recomputed and overwritten.
// Errors from compute are returned as is and nothing is cached.
func GetOrCompute[T any](ctx context.Context, l *Lookup, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	if l == nil || l.store == nil {
		return compute(ctx)
	}

	writeBack := true
	raw, err := l.get(ctx, key)
	switch {
	case err == nil:
		var cached T
		decodeErr := json.Unmarshal(raw, &cached)
		if decodeErr == nil {
			l.metrics.RecordCacheHit(key)
			return cached, nil
		}
		l.logger.Warn("discarding undecodable cache entry", "key", key, "error", decodeErr)
		l.metrics.RecordCacheMiss(key)
	case errors.Is(err, ErrMiss):
		l.metrics.RecordCacheMiss(key)
	default:
		writeBack = false
		l.metrics.RecordCacheError(key, "get")
		l.logger.Warn("cache read failed, computing value", "key", key, "error", err)
	}

	value, err := compute(ctx)
	if err != nil {
		return value, err
	}

	if writeBack {
		l.set(ctx, key, value, ttl)
	}

	return value, nil
}

func (l *Lookup) get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()
	return l.store.Get(ctx, key)
}

func (l *Lookup) set(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		l.metrics.RecordCacheError(key, "encode")
		l.logger.Warn("cache value not encodable", "key", key, "error", err)
		return
	}

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()
	if err := l.store.Set(ctx, key, raw, ttl); err != nil {
		l.metrics.RecordCacheError(key, "set")
		l.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

func (l *Lookup) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.timeout)
}
