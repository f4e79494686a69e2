package cache

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"ops-console-backend/internal/metrics"
)

// Reader serves a zero-argument read through the tag cache. There is no
// expiry: a cached value stays until its tag is invalidated.
//
// Concurrent misses may each run load; the last one to finish wins the slot
// unless the tag was invalidated while it ran.
// Load failures are returned to the caller and never cached.
type Reader[T any] struct {
	tags *Tags
	tag  string
	load func(context.Context) (T, error)
	log  *zap.Logger
}

// NewReader wraps load behind tag.
func NewReader[T any](tags *Tags, tag string, load func(context.Context) (T, error), log *zap.Logger) *Reader[T] {
	return &Reader[T]{tags: tags, tag: tag, load: load, log: log}
}

// Tag returns the tag the reader is addressed by.
func (r *Reader[T]) Tag() string { return r.tag }

// Get returns the cached value or loads, stores and returns a fresh one.
func (r *Reader[T]) Get(ctx context.Context) (T, error) {
	var zero T

	raw, ok, err := r.tags.store.Load(ctx, r.tag)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues(r.tag, "error").Inc()
		r.log.Warn("cache load failed; reading through", zap.String("tag", r.tag), zap.Error(err))
	case ok:
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			metrics.CacheLookups.WithLabelValues(r.tag, "hit").Inc()
			return v, nil
		}
		r.log.Warn("cache entry undecodable; reloading", zap.String("tag", r.tag))
	}
	metrics.CacheLookups.WithLabelValues(r.tag, "miss").Inc()

	gen, genErr := r.tags.store.Generation(ctx, r.tag)
	v, err := r.load(ctx)
	if err != nil {
		return zero, err
	}
	if genErr != nil {
		r.log.Warn("cache generation unavailable; not storing", zap.String("tag", r.tag), zap.Error(genErr))
		return v, nil
	}

	encoded, err := json.Marshal(v)
	if err != nil {
		r.log.Warn("cache encode failed", zap.String("tag", r.tag), zap.Error(err))
		return v, nil
	}
	stored, err := r.tags.store.SaveIf(ctx, r.tag, gen, encoded)
	switch {
	case err != nil:
		r.log.Warn("cache save failed", zap.String("tag", r.tag), zap.Error(err))
	case !stored:
		r.log.Debug("cache invalidated during load; not storing", zap.String("tag", r.tag))
	default:
		r.log.Debug("cache filled", zap.String("tag", r.tag))
	}
	return v, nil
}
