package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"ops-console-backend/internal/metrics"
)

// Tags is the invalidation front of a TagStore. A tag may depend on other
// tags; invalidating a tag also drops everything that depends on it.
type Tags struct {
	store TagStore
	log   *zap.Logger

	mu         sync.RWMutex
	dependents map[string][]string
}

// NewTags creates the tag registry over store.
func NewTags(store TagStore, log *zap.Logger) *Tags {
	return &Tags{
		store:      store,
		log:        log,
		dependents: make(map[string][]string),
	}
}

// Store returns the underlying tag store.
func (t *Tags) Store() TagStore { return t.store }

// DependOn registers tag as derived from each of sources.
func (t *Tags) DependOn(tag string, sources ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, src := range sources {
		t.dependents[src] = append(t.dependents[src], tag)
	}
}

// Expand returns tag and every tag transitively depending on it, sorted.
func (t *Tags) Expand(tag string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	seen := map[string]bool{tag: true}
	queue := []string{tag}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, dep := range t.dependents[cur] {
			if !seen[dep] {
				seen[dep] = true
				queue = append(queue, dep)
			}
		}
	}

	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Invalidate drops tag and its dependents, matching tags exactly. The store
// bumps their generations so in-flight loads are not saved.
func (t *Tags) Invalidate(ctx context.Context, tag string) error {
	tags := t.Expand(tag)
	if err := t.store.Delete(ctx, tags...); err != nil {
		return fmt.Errorf("invalidate %s: %w", tag, err)
	}
	for _, tg := range tags {
		metrics.CacheInvalidations.WithLabelValues(tg).Inc()
	}
	t.log.Debug("cache tags invalidated", zap.Strings("tags", tags))
	return nil
}
