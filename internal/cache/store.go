package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/go-redis/redis/v8"
	gocache "github.com/patrickmn/go-cache"
)

// TagStore persists encoded values under cache tags. Entries never expire;
// they only leave through Delete.
//
// Every tag carries a generation that Delete bumps. A reader notes the
// generation before loading and saves with SaveIf, so a load that overlapped
// an invalidation (in this process or another one sharing the store) is
// never stored.
type TagStore interface {
	Load(ctx context.Context, tag string) ([]byte, bool, error)
	Generation(ctx context.Context, tag string) (uint64, error)
	// SaveIf stores value only while tag is still at generation gen and
	// reports whether it did.
	SaveIf(ctx context.Context, tag string, gen uint64, value []byte) (bool, error)
	Delete(ctx context.Context, tags ...string) error
}

// MemoryStore is a process-wide TagStore backed by go-cache.
type MemoryStore struct {
	c *gocache.Cache

	mu   sync.Mutex
	gens map[string]uint64
}

// NewMemoryStore creates an in-process store without expiry or janitor.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		c:    gocache.New(gocache.NoExpiration, 0),
		gens: make(map[string]uint64),
	}
}

func (m *MemoryStore) Load(_ context.Context, tag string) ([]byte, bool, error) {
	v, ok := m.c.Get(tag)
	if !ok {
		return nil, false, nil
	}
	return v.([]byte), true, nil
}

func (m *MemoryStore) Generation(_ context.Context, tag string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gens[tag], nil
}

func (m *MemoryStore) SaveIf(_ context.Context, tag string, gen uint64, value []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gens[tag] != gen {
		return false, nil
	}
	m.c.Set(tag, value, gocache.NoExpiration)
	return true, nil
}

func (m *MemoryStore) Delete(_ context.Context, tags ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tag := range tags {
		m.gens[tag]++
		m.c.Delete(tag)
	}
	return nil
}

// RedisStore shares tags between console processes through Redis. The
// generation of a tag lives next to it under prefix+"gen:"+tag.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps an existing client. Keys are prefix+tag.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// saveIfScript sets KEYS[1] to ARGV[2] only when the generation in KEYS[2]
// equals ARGV[1]. A missing generation counts as 0.
var saveIfScript = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2])
return 1
`)

func (r *RedisStore) genKey(tag string) string { return r.prefix + "gen:" + tag }

func (r *RedisStore) Load(ctx context.Context, tag string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, r.prefix+tag).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (r *RedisStore) Generation(ctx context.Context, tag string) (uint64, error) {
	gen, err := r.client.Get(ctx, r.genKey(tag)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (r *RedisStore) SaveIf(ctx context.Context, tag string, gen uint64, value []byte) (bool, error) {
	keys := []string{r.prefix + tag, r.genKey(tag)}
	stored, err := saveIfScript.Run(ctx, r.client, keys, strconv.FormatUint(gen, 10), value).Int()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

// Delete bumps the generations and drops the values in one transaction.
func (r *RedisStore) Delete(ctx context.Context, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}
	keys := make([]string, len(tags))
	for i, tag := range tags {
		keys[i] = r.prefix + tag
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, tag := range tags {
			pipe.Incr(ctx, r.genKey(tag))
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	return err
}
