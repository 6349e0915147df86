package whitelist

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollcall_whitelist_cache_hits_total",
		Help: "Authorized email lookups served from a fresh cache.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollcall_whitelist_cache_misses_total",
		Help: "Authorized email lookups that had to read the store.",
	})
	staleServedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollcall_whitelist_stale_served_total",
		Help: "Store reads that failed and fell back to the previous list.",
	})
)

// DefaultTTL: 10分
const DefaultTTL = 10 * time.Minute

// refreshTimeout bounds one shared store read. Waiters do not share the caller's deadline.
const refreshTimeout = 10 * time.Second

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// Loader reads the full authorized email set from the backing store.
type Loader func(ctx context.Context) (map[string]struct{}, error)

// Cache holds the last successful read ({value, fetchedAt}). A failed refresh
// keeps serving the previous value; only a failure with nothing cached is an error.
type Cache struct {
	load  Loader
	ttl   time.Duration
	clock Clock
	group singleflight.Group

	mu        sync.RWMutex
	value     map[string]struct{}
	fetchedAt time.Time
	gen       uint64 // Invalidate / Apply ごとに進める
	fresh     bool
}

func NewCache(load Loader, ttl time.Duration, clock Clock) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = realClock{}
	}
	return &Cache{load: load, ttl: ttl, clock: clock}
}

// Get returns the cached set while it is younger than the TTL, otherwise reloads it.
// The returned map must not be modified.
func (c *Cache) Get(ctx context.Context) (map[string]struct{}, error) {
	c.mu.RLock()
	if c.fresh && c.value != nil && c.clock.Now().Sub(c.fetchedAt) < c.ttl {
		v := c.value
		c.mu.RUnlock()
		cacheHitsTotal.Inc()
		return v, nil
	}
	gen := c.gen
	c.mu.RUnlock()
	cacheMissesTotal.Inc()

	// 同じ世代の再読み込みは1本にまとめる。最初の呼び出し元がキャンセルしても他は巻き込まない
	v, err, _ := c.group.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return c.refresh(rctx, gen)
	})
	if err == nil {
		return v.(map[string]struct{}), nil
	}

	c.mu.RLock()
	stale := c.value
	c.mu.RUnlock()
	if stale != nil {
		staleServedTotal.Inc()
		log.Printf("[WARN] whitelist: refresh failed, serving previous list: %v", err)
		return stale, nil
	}
	return nil, ErrAuthCheckFailed(err)
}

func (c *Cache) refresh(ctx context.Context, gen uint64) (map[string]struct{}, error) {
	set, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	if set == nil {
		set = map[string]struct{}{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	// 読み込み中に Invalidate / Apply された場合は書き込み前の結果なので保存しない
	if c.gen == gen {
		c.value = set
		c.fetchedAt = c.clock.Now()
		c.fresh = true
	}
	return set, nil
}

// Invalidate forces the next Get to read the store. The old value is kept as a
// fallback in case that read fails.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.gen++
	c.fresh = false
	c.mu.Unlock()
}

// Apply records a successful store write of email into the fallback copy and
// forces the next Get to read the store. A failed read after Apply therefore
// never serves the list as it was before this process's own write.
// With nothing cached yet there is no fallback to patch.
func (c *Cache) Apply(email string, present bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.fresh = false
	if c.value == nil {
		return
	}
	_, has := c.value[email]
	if has == present {
		return
	}
	// Get が返したマップは呼び出し側が持っているので複製してから変える
	next := make(map[string]struct{}, len(c.value)+1)
	for e := range c.value {
		next[e] = struct{}{}
	}
	if present {
		next[email] = struct{}{}
	} else {
		delete(next, email)
	}
	c.value = next
}

// FetchedAt reports when the cached value was last loaded (zero if never).
func (c *Cache) FetchedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt
}
