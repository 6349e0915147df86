package whitelist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func setOf(emails ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		m[e] = struct{}{}
	}
	return m
}

func TestCache_TTL(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	var loads atomic.Int32
	c := NewCache(func(context.Context) (map[string]struct{}, error) {
		loads.Add(1)
		return setOf("a@example.com"), nil
	}, 10*time.Minute, clock)

	_, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), c.FetchedAt())

	clock.Advance(9*time.Minute + 59*time.Second)
	_, err = c.Get(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, loads.Load(), "still fresh")

	clock.Advance(time.Second)
	_, err = c.Get(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, loads.Load(), "expired at exactly ttl")
}

func TestCache_FirstFailureIsAuthCheckFailed(t *testing.T) {
	c := NewCache(func(context.Context) (map[string]struct{}, error) {
		return nil, errors.New("db down")
	}, time.Minute, newFakeClock())

	_, err := c.Get(context.Background())
	require.Error(t, err)
	assert.True(t, IsAuthCheckFailed(err))
	assert.True(t, c.FetchedAt().IsZero())
}

func TestCache_ServesStaleOnFailure(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	var fail atomic.Bool
	c := NewCache(func(context.Context) (map[string]struct{}, error) {
		if fail.Load() {
			return nil, errors.New("db down")
		}
		return setOf("a@example.com"), nil
	}, time.Minute, clock)

	_, err := c.Get(ctx)
	require.NoError(t, err)
	fetched := c.FetchedAt()

	fail.Store(true)
	clock.Advance(2 * time.Minute)
	v, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Contains(t, v, "a@example.com")
	assert.Equal(t, fetched, c.FetchedAt(), "failed refresh must not move fetchedAt")

	fail.Store(false)
	_, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), c.FetchedAt())
}

func TestCache_InvalidateForcesReload(t *testing.T) {
	ctx := context.Background()
	var loads atomic.Int32
	c := NewCache(func(context.Context) (map[string]struct{}, error) {
		loads.Add(1)
		return setOf(), nil
	}, time.Hour, newFakeClock())

	_, _ = c.Get(ctx)
	_, _ = c.Get(ctx)
	assert.EqualValues(t, 1, loads.Load())

	c.Invalidate()
	_, _ = c.Get(ctx)
	assert.EqualValues(t, 2, loads.Load())
}

func TestCache_ConcurrentMissesShareOneLoad(t *testing.T) {
	var loads atomic.Int32
	release := make(chan struct{})
	c := NewCache(func(context.Context) (map[string]struct{}, error) {
		loads.Add(1)
		<-release
		return setOf("a@example.com"), nil
	}, time.Hour, newFakeClock())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Get(context.Background())
			assert.NoError(t, err)
			assert.Contains(t, v, "a@example.com")
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, loads.Load())
}

func TestCache_ApplyPatchesFallback(t *testing.T) {
	ctx := context.Background()
	var fail atomic.Bool
	var loads atomic.Int32
	c := NewCache(func(context.Context) (map[string]struct{}, error) {
		loads.Add(1)
		if fail.Load() {
			return nil, errors.New("down")
		}
		return setOf("a@example.com", "b@example.com"), nil
	}, time.Hour, newFakeClock())

	before, err := c.Get(ctx)
	require.NoError(t, err)

	c.Apply("b@example.com", false)
	c.Apply("c@example.com", true)
	fail.Store(true)
	v, err := c.Get(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, loads.Load(), "apply forces a reload")
	assert.Equal(t, setOf("a@example.com", "c@example.com"), v)
	assert.Equal(t, setOf("a@example.com", "b@example.com"), before, "returned maps are not mutated")
}

func TestCache_ApplyBeforeFirstLoad(t *testing.T) {
	c := NewCache(func(context.Context) (map[string]struct{}, error) {
		return nil, errors.New("down")
	}, time.Hour, newFakeClock())

	c.Apply("a@example.com", true)
	_, err := c.Get(context.Background())
	assert.True(t, IsAuthCheckFailed(err), "a single write is not a whole list")
}

func TestCache_RefreshIgnoresCallerCancel(t *testing.T) {
	var loadErr atomic.Value
	entered := make(chan struct{})
	release := make(chan struct{})
	c := NewCache(func(ctx context.Context) (map[string]struct{}, error) {
		close(entered)
		<-release
		loadErr.Store(fmt.Sprint(ctx.Err()))
		if _, ok := ctx.Deadline(); !ok {
			return nil, errors.New("no deadline")
		}
		return setOf("a@example.com"), ctx.Err()
	}, time.Hour, newFakeClock())

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Get(first)
		firstErr <- err
	}()
	<-entered

	second := make(chan error, 1)
	go func() {
		v, err := c.Get(context.Background())
		if err == nil && len(v) != 1 {
			err = errors.New("unexpected set")
		}
		second <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	close(release)

	require.NoError(t, <-second)
	require.NoError(t, <-firstErr)
	assert.Equal(t, "<nil>", loadErr.Load())
}
