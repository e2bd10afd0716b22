package nonce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestNextFollowsClock(t *testing.T) {
	t.Parallel()
	ms := int64(1700000000000)
	s := New(func() time.Time { ms += 5; return time.UnixMilli(ms) })
	assert.Equal(t, int64(1700000000005), s.Next())
	assert.Equal(t, int64(1700000000010), s.Next())
}

func TestNextMonotonicWithinMillisecond(t *testing.T) {
	t.Parallel()
	s := New(fixedClock(1700000000000))
	assert.Equal(t, int64(1700000000000), s.Next())
	assert.Equal(t, int64(1700000000001), s.Next())
	assert.Equal(t, int64(1700000000002), s.Next())
}

func TestSeed(t *testing.T) {
	t.Parallel()
	s := New(fixedClock(1700000000000))
	s.Seed(1800000000000)
	assert.Equal(t, int64(1800000000001), s.Next())
	s.Seed(5)
	assert.Equal(t, int64(1800000000001), s.Last(), "Seed must never lower the floor")
}

func TestZeroValueUsable(t *testing.T) {
	t.Parallel()
	var s Source
	assert.Positive(t, s.Next())
}

func TestConcurrentUnique(t *testing.T) {
	t.Parallel()
	s := New(fixedClock(1700000000000))
	const workers, each = 8, 250
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[int64]struct{}, workers*each)
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range each {
				n := s.Next()
				mu.Lock()
				seen[n] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Len(t, seen, workers*each)
}
