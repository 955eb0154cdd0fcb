package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/incidence-forecast/internal/incidence"
)

var _ incidence.ResultCache = (*MemoryStore)(nil)

func TestMemoryStore_GetAdd(t *testing.T) {
	var hits, misses int
	s := NewMemoryStore(4, time.Minute, func(hit bool) {
		if hit {
			hits++
		} else {
			misses++
		}
	})

	_, ok := s.Get("a")
	assert.False(t, ok)

	s.Add("a", incidence.Result{ID: "1"})
	r, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", r.ID)

	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
	assert.Equal(t, Stats{Hits: 1, Misses: 1, Size: 1}, s.Stats())
}

func TestMemoryStore_EvictsLeastRecentlyUsed(t *testing.T) {
	s := NewMemoryStore(2, time.Minute, nil)
	s.Add("a", incidence.Result{ID: "a"})
	s.Add("b", incidence.Result{ID: "b"})
	_, _ = s.Get("a")
	s.Add("c", incidence.Result{ID: "c"})

	_, ok := s.Get("b")
	assert.False(t, ok, "b was least recently used")
	_, ok = s.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, s.Len())
}

func TestMemoryStore_Expires(t *testing.T) {
	s := NewMemoryStore(2, 20*time.Millisecond, nil)
	s.Add("a", incidence.Result{ID: "a"})

	assert.Eventually(t, func() bool {
		_, ok := s.Get("a")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryStore_PurgeAndDefaults(t *testing.T) {
	s := NewMemoryStore(0, 0, nil)
	for i := range 10 {
		s.Add(fmt.Sprint(i), incidence.Result{})
	}
	assert.Equal(t, 10, s.Len())
	s.Purge()
	assert.Zero(t, s.Len())
}

func TestMemoryStore_Concurrent(t *testing.T) {
	s := NewMemoryStore(8, time.Minute, nil)
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprint(i % 4)
			s.Add(key, incidence.Result{ID: key})
			r, ok := s.Get(key)
			if ok {
				assert.Equal(t, key, r.ID)
			}
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, s.Len(), 8)
}
