// Package memo provides the insert-if-absent tables shared by concurrent analyses.
package memo

import (
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Stats counts lookups served from the table and lookups that had to compute.
type Stats struct {
	Hits   uint64
	Misses uint64
}

// HitRatio returns hits / (hits + misses), or 0 for an unused table.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Table maps keys to values that, once stored, never change. Racing writers
// converge on the first stored value; later writers get it back and drop theirs.
type Table[K ~string, V any] struct {
	mu     sync.RWMutex
	items  map[K]V
	group  singleflight.Group
	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewTable[K ~string, V any]() *Table[K, V] {
	return &Table[K, V]{items: make(map[K]V)}
}

// Get returns the stored value without touching the statistics.
func (t *Table[K, V]) Get(key K) (V, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.items[key]
	return v, ok
}

// LoadOrStore stores v unless key is present and returns the value now in the table.
// loaded is true when an earlier value won.
func (t *Table[K, V]) LoadOrStore(key K, v V) (actual V, loaded bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.items[key]; ok {
		return cur, true
	}
	t.items[key] = v
	return v, false
}

// Do returns the value for key, calling compute at most once per key even
// when several goroutines ask at the same time. Errors are not stored.
// cached is false only for the caller whose compute produced the value.
func (t *Table[K, V]) Do(key K, compute func() (V, error)) (v V, cached bool, err error) {
	if v, ok := t.Get(key); ok {
		t.hits.Add(1)
		return v, true, nil
	}
	led, computed := false, false
	res, err, _ := t.group.Do(string(key), func() (any, error) {
		led = true
		// another flight may have finished between Get and Do
		if v, ok := t.Get(key); ok {
			return v, nil
		}
		v, err := compute()
		if err != nil {
			return v, err
		}
		computed = true
		actual, _ := t.LoadOrStore(key, v)
		return actual, nil
	})
	fresh := led && (computed || err != nil)
	if fresh {
		t.misses.Add(1)
	} else if err == nil {
		t.hits.Add(1)
	}
	v, _ = res.(V)
	return v, !fresh && err == nil, err
}

// Len returns the number of stored keys.
func (t *Table[K, V]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

// Keys returns the stored keys in sorted order.
func (t *Table[K, V]) Keys() []K {
	t.mu.RLock()
	keys := make([]K, 0, len(t.items))
	for k := range t.items {
		keys = append(keys, k)
	}
	t.mu.RUnlock()
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (t *Table[K, V]) Stats() Stats {
	return Stats{Hits: t.hits.Load(), Misses: t.misses.Load()}
}
