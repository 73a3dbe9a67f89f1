package mps

import (
	"math"
	"sync"
)

// key identifies a memoized evaluation by the exact bits of its inputs
type key struct {
	lambda uint64
	rtol   uint64
	mtol   uint64
	flag   bool
}

func newKey(lambda float64, t tolerances) key {
	return key{
		lambda: math.Float64bits(lambda),
		rtol:   math.Float64bits(t.rtol),
		mtol:   math.Float64bits(t.mtol),
		flag:   t.pivot,
	}
}

// memo is an unbounded cache of a pure function of (lambda, tolerances).
// Failed evaluations are not stored. Values are copied on the way out so
// callers may modify them.
type memo[V any] struct {
	lock   sync.Mutex
	values map[key]V
	hits   int64
	misses int64
	clone  func(V) V
}

func newMemo[V any](clone func(V) V) *memo[V] {
	return &memo[V]{
		values: make(map[key]V),
		clone:  clone,
	}
}

func (m *memo[V]) get(k key, eval func() (V, error)) (V, error) {
	m.lock.Lock()
	v, ok := m.values[k]
	if ok {
		m.hits++
	} else {
		m.misses++
	}
	m.lock.Unlock()

	if ok {
		return m.clone(v), nil
	}

	// evaluated unlocked; concurrent misses on one key compute the same value
	v, err := eval()
	if err != nil {
		return v, err
	}

	m.lock.Lock()
	m.values[k] = v
	m.lock.Unlock()

	return m.clone(v), nil
}

func (m *memo[V]) stats() CacheStats {
	m.lock.Lock()
	defer m.lock.Unlock()

	return CacheStats{Hits: m.hits, Misses: m.misses, Entries: len(m.values)}
}

// CacheStats counts memoized evaluations
type CacheStats struct {
	Hits    int64
	Misses  int64
	Entries int
}

func (s CacheStats) add(o CacheStats) CacheStats {
	return CacheStats{
		Hits:    s.Hits + o.Hits,
		Misses:  s.Misses + o.Misses,
		Entries: s.Entries + o.Entries,
	}
}
