package slice

import (
	"sort"

	"github.com/tetrane/rvnmemhistwriter/internal/chunk"
)

// orderedChunks is the address-keyed ordered map the overlap probe needs: a
// structure offering one logarithmic lookup plus predecessor and successor
// access. Built directly on the standard library's sort.Search rather than
// an ecosystem ordered-map/B-tree dependency — the one deliberately
// stdlib-only piece of the engine.
//
// keys is always kept sorted ascending; vals mirrors it by addressFirst.
type orderedChunks struct {
	keys []uint64
	vals map[uint64]chunk.Chunk
}

func newOrderedChunks() *orderedChunks {
	return &orderedChunks{vals: make(map[uint64]chunk.Chunk)}
}

func (m *orderedChunks) Len() int { return len(m.keys) }

func (m *orderedChunks) Empty() bool { return len(m.keys) == 0 }

// upperBound returns the index of the first key strictly greater than key,
// or len(m.keys) if none. Equivalent to std::map::upper_bound.
func (m *orderedChunks) upperBound(key uint64) int {
	return sort.Search(len(m.keys), func(i int) bool { return m.keys[i] > key })
}

func (m *orderedChunks) at(i int) (uint64, chunk.Chunk) {
	k := m.keys[i]
	return k, m.vals[k]
}

// insert adds or overwrites the chunk keyed by its AddressFirst. The caller
// must ensure addressFirst doesn't already collide with an unrelated chunk;
// the builder only calls this after merging away every overlapping
// neighbor, so the invariant holds.
func (m *orderedChunks) insert(addressFirst uint64, c chunk.Chunk) {
	if _, exists := m.vals[addressFirst]; !exists {
		i := sort.Search(len(m.keys), func(i int) bool { return m.keys[i] >= addressFirst })
		m.keys = append(m.keys, 0)
		copy(m.keys[i+1:], m.keys[i:])
		m.keys[i] = addressFirst
	}
	m.vals[addressFirst] = c
}

// erase removes the chunk keyed by key, if present.
func (m *orderedChunks) erase(key uint64) {
	if _, exists := m.vals[key]; !exists {
		return
	}
	delete(m.vals, key)
	i := sort.Search(len(m.keys), func(i int) bool { return m.keys[i] >= key })
	if i < len(m.keys) && m.keys[i] == key {
		m.keys = append(m.keys[:i], m.keys[i+1:]...)
	}
}

// ascending calls fn for every chunk in ascending addressFirst order.
func (m *orderedChunks) ascending(fn func(key uint64, c chunk.Chunk)) {
	for _, k := range m.keys {
		fn(k, m.vals[k])
	}
}
