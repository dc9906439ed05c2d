// Package slice implements the Slice Builder: the engine that accumulates
// accesses of a single operation (read or write), growing and merging
// chunks subject to four configurable limits, and produces an immutable
// Slice on demand.
package slice

import (
	"github.com/tetrane/rvnmemhistwriter/internal/chunk"
)

// Slice is the frozen output of a Builder: an address-ordered collection of
// non-overlapping chunks plus the transition range they span, and the arena
// backing every chunk's access chain. The arena must outlive the Slice for
// as long as callers walk chunk access chains; both die together once the
// caller (the writer, at flush) is done with them.
type Slice struct {
	arena           *chunk.Arena
	chunks          *orderedChunks
	transitionFirst uint64
	transitionLast  uint64
}

// Empty reports whether the slice holds no chunks at all.
func (s *Slice) Empty() bool {
	return s.chunks == nil || s.chunks.Empty()
}

// TransitionFirst returns the lowest transition id observed in this slice.
// Only meaningful when !Empty().
func (s *Slice) TransitionFirst() uint64 { return s.transitionFirst }

// TransitionLast returns the highest transition id observed in this slice.
// Only meaningful when !Empty().
func (s *Slice) TransitionLast() uint64 { return s.transitionLast }

// Arena returns the access arena backing every chunk in this slice.
func (s *Slice) Arena() *chunk.Arena { return s.arena }

// ChunkCount returns the number of chunks currently held.
func (s *Slice) ChunkCount() int {
	if s.chunks == nil {
		return 0
	}
	return s.chunks.Len()
}

// AccessCount counts accesses across every chunk by summing each chunk's
// stored count; it visits every chunk once but does not walk access chains.
// It exists for tests and diagnostics, not hot paths.
func (s *Slice) AccessCount() uint64 {
	var total uint64
	if s.chunks == nil {
		return 0
	}
	s.chunks.ascending(func(_ uint64, c chunk.Chunk) {
		total += c.Count()
	})
	return total
}

// Chunks calls fn for every chunk in ascending address order, passing the
// chunk's addressFirst key (== c.AddressFirst) and the chunk itself.
func (s *Slice) Chunks(fn func(addressFirst uint64, c chunk.Chunk)) {
	if s.chunks == nil {
		return
	}
	s.chunks.ascending(fn)
}
