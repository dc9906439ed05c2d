// Package chunk implements the aggregation leaf of the slice builder: a
// maximal set of accesses sharing a contiguous physical-address range.
//
// Accesses are not individually heap-allocated and linked with pointers —
// a pointer-linked chain is a destructor hazard on long chains. Instead
// every access inserted by a single builder lives in that builder's Arena,
// a flat slice, and a Chunk only ever references Arena entries by index.
// The arena (and every handle into it) dies with the builder's in-progress
// Slice at flush, making handle invalidation explicit.
package chunk

import "github.com/tetrane/rvnmemhistwriter/internal/errs"

// Access is the per-access record persisted verbatim: transition, address,
// size. next is the arena index of the next access in insertion order
// within the owning chunk, or -1 if this is the tail.
type Access struct {
	Transition uint64
	Address    uint64
	Size       uint32
	next       int
}

// Arena owns the backing storage for every Access inserted by one builder.
// It is append-only; nothing is ever removed, only reindexed via the next
// links that chunks maintain.
type Arena struct {
	accesses []Access
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Len reports how many accesses have ever been appended to the arena.
func (a *Arena) Len() int {
	return len(a.accesses)
}

// push appends a fresh access and returns its stable arena index.
func (a *Arena) push(transition, address uint64, size uint32) int {
	a.accesses = append(a.accesses, Access{Transition: transition, Address: address, Size: size, next: -1})
	return len(a.accesses) - 1
}

// At returns a pointer to the access at idx. The pointer is valid only
// until the arena is discarded; it must not be retained past a flush.
func (a *Arena) At(idx int) *Access {
	return &a.accesses[idx]
}

// Walk iterates the insertion-ordered chain starting at head, calling fn for
// each access until the chain is exhausted.
func (a *Arena) Walk(head int, fn func(idx int, access *Access)) {
	for idx := head; idx != -1; {
		acc := &a.accesses[idx]
		fn(idx, acc)
		idx = acc.next
	}
}

// Chunk is a contiguous physical-address range plus the insertion-ordered
// list of accesses (held in the owning Arena) that make it up.
type Chunk struct {
	AddressFirst, AddressLast uint64
	head, tail                int
	count                     uint64
}

// New spawns a single-access chunk. The caller (the slice builder) is
// responsible for validating size and address-wrap before calling this;
// address-arithmetic overflow is deliberately not this package's concern.
func New(arena *Arena, transition, address uint64, size uint32) Chunk {
	idx := arena.push(transition, address, size)
	return Chunk{
		AddressFirst: address,
		AddressLast:  address + uint64(size) - 1,
		head:         idx,
		tail:         idx,
		count:        1,
	}
}

// Head returns the arena index of the first access in insertion order.
func (c Chunk) Head() int { return c.head }

// Count returns the number of accesses this chunk holds.
func (c Chunk) Count() uint64 { return c.count }

// Overlaps reports whether c and other's address ranges share a byte.
func (c Chunk) Overlaps(other Chunk) bool {
	return !(c.AddressLast+1 <= other.AddressFirst || other.AddressLast+1 <= c.AddressFirst)
}

// IsContiguous reports whether c and other touch but don't overlap:
// a.last+1 == b.first or b.last+1 == a.first. Overlapping chunks are never
// contiguous by this predicate.
func (c Chunk) IsContiguous(other Chunk) bool {
	return c.AddressLast+1 == other.AddressFirst || other.AddressLast+1 == c.AddressFirst
}

// MergeIn consumes other into c: the address range grows to cover both, the
// access counts sum, and other's access chain is spliced onto c's tail in
// O(1) by rewriting one next pointer in the arena.
//
// Both c's tail and other's tail must currently have no successor; this is
// an invariant maintained by the slice builder (a chunk's tail is only ever
// the record appended last). Violating it is a bug in the caller, not a
// recoverable error, so this panics via errs.Invariant.
func MergeIn(arena *Arena, c, other Chunk) Chunk {
	if arena.At(c.tail).next != -1 {
		errs.Invariant("merge_in: current chunk tail has a successor")
	}
	if arena.At(other.tail).next != -1 {
		errs.Invariant("merge_in: other chunk tail has a successor")
	}
	arena.At(c.tail).next = other.head

	merged := c
	if other.AddressFirst < merged.AddressFirst {
		merged.AddressFirst = other.AddressFirst
	}
	if other.AddressLast > merged.AddressLast {
		merged.AddressLast = other.AddressLast
	}
	merged.tail = other.tail
	merged.count += other.count
	return merged
}
