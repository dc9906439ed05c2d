package slice

import (
	"github.com/tetrane/rvnmemhistwriter/internal/chunk"
	"github.com/tetrane/rvnmemhistwriter/internal/errs"
)

// overlapEntry pairs a chunk already fetched from orderedChunks with the
// address key it was stored under, so step 10 of Insert can erase and merge
// it without a second, key-based lookup orderedChunks doesn't support.
type overlapEntry struct {
	key   uint64
	chunk chunk.Chunk
}

// Limits holds the four optional knobs a Builder can be configured with.
// A nil pointer means "unset".
type Limits struct {
	ChunkSizeOverlapLimit *uint64
	ChunkSizeTouchLimit   *uint64
	TransitionLimit       *uint64
	AccessCountLimit      *uint64
}

// Builder accumulates accesses of a single operation, growing and merging
// chunks subject to Limits, and produces an immutable Slice via Build.
type Builder struct {
	limits Limits

	arena  *chunk.Arena
	chunks *orderedChunks

	transitionFirst uint64
	transitionLast  uint64

	accessCount          uint64
	stopAtNextTransition bool
}

// NewBuilder returns an empty builder configured with limits.
func NewBuilder(limits Limits) *Builder {
	return &Builder{
		limits: limits,
		arena:  chunk.NewArena(),
		chunks: newOrderedChunks(),
	}
}

// AccessCount returns the number of accesses inserted so far.
func (b *Builder) AccessCount() uint64 { return b.accessCount }

// ChunkCount returns the number of chunks built so far.
func (b *Builder) ChunkCount() int { return b.chunks.Len() }

func (b *Builder) empty() bool { return b.chunks.Empty() }

// Insert attempts to add one access to the slice under construction.
//
// Return shape distinguishes three outcomes:
//   - err != nil: a caller input error (invalid size, address wrap, backward
//     transition). No partial mutation happened.
//   - err == nil, accepted == false: a limit refusal. Not an error; the
//     writer is expected to flush and retry on a fresh builder.
//   - err == nil, accepted == true: idx is the arena index of the inserted
//     access, valid until this builder's Slice is discarded.
func (b *Builder) Insert(icount, address uint64, size uint32) (idx int, accepted bool, err error) {
	// 1. size == 0 is a caller error.
	if size == 0 {
		return 0, false, errs.ErrInvalidSize
	}

	// 2. terminal latch: once tripped, only accesses still on the last
	// accepted transition are allowed through.
	if b.stopAtNextTransition && icount > b.transitionLast {
		return 0, false, nil
	}

	// 3. access_count_limit is checked before the chunk lookup; a transition
	// already present in the slice is still accepted even past the limit, to
	// preserve the no-overlap-within-transition invariant.
	if b.limits.AccessCountLimit != nil && b.accessCount >= *b.limits.AccessCountLimit {
		if icount > b.transitionLast {
			return 0, false, nil
		}
		b.stopAtNextTransition = true
	}

	// 4. address + size - 1 must not wrap uint64.
	last := address + uint64(size) - 1
	if last < address {
		return 0, false, errs.ErrAddressWrap
	}

	// 5. transitions must never go backward within a live builder.
	wasEmpty := b.empty()
	if !wasEmpty && icount < b.transitionLast {
		return 0, false, errs.ErrBackwardTransition
	}

	// 6. transition_limit is a hard cap on the builder's transition span.
	if b.limits.TransitionLimit != nil && !wasEmpty && icount-b.transitionFirst+1 > *b.limits.TransitionLimit {
		return 0, false, nil
	}

	newChunk := chunk.New(b.arena, icount, address, size)
	totalCount := newChunk.Count()

	// 7. find the contiguous window of chunks overlapping the new one: probe
	// the predecessor of the upper-bound once, then walk forward while
	// overlap holds. Keep the chunk alongside its key: orderedChunks reads
	// chunks by position (at) and has no lookup by address, so step 10
	// merges these copies and erases each one by its address key.
	var overlapping []overlapEntry
	if !wasEmpty {
		upper := b.chunks.upperBound(address)
		if upper > 0 {
			prevKey, prevChunk := b.chunks.at(upper - 1)
			if prevChunk.Overlaps(newChunk) {
				overlapping = append(overlapping, overlapEntry{prevKey, prevChunk})
				totalCount += prevChunk.Count()
			}
		}
		for i := upper; i < b.chunks.Len(); i++ {
			key, c := b.chunks.at(i)
			if !c.Overlaps(newChunk) {
				break
			}
			overlapping = append(overlapping, overlapEntry{key, c})
			totalCount += c.Count()
		}
	}

	// 8. chunk_size_overlap_limit is a soft limit with the same
	// latch-on-same-transition escape as access_count_limit; the merge still
	// happens even when the latch trips.
	if b.limits.ChunkSizeOverlapLimit != nil && totalCount > *b.limits.ChunkSizeOverlapLimit {
		if icount > b.transitionLast {
			return 0, false, nil
		}
		b.stopAtNextTransition = true
	}

	// 9. the first access ever inserted anchors transition_first.
	if wasEmpty {
		b.transitionFirst = icount
	}

	// 10. merge every overlapping neighbor into the new chunk and commit.
	for _, o := range overlapping {
		newChunk = chunk.MergeIn(b.arena, newChunk, o.chunk)
		b.chunks.erase(o.key)
	}
	b.chunks.insert(newChunk.AddressFirst, newChunk)

	b.transitionLast = icount
	b.accessCount++

	return newChunk.Head(), true, nil
}

// Build runs the touch-merge pass and returns the frozen Slice, consuming
// this builder's map in the process. The builder's access counter resets to
// zero; its arena is handed to the returned Slice (it is not copied).
func (b *Builder) Build() *Slice {
	b.mergeContiguous()
	s := &Slice{
		arena:           b.arena,
		chunks:          b.chunks,
		transitionFirst: b.transitionFirst,
		transitionLast:  b.transitionLast,
	}
	b.accessCount = 0
	return s
}

// mergeContiguous walks chunks in address order and folds each pair of
// touching chunks into one, subject to chunk_size_touch_limit, reducing
// chunk count without violating the no-overlap invariant (contiguous chunks
// never overlap).
func (b *Builder) mergeContiguous() {
	if b.chunks.Empty() {
		return
	}
	currentKey, current := b.chunks.at(0)
	i := 1
	for i < b.chunks.Len() {
		nextKey, next := b.chunks.at(i)
		fits := b.limits.ChunkSizeTouchLimit == nil || current.Count()+next.Count() <= *b.limits.ChunkSizeTouchLimit
		if current.IsContiguous(next) && fits {
			merged := chunk.MergeIn(b.arena, current, next)
			b.chunks.erase(nextKey)
			// current's key (addressFirst) cannot have changed: IsContiguous
			// only merges a chunk with a strictly higher addressFirst into
			// it, so current.AddressFirst == currentKey still holds.
			b.chunks.insert(currentKey, merged)
			current = merged
			continue
		}
		currentKey, current = nextKey, next
		i++
	}
}
