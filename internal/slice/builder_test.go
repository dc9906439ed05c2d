package slice

import (
	"errors"
	"testing"

	"github.com/tetrane/rvnmemhistwriter/internal/chunk"
	"github.com/tetrane/rvnmemhistwriter/internal/errs"
)

func u64p(v uint64) *uint64 { return &v }

func TestInsertRejectsZeroSize(t *testing.T) {
	b := NewBuilder(Limits{})
	_, _, err := b.Insert(0, 10, 0)
	if !errors.Is(err, errs.ErrInvalidSize) {
		t.Fatalf("err = %v, want ErrInvalidSize", err)
	}
}

func TestInsertRejectsAddressWrap(t *testing.T) {
	b := NewBuilder(Limits{})
	if _, _, err := b.Insert(0, ^uint64(0), 1); err != nil {
		t.Fatalf("(MAX,1) should be accepted, got %v", err)
	}
	b2 := NewBuilder(Limits{})
	if _, _, err := b2.Insert(0, ^uint64(0)-2, 3); err != nil {
		t.Fatalf("(MAX-2,3) should be accepted, got %v", err)
	}
	b3 := NewBuilder(Limits{})
	_, _, err := b3.Insert(0, ^uint64(0)-2, 4)
	if !errors.Is(err, errs.ErrAddressWrap) {
		t.Fatalf("(MAX-2,4) err = %v, want ErrAddressWrap", err)
	}
}

func TestInsertRejectsBackwardTransition(t *testing.T) {
	b := NewBuilder(Limits{})
	if _, _, err := b.Insert(1, 1, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := b.Insert(1, 1, 1); err != nil {
		t.Fatalf("unexpected error on same-transition insert: %v", err)
	}
	_, _, err := b.Insert(0, 1, 1)
	if !errors.Is(err, errs.ErrBackwardTransition) {
		t.Fatalf("err = %v, want ErrBackwardTransition", err)
	}
}

func TestAccessCountLimitLatchesOnSharedTransition(t *testing.T) {
	b := NewBuilder(Limits{AccessCountLimit: u64p(2)})
	if _, ok, err := b.Insert(0, 10, 1); err != nil || !ok {
		t.Fatalf("insert 1 failed: ok=%v err=%v", ok, err)
	}
	if _, ok, err := b.Insert(1, 20, 1); err != nil || !ok {
		t.Fatalf("insert 2 failed: ok=%v err=%v", ok, err)
	}
	// access_count == limit now; a new transition is refused.
	if _, ok, err := b.Insert(2, 30, 1); err != nil || ok {
		t.Fatalf("insert 3 on new transition should be refused, got ok=%v err=%v", ok, err)
	}
	// but a third access sharing transition 1 is still accepted.
	if _, ok, err := b.Insert(1, 40, 1); err != nil || !ok {
		t.Fatalf("insert on shared transition should be accepted, got ok=%v err=%v", ok, err)
	}
	// the latch has now tripped; any later transition is refused.
	if _, ok, err := b.Insert(2, 50, 1); err != nil || ok {
		t.Fatalf("insert after latch should be refused, got ok=%v err=%v", ok, err)
	}
}

func TestOverlapLimitLatch(t *testing.T) {
	b := NewBuilder(Limits{ChunkSizeOverlapLimit: u64p(2)})
	mustInsert(t, b, 1, 10, 10)  // chunk [10,19], 1 access
	mustInsert(t, b, 2, 15, 10)  // merges with above -> chunk now has 2 accesses
	mustInsert(t, b, 2, 20, 10)  // same transition, accepted regardless
	mustInsert(t, b, 2, 25, 10)  // same transition, accepted regardless
	mustInsert(t, b, 2, 50, 10)  // same transition, distinct chunk, accepted
	if _, ok, err := b.Insert(3, 250, 10); err != nil || ok {
		t.Fatalf("new transition after latch should be refused, got ok=%v err=%v", ok, err)
	}
}

func TestTouchMergeLimit(t *testing.T) {
	b := NewBuilder(Limits{ChunkSizeTouchLimit: u64p(2)})
	mustInsert(t, b, 0, 0, 10)  // [0,9]
	mustInsert(t, b, 1, 10, 10) // [10,19], only touches [0,9] -- Insert never merges touching chunks
	mustInsert(t, b, 2, 20, 10) // [20,29], only touches [10,19]

	if got := b.ChunkCount(); got != 3 {
		t.Fatalf("chunk count before build = %d, want 3 (Insert merges on overlap only, not on touch)", got)
	}

	s := b.Build()
	if got := s.ChunkCount(); got != 2 {
		t.Fatalf("chunk count after build = %d, want 2: [0,19] merges (count 2 <= limit), [20,29] stays separate (count 3 > limit)", got)
	}
}

func TestTransitionLimitIsHard(t *testing.T) {
	b := NewBuilder(Limits{TransitionLimit: u64p(2)})
	mustInsert(t, b, 10, 0, 1)
	mustInsert(t, b, 11, 10, 1) // span now 2, within limit
	if _, ok, err := b.Insert(12, 20, 1); err != nil || ok {
		t.Fatalf("transition span 3 > limit 2 should be refused, got ok=%v err=%v", ok, err)
	}
}

func TestBuildProducesNonOverlappingChunks(t *testing.T) {
	b := NewBuilder(Limits{})
	mustInsert(t, b, 0, 10, 10)
	mustInsert(t, b, 1, 1000, 5)
	mustInsert(t, b, 2, 100, 10)
	s := b.Build()
	if s.ChunkCount() != 3 {
		t.Fatalf("chunk count = %d, want 3", s.ChunkCount())
	}

	var firsts []uint64
	var prevLast uint64
	first := true
	s.Chunks(func(addressFirst uint64, c chunk.Chunk) {
		firsts = append(firsts, addressFirst)
		if !first && c.AddressFirst <= prevLast {
			t.Fatalf("chunks out of order or overlapping: prevLast=%d addressFirst=%d", prevLast, c.AddressFirst)
		}
		prevLast = c.AddressLast
		first = false
	})
	want := []uint64{10, 100, 1000}
	if len(firsts) != len(want) {
		t.Fatalf("firsts = %v, want %v", firsts, want)
	}
	for i := range want {
		if firsts[i] != want[i] {
			t.Fatalf("firsts = %v, want %v", firsts, want)
		}
	}
}

func TestBuildIsIdempotentAcrossFreshBuilders(t *testing.T) {
	inserts := [][3]uint64{
		{0, 10, 10},
		{1, 20, 10},
		{2, 500, 5},
		{3, 5, 5},
	}

	b1 := NewBuilder(Limits{})
	for _, in := range inserts {
		mustInsert(t, b1, in[0], in[1], uint32(in[2]))
	}
	s1 := b1.Build()

	b2 := NewBuilder(Limits{})
	for _, in := range inserts {
		mustInsert(t, b2, in[0], in[1], uint32(in[2]))
	}
	s2 := b2.Build()

	if s1.ChunkCount() != s2.ChunkCount() {
		t.Fatalf("chunk count differs across rebuilds: %d vs %d", s1.ChunkCount(), s2.ChunkCount())
	}

	var firstBounds, secondBounds [][2]uint64
	s1.Chunks(func(_ uint64, c chunk.Chunk) { firstBounds = append(firstBounds, [2]uint64{c.AddressFirst, c.AddressLast}) })
	s2.Chunks(func(_ uint64, c chunk.Chunk) { secondBounds = append(secondBounds, [2]uint64{c.AddressFirst, c.AddressLast}) })
	if len(firstBounds) != len(secondBounds) {
		t.Fatalf("bounds length differs: %v vs %v", firstBounds, secondBounds)
	}
	for i := range firstBounds {
		if firstBounds[i] != secondBounds[i] {
			t.Fatalf("bounding boxes differ at chunk %d: %v vs %v", i, firstBounds[i], secondBounds[i])
		}
	}
}

func mustInsert(t *testing.T, b *Builder, icount, address uint64, size uint32) {
	t.Helper()
	if _, ok, err := b.Insert(icount, address, size); err != nil || !ok {
		t.Fatalf("Insert(%d,%d,%d) failed: ok=%v err=%v", icount, address, size, ok, err)
	}
}
