package vault

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestHeap(t *testing.T, size int64) *persistentHeap {
	t.Helper()
	path := filepath.Join(t.TempDir(), "heap.bin")
	h, err := openPersistentHeap(path, size)
	if err != nil {
		t.Fatalf("openPersistentHeap: %v", err)
	}
	t.Cleanup(func() { h.close() })
	return h
}

// --------------------------------------------------------------------------
// Invariant checks, reused across scenarios
// --------------------------------------------------------------------------

// checkTiling walks both lists and verifies every byte of the file past
// the header belongs to exactly one block, with no gaps and no overlaps.
func checkTiling(t *testing.T, h *persistentHeap) {
	t.Helper()

	type span struct{ start, end uint64 }
	var spans []span

	freeHead, usedHead := h.header()
	for _, head := range []uint64{freeHead, usedHead} {
		for o := head; o != nullOffset; {
			b := h.block(o)
			spans = append(spans, span{o, o + blockHeaderSize + b.DataSize})
			o = b.Next
		}
	}

	for i := 0; i < len(spans); i++ {
		for j := i + 1; j < len(spans); j++ {
			if spans[i].start < spans[j].end && spans[j].start < spans[i].end {
				t.Fatalf("overlapping blocks: [%d,%d) and [%d,%d)", spans[i].start, spans[i].end, spans[j].start, spans[j].end)
			}
		}
	}

	total := uint64(0)
	for _, s := range spans {
		total += s.end - s.start
	}
	want := uint64(h.size) - heapHeaderSize
	if total != want {
		t.Fatalf("tiling invariant violated: blocks cover %d bytes, want %d", total, want)
	}
}

// checkListMembership verifies every block's Prev/Next pointers are
// mutually consistent within its own list.
func checkListMembership(t *testing.T, h *persistentHeap) {
	t.Helper()

	freeHead, usedHead := h.header()
	for _, head := range []uint64{freeHead, usedHead} {
		prev := uint64(nullOffset)
		for o := head; o != nullOffset; {
			b := h.block(o)
			if b.Prev != prev {
				t.Fatalf("block at %d has Prev=%d, want %d", o, b.Prev, prev)
			}
			prev = o
			o = b.Next
		}
	}
}

// checkFreeListOrdering verifies the free list is in strictly ascending
// offset order.
func checkFreeListOrdering(t *testing.T, h *persistentHeap) {
	t.Helper()

	freeHead, _ := h.header()
	prev := uint64(0)
	first := true
	for o := freeHead; o != nullOffset; {
		if !first && o <= prev {
			t.Fatalf("free list out of order: %d does not follow %d", o, prev)
		}
		first = false
		prev = o
		o = h.block(o).Next
	}
}

// checkCoalescingMaximality verifies no two free blocks are contiguous in
// the file (they would have to have been merged).
func checkCoalescingMaximality(t *testing.T, h *persistentHeap) {
	t.Helper()

	freeHead, _ := h.header()
	for o := freeHead; o != nullOffset; {
		b := h.block(o)
		next := b.Next
		if next != nullOffset && o+blockHeaderSize+b.DataSize == next {
			t.Fatalf("adjacent free blocks at %d and %d were not coalesced", o, next)
		}
		o = next
	}
}

func checkAllInvariants(t *testing.T, h *persistentHeap) {
	t.Helper()
	checkTiling(t, h)
	checkListMembership(t, h)
	checkFreeListOrdering(t, h)
	checkCoalescingMaximality(t, h)
}

// --------------------------------------------------------------------------
// Scenarios
// --------------------------------------------------------------------------

func TestFreshFillAndFree(t *testing.T) {
	h := newTestHeap(t, 4096)
	checkAllInvariants(t, h)

	var offsets []uint64
	for i := 0; i < 20; i++ {
		off, ok := h.allocate(32)
		if !ok {
			break
		}
		offsets = append(offsets, off)
		checkAllInvariants(t, h)
	}
	if len(offsets) == 0 {
		t.Fatal("expected at least one allocation to succeed")
	}

	// exhaustion: eventually the heap should refuse further allocations of
	// a size it can no longer satisfy
	_, ok := h.allocate(1 << 20)
	if ok {
		t.Fatal("expected allocation larger than the heap to fail")
	}

	for _, off := range offsets {
		h.deallocate(off)
		checkAllInvariants(t, h)
	}

	freeHead, usedHead := h.header()
	if usedHead != nullOffset {
		t.Fatal("expected used list to be empty after freeing everything")
	}
	if h.block(freeHead).Next != nullOffset {
		t.Fatal("expected a single coalesced free block spanning the heap")
	}
}

func TestSplitPolicy(t *testing.T) {
	t.Run("splits when remainder exceeds slack", func(t *testing.T) {
		h := newTestHeap(t, 4096)

		off, ok := h.allocate(16)
		if !ok {
			t.Fatal("allocate failed")
		}
		checkAllInvariants(t, h)

		// the initial free block spans nearly the whole file; allocating a
		// small amount from it should leave a large remainder, well past
		// the split slack threshold, so a new free block must appear.
		freeHead, _ := h.header()
		if freeHead == nullOffset {
			t.Fatal("expected a leftover free block after a small allocation")
		}

		_ = off
	})

	t.Run("does not split when remainder is within slack", func(t *testing.T) {
		h := newTestHeap(t, heapHeaderSize+blockHeaderSize+50)

		// the single free block has exactly 50 bytes of payload; requesting
		// all of it should leave nothing to split off.
		off, ok := h.allocate(50)
		if !ok {
			t.Fatal("allocate failed")
		}
		checkAllInvariants(t, h)

		freeHead, _ := h.header()
		if freeHead != nullOffset {
			t.Fatal("expected no leftover free block when the whole heap is allocated")
		}

		h.deallocate(off)
		checkAllInvariants(t, h)
	})

	t.Run("does not split when remainder is smaller than a header plus slack", func(t *testing.T) {
		// payload big enough for a 100 byte request plus a remainder of
		// exactly blockHeaderSize+splitSlack-1, one byte short of being
		// worth splitting off.
		remainder := uint64(blockHeaderSize + splitSlack - 1)
		payload := 100 + remainder
		h := newTestHeap(t, heapHeaderSize+blockHeaderSize+int64(payload))

		off, ok := h.allocate(100)
		if !ok {
			t.Fatal("allocate failed")
		}
		checkAllInvariants(t, h)

		block := h.block(off - blockHeaderSize)
		if block.DataSize != payload {
			t.Fatalf("expected no split, block data size = %d, want %d", block.DataSize, payload)
		}
	})
}

func TestCoalesceThreeWay(t *testing.T) {
	h := newTestHeap(t, 4096)

	// d is a spacer: without it, c would be file-adjacent to the tail free
	// block left over from the last split, and freeing it would coalesce
	// with that tail instead of staying isolated as this scenario needs.
	a, ok := h.allocate(64)
	if !ok {
		t.Fatal("allocate a failed")
	}
	b, ok := h.allocate(64)
	if !ok {
		t.Fatal("allocate b failed")
	}
	c, ok := h.allocate(64)
	if !ok {
		t.Fatal("allocate c failed")
	}
	_, ok = h.allocate(64) // d
	if !ok {
		t.Fatal("allocate d failed")
	}
	checkAllInvariants(t, h)

	// free the two outer blocks first: each becomes an isolated free block
	// since its only file-adjacent neighbors (b, and b/d) are still used.
	h.deallocate(a)
	checkAllInvariants(t, h)
	h.deallocate(c)
	checkAllInvariants(t, h)

	freeHead, _ := h.header()
	freeBlockCount := 0
	for o := freeHead; o != nullOffset; o = h.block(o).Next {
		freeBlockCount++
	}
	if freeBlockCount != 3 {
		t.Fatalf("expected 3 disjoint free blocks (a, c, and the tail), got %d", freeBlockCount)
	}

	// freeing b should now coalesce with both a and c into one run
	h.deallocate(b)
	checkAllInvariants(t, h)

	freeHead, _ = h.header()
	freeBlockCount = 0
	for o := freeHead; o != nullOffset; o = h.block(o).Next {
		freeBlockCount++
	}
	if freeBlockCount != 2 {
		t.Fatalf("expected a, b and c to merge into one block, got %d disjoint free blocks", freeBlockCount)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heap.bin")

	h, err := openPersistentHeap(path, 4096)
	if err != nil {
		t.Fatalf("openPersistentHeap: %v", err)
	}

	off, ok := h.allocate(64)
	if !ok {
		t.Fatal("allocate failed")
	}
	payload := h.payload(off, 64)
	for i := range payload {
		payload[i] = byte(i)
	}

	if err := h.close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	h2, err := openPersistentHeap(path, 4096)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { h2.close() })

	found := false
	h2.rangeUsed(func(payloadOffset, dataSize uint64) bool {
		if payloadOffset == off && dataSize == 64 {
			found = true
			data := h2.payload(payloadOffset, dataSize)
			for i, v := range data {
				if v != byte(i) {
					t.Fatalf("byte %d corrupted across reopen: got %d, want %d", i, v, byte(i))
				}
			}
			return false
		}
		return true
	})
	if !found {
		t.Fatal("expected the allocated block to survive reopen")
	}
}

func TestOverwriteReclaimsStorage(t *testing.T) {
	h := newTestHeap(t, 4096)

	off, ok := h.allocate(128)
	if !ok {
		t.Fatal("allocate failed")
	}
	h.deallocate(off)
	checkAllInvariants(t, h)

	off2, ok := h.allocate(128)
	if !ok {
		t.Fatal("second allocate failed")
	}
	if off2 != off {
		t.Fatalf("expected reclaimed block to be reused at the same offset, got %d, want %d", off2, off)
	}
}

func TestCorruptHeaderOnReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heap.bin")

	h, err := openPersistentHeap(path, 4096)
	if err != nil {
		t.Fatalf("openPersistentHeap: %v", err)
	}
	h.setHeader(999999999, 0)
	if err := h.close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := openPersistentHeap(path, 4096); err == nil {
		t.Fatal("expected reopen to fail on a corrupt header")
	}
}

func TestOpenPersistentHeapRejectsTooSmall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heap.bin")
	if _, err := openPersistentHeap(path, 8); err == nil {
		t.Fatal("expected too-small heap size to be rejected")
	}
}

func TestOpenPersistentHeapExistingSizeWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heap.bin")

	h, err := openPersistentHeap(path, 8192)
	if err != nil {
		t.Fatalf("openPersistentHeap: %v", err)
	}
	if err := h.close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	h2, err := openPersistentHeap(path, 999)
	if err != nil {
		t.Fatalf("reopen with a different requested size: %v", err)
	}
	t.Cleanup(func() { h2.close() })

	if h2.size != 8192 {
		t.Fatalf("expected the existing file's size (8192) to win over the requested size, got %d", h2.size)
	}
}

func TestZeroLengthExistingFileIsTreatedAsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heap.bin")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	h, err := openPersistentHeap(path, 4096)
	if err != nil {
		t.Fatalf("openPersistentHeap on empty file: %v", err)
	}
	t.Cleanup(func() { h.close() })

	if h.size != 4096 {
		t.Fatalf("expected a zero-length existing file to be truncated to the requested size, got %d", h.size)
	}
	checkAllInvariants(t, h)
}
