package vault

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
)

func newTestIndex(t *testing.T, size int64) *Index {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.bin")
	idx, err := New(path, size)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestKeyUniqueness(t *testing.T) {
	idx := newTestIndex(t, 1<<20)

	if !idx.Put([]byte("k"), []byte("v1")) {
		t.Fatal("put failed")
	}
	if !idx.Put([]byte("k"), []byte("v2")) {
		t.Fatal("put failed")
	}

	var chainLen int
	idx.writeMu.Lock()
	for _, b := range idx.arena {
		if kv := b.kv.Load(); kv != nil && blobKeyEquals(kv.bytes, []byte("k")) {
			chainLen++
		}
	}
	idx.writeMu.Unlock()

	if chainLen != 1 {
		t.Fatalf("expected exactly one bucket for key %q after overwrite, found %d", "k", chainLen)
	}

	v, ok := idx.Get([]byte("k"))
	if !ok || !bytes.Equal(v, []byte("v2")) {
		t.Fatalf("expected v2, got %q ok=%v", v, ok)
	}
}

func TestReadAfterWrite(t *testing.T) {
	idx := newTestIndex(t, 1<<20)

	for i := 0; i < 200; i++ {
		key := []byte(fmt.Sprintf("key-%d", i))
		value := []byte(fmt.Sprintf("value-%d", i))
		if !idx.Put(key, value) {
			t.Fatalf("put %d failed", i)
		}
		got, ok := idx.Get(key)
		if !ok {
			t.Fatalf("key %d not found immediately after put", i)
		}
		if !bytes.Equal(got, value) {
			t.Fatalf("key %d: got %q, want %q", i, got, value)
		}
	}
}

func TestGetCopySafety(t *testing.T) {
	idx := newTestIndex(t, 1<<20)

	idx.Put([]byte("k"), []byte("hello"))
	got, _ := idx.Get([]byte("k"))
	got[0] = 'X'

	got2, _ := idx.Get([]byte("k"))
	if !bytes.Equal(got2, []byte("hello")) {
		t.Fatalf("mutating a Get result corrupted the stored value: %q", got2)
	}
}

func TestHasAndMiss(t *testing.T) {
	idx := newTestIndex(t, 1<<20)

	if idx.Has([]byte("missing")) {
		t.Fatal("expected Has to report false for a key never set")
	}

	idx.Put([]byte("present"), []byte("v"))
	if !idx.Has([]byte("present")) {
		t.Fatal("expected Has to report true after Put")
	}
	if !idx.Has([]byte("present")) {
		t.Fatal("expected Has to be idempotent")
	}
}

func TestAllocatorExhaustionReturnsFalse(t *testing.T) {
	idx := newTestIndex(t, heapHeaderSize+blockHeaderSize+64)

	if !idx.Put([]byte("k1"), bytes.Repeat([]byte("x"), 40)) {
		t.Fatal("expected the first put to fit")
	}
	if idx.Put([]byte("k2"), bytes.Repeat([]byte("x"), 40)) {
		t.Fatal("expected a second put to fail once the heap is exhausted")
	}
	if !idx.Has([]byte("k1")) {
		t.Fatal("expected the first key to remain intact after a failed put")
	}
}

func TestOverwriteReclaimsHeapStorage(t *testing.T) {
	idx := newTestIndex(t, 1<<20)

	idx.Put([]byte("k"), bytes.Repeat([]byte("x"), 1000))
	usedBefore, _, blocksBefore, _ := idx.heap.stats()

	idx.Put([]byte("k"), bytes.Repeat([]byte("y"), 1000))
	usedAfter, _, blocksAfter, _ := idx.heap.stats()

	if blocksAfter != blocksBefore {
		t.Fatalf("expected the same number of used blocks after an overwrite of equal size, before=%d after=%d", blocksBefore, blocksAfter)
	}
	if usedAfter != usedBefore {
		t.Fatalf("expected used bytes to stay constant across an equal-size overwrite, before=%d after=%d", usedBefore, usedAfter)
	}
}

// TestRecoveryRoundTrip verifies that closing and reopening an index with
// the same backing file preserves every key and value.
func TestRecoveryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.bin")

	idx, err := New(path, 1<<20)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	entries := map[string]string{}
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("key-%d", i)
		value := fmt.Sprintf("value-%d", i)
		entries[key] = value
		if !idx.Put([]byte(key), []byte(value)) {
			t.Fatalf("put %s failed", key)
		}
	}

	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	idx2, err := New(path, 1<<20)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx2.Close()

	for key, value := range entries {
		got, ok := idx2.Get([]byte(key))
		if !ok {
			t.Fatalf("key %q missing after recovery", key)
		}
		if string(got) != value {
			t.Fatalf("key %q: got %q, want %q", key, got, value)
		}
	}
}

// TestStrongConsistencyUnderConcurrentReadWrite runs one writer continuously
// overwriting a fixed set of keys against several concurrent readers, and
// asserts that every value a reader observes is one that was actually
// written for that key (never a torn or foreign value).
func TestStrongConsistencyUnderConcurrentReadWrite(t *testing.T) {
	idx := newTestIndex(t, 8<<20)

	numKeys := 16
	keys := make([][]byte, numKeys)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("key-%d", i))
		idx.Put(keys[i], []byte("v-0"))
	}

	const iterations = 2000
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= iterations; i++ {
			for _, k := range keys {
				idx.Put(k, []byte(fmt.Sprintf("v-%d", i)))
			}
		}
	}()

	stop := make(chan struct{})
	var readerWg sync.WaitGroup
	for r := 0; r < 4; r++ {
		readerWg.Add(1)
		go func() {
			defer readerWg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				for _, k := range keys {
					v, ok := idx.Get(k)
					if !ok {
						t.Errorf("key %s unexpectedly missing", k)
						return
					}
					var n int
					if _, err := fmt.Sscanf(string(v), "v-%d", &n); err != nil {
						t.Errorf("unrecognized value %q for key %s", v, k)
						return
					}
				}
			}
		}()
	}

	wg.Wait()
	close(stop)
	readerWg.Wait()
}

// TestNoReaderStarvation runs many concurrent readers and writers on
// disjoint keys and verifies they all complete within a bounded number of
// operations (a starved reader would spin forever retrying tryRetain).
func TestNoReaderStarvation(t *testing.T) {
	idx := newTestIndex(t, 8<<20)

	const numGoroutines = 8
	const opsPerGoroutine = 500

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for g := 0; g < numGoroutines; g++ {
		go func(id int) {
			defer wg.Done()
			key := []byte(fmt.Sprintf("goroutine-key-%d", id))
			for i := 0; i < opsPerGoroutine; i++ {
				value := []byte(fmt.Sprintf("value-%d-%d", id, i))
				if !idx.Put(key, value) {
					t.Errorf("put failed for goroutine %d", id)
					return
				}
				if _, ok := idx.Get(key); !ok {
					t.Errorf("get failed for goroutine %d", id)
					return
				}
			}
		}(g)
	}

	wg.Wait()
}

// TestConcurrentStress is the bounded-iteration form of the mixed
// read/write stress scenario; the time-bounded form lives in
// BenchmarkMixedUsage in the shared dbtesting package.
func TestConcurrentStress(t *testing.T) {
	idx := newTestIndex(t, 16<<20)

	const numGoroutines = 8
	const numKeys = 200
	const opsPerGoroutine = 1000

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for g := 0; g < numGoroutines; g++ {
		go func(id int) {
			defer wg.Done()
			for i := 0; i < opsPerGoroutine; i++ {
				key := []byte(fmt.Sprintf("shared-key-%d", (id*37+i)%numKeys))
				switch i % 3 {
				case 0:
					idx.Put(key, []byte(fmt.Sprintf("value-%d-%d", id, i)))
				case 1:
					idx.Get(key)
				case 2:
					idx.Has(key)
				}
			}
		}(g)
	}

	wg.Wait()

	checkAllInvariants(t, idx.heap)
}
