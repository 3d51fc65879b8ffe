package vault

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/vaultkv/lib/db/util"
)

// defaultTableSize is a prime near target_entries/load_factor for a
// ~200,000 entry working set at a 0.75 load factor. The table size is
// fixed at construction; there is no resize since there is no deletion.
// Overwriting a key reuses its bucket, so only new keys raise the load factor.
const defaultTableSize = 266671

// bucket is a node in a singly linked chain rooted at a table slot. next
// is published with store-release and read with load-acquire so that a
// reader walking the chain always observes a fully constructed successor.
// kv is swapped the same way on overwrite, which is what lets Get be
// entirely lock-free.
type bucket struct {
	next atomic.Pointer[bucket]
	kv   atomic.Pointer[blob]
}

// Index is a concurrent chained hash index over blobs stored in a
// PersistentHeap. Writes are serialized by a single mutex; reads never
// take it and instead rely on atomic publication plus the blob's
// optimistic retain protocol for safe reclamation.
type Index struct {
	heap    *persistentHeap
	table   []atomic.Pointer[bucket]
	arena   []*bucket // append-only, guarded by writeMu, backs Range
	writeMu sync.Mutex
	seed    uint64
}

// New opens or creates the heap file at path (truncating it to size bytes
// if it doesn't already exist) and recovers the index by replaying the
// heap's used-list enumeration.
func New(path string, size int64) (*Index, error) {
	h, err := openPersistentHeap(path, size)
	if err != nil {
		return nil, err
	}

	idx := &Index{
		heap:  h,
		table: make([]atomic.Pointer[bucket], defaultTableSize),
		seed:  util.GenerateSeed(),
	}

	if err := idx.recover(); err != nil {
		h.close()
		return nil, err
	}

	return idx, nil
}

// recover rebuilds the in-memory table by walking every block still on the
// heap's used list, treating each one as a key\0value\0 blob.
func (idx *Index) recover() error {
	var recoverErr error

	idx.heap.rangeUsed(func(payloadOffset, dataSize uint64) bool {
		raw := idx.heap.payload(payloadOffset, dataSize)

		key, _, ok := splitBlob(raw)
		if !ok {
			recoverErr = fmt.Errorf("vault: corrupt blob at offset %d", payloadOffset)
			return false
		}

		b := newBlob(idx.heap, payloadOffset, raw)
		idx.appendBucket(string(key), b)
		return true
	})

	return recoverErr
}

func (idx *Index) slotFor(key string) uint64 {
	return uint64(util.HashString(key, idx.seed)) % uint64(len(idx.table))
}

// appendBucket creates a new bucket holding b and publishes it at the head
// of key's chain. Must be called with writeMu held (or during recovery,
// before any concurrent access is possible).
func (idx *Index) appendBucket(key string, b *blob) *bucket {
	slot := idx.slotFor(key)

	nb := &bucket{}
	nb.kv.Store(b)
	idx.arena = append(idx.arena, nb)

	head := idx.table[slot].Load()
	nb.next.Store(head)
	idx.table[slot].Store(nb)

	return nb
}

// Put inserts or overwrites key with value. Returns false only when the
// underlying heap has no block large enough to hold the new blob; the key
// is left unchanged in that case.
func (idx *Index) Put(key, value []byte) bool {
	if len(key) == 0 {
		panic("vault: key must not be empty")
	}
	if bytes.IndexByte(key, 0) >= 0 {
		panic("vault: key must not contain a NUL byte")
	}
	if bytes.IndexByte(value, 0) >= 0 {
		panic("vault: value must not contain a NUL byte")
	}

	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	n := uint64(len(key) + 1 + len(value) + 1)
	payloadOffset, ok := idx.heap.allocate(n)
	if !ok {
		return false
	}

	raw := idx.heap.payload(payloadOffset, n)
	copy(raw, key)
	raw[len(key)] = 0
	copy(raw[len(key)+1:], value)
	raw[len(raw)-1] = 0

	newBlobPtr := newBlob(idx.heap, payloadOffset, raw)

	slot := idx.slotFor(string(key))
	for b := idx.table[slot].Load(); b != nil; b = b.next.Load() {
		cur := b.kv.Load()
		if cur != nil && blobKeyEquals(cur.bytes, key) {
			b.kv.Store(newBlobPtr)
			cur.release()
			return true
		}
	}

	idx.appendBucket(string(key), newBlobPtr)
	return true
}

// Get retrieves a copy of the value stored for key. The boolean indicates
// whether the key was found. This method never takes the write mutex and
// is safe to call concurrently with Put and with itself.
func (idx *Index) Get(key []byte) ([]byte, bool) {
	slot := idx.slotFor(string(key))

	for b := idx.table[slot].Load(); b != nil; b = b.next.Load() {
		for {
			cur := b.kv.Load()
			if cur == nil {
				break
			}
			if !cur.tryRetain() {
				// a concurrent Put already swapped this bucket's blob out;
				// reload and retry rather than treat this as a miss.
				continue
			}

			k, v, ok := splitBlob(cur.bytes)
			if !ok {
				cur.release()
				break
			}
			if bytes.Equal(k, key) {
				out := append([]byte(nil), v...)
				cur.release()
				return out, true
			}
			cur.release()
			break
		}
	}

	return nil, false
}

// Has reports whether key exists, without copying its value.
func (idx *Index) Has(key []byte) bool {
	slot := idx.slotFor(string(key))

	for b := idx.table[slot].Load(); b != nil; b = b.next.Load() {
		for {
			cur := b.kv.Load()
			if cur == nil {
				break
			}
			if !cur.tryRetain() {
				continue
			}

			k, _, ok := splitBlob(cur.bytes)
			matched := ok && bytes.Equal(k, key)
			cur.release()
			if matched {
				return true
			}
			break
		}
	}

	return false
}

// Range calls fn for every key currently in the index, stopping early if
// fn returns false. The snapshot of buckets visited is taken once, under
// the write mutex, but the individual blob reads proceed lock-free exactly
// like Get.
func (idx *Index) Range(fn func(key, value []byte) bool) {
	idx.writeMu.Lock()
	arena := make([]*bucket, len(idx.arena))
	copy(arena, idx.arena)
	idx.writeMu.Unlock()

	for _, b := range arena {
		var cur *blob
		for {
			cur = b.kv.Load()
			if cur == nil || cur.tryRetain() {
				break
			}
			// a concurrent Put already swapped this bucket's blob out; reload.
		}
		if cur == nil {
			continue
		}

		k, v, ok := splitBlob(cur.bytes)
		if ok && !fn(k, v) {
			cur.release()
			return
		}
		cur.release()
	}
}

// Close releases the underlying heap's memory mapping and file handle.
func (idx *Index) Close() error {
	return idx.heap.close()
}
