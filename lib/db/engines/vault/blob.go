package vault

import (
	"bytes"
	"sync/atomic"
)

// blob is a refcounted view over a key\0value\0 byte string backed directly
// by the heap's mapped memory. Readers retain a blob before reading it and
// release it afterwards; the refcount dropping to zero is what actually
// triggers reclamation of the underlying heap block.
//
// This stands in for what would be an atomic shared_ptr in C++: the bucket
// holding a blob is one owning reference, and every in-flight reader holds
// a temporary one for the duration of its read.
type blob struct {
	heap     *persistentHeap
	offset   uint64 // payload offset, for deallocate on release
	bytes    []byte // key\0value\0, a slice directly into the heap's mapped memory
	refcount atomic.Int32
}

// newBlob wraps raw heap-backed bytes with an initial refcount of one,
// representing the reference about to be stored in a bucket.
func newBlob(heap *persistentHeap, offset uint64, raw []byte) *blob {
	b := &blob{heap: heap, offset: offset, bytes: raw}
	b.refcount.Store(1)
	return b
}

// tryRetain attempts to add a reference, failing if the refcount has
// already reached zero. A failed retain only happens when a concurrent Put
// has already swapped this bucket's blob out; callers should reload the
// bucket's current blob and retry rather than treat this as an error.
func (b *blob) tryRetain() bool {
	for {
		n := b.refcount.Load()
		if n <= 0 {
			return false
		}
		if b.refcount.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// release drops a reference. On the transition to zero it deallocates the
// backing heap block; the caller must not touch b.bytes after this.
func (b *blob) release() {
	if b.refcount.Add(-1) == 0 {
		b.heap.deallocate(b.offset)
	}
}

// splitBlob separates a key\0value\0 blob into its key and value parts.
// ok is false if raw is not validly formed (missing either NUL separator).
func splitBlob(raw []byte) (key, value []byte, ok bool) {
	i := bytes.IndexByte(raw, 0)
	if i < 0 {
		return nil, nil, false
	}
	rest := raw[i+1:]
	j := bytes.IndexByte(rest, 0)
	if j < 0 {
		return nil, nil, false
	}
	return raw[:i], rest[:j], true
}

// blobKeyEquals reports whether raw's leading key segment matches key,
// without materializing the value.
func blobKeyEquals(raw, key []byte) bool {
	i := bytes.IndexByte(raw, 0)
	if i < 0 {
		return false
	}
	return bytes.Equal(raw[:i], key)
}
