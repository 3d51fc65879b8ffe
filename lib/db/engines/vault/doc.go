// Package vault implements a persistent, concurrent key-value database
// (db.KVDB) backed by a single memory-mapped file. Every key and value
// lives directly in the mapping; there is no separate in-memory copy of
// the data itself, only the index structures needed to find it.
//
// The package focuses on:
//   - A first-fit allocator (PersistentHeap) over a fixed-size mapped file,
//     with split-on-allocate and coalesce-on-free to keep fragmentation low
//   - A concurrent chained hash index (ConcurrentIndex) with a single
//     writer and wait-free readers
//   - Full recovery on reopen by replaying the heap's used-list enumeration,
//     with no separate write-ahead log or snapshot format
//
// Key Components:
//
//   - persistentHeap: the allocator. Free and used blocks are each tracked
//     with an intrusive doubly linked list, using file offsets in place of
//     pointers so the structure survives being remapped at a different
//     address on every process run. Allocate is first-fit with a
//     size-threshold split policy; Deallocate coalesces with contiguous
//     free-list neighbors to bound fragmentation.
//
//   - Index: the concurrent hash index. Each table slot holds an
//     atomic.Pointer to the head of a singly linked bucket chain; each
//     bucket holds an atomic.Pointer to the blob currently stored for its
//     key. Both are published with store-release so a concurrent reader
//     walking the structure always observes a fully constructed value.
//
//   - blob: a refcounted view over a single key\0value\0 byte string,
//     backed directly by the heap's mapped memory. Refcounted
//     reclamation (via tryRetain/release) is what lets Get avoid taking
//     the write mutex: a reader retains the blob it wants to read, reads
//     it, then releases it; only the transition of the refcount to zero
//     actually frees the heap block.
//
// Internal Mechanisms:
//
//   - Recovery: opening an existing heap file rebuilds the entire index by
//     calling persistentHeap.rangeUsed, which walks the used list end to
//     end. Every used block's payload is assumed to already be a valid
//     key\0value\0 blob; a malformed one is a fatal setup error rather
//     than something the index tries to repair.
//
//   - Optimistic retain: a bucket's blob pointer can be swapped out from
//     under a reader by a concurrent Put at any time. Get and Has detect
//     this by having tryRetain fail (the old blob's refcount already hit
//     zero) and simply reload the bucket's current blob and retry; the
//     retry is guaranteed to observe the replacement, not another stale
//     value, since a blob's refcount never goes back up once it reaches
//     zero.
//
//   - Bucket arena: buckets are plain heap-allocated Go values referenced
//     by ordinary pointers, so the garbage collector never needs to move
//     them out from under a concurrent reader. The index keeps its own
//     append-only slice of every bucket ever created purely so Range has
//     something to walk; it plays no part in lookup.
//
// Non-goals: this package does not support key deletion, dynamic growth
// of the backing file, multi-key transactions, or cross-process sharing of
// the mapping. The file format also has no explicit fsync ordering;
// durability across a crash (as opposed to a clean process exit) is left
// to the operating system's own page writeback.
//
// Usage Example:
//
//	database := vault.NewVaultDB(&vault.Options{
//	  Path:      "/var/lib/vaultkv/shard-0.bin",
//	  SizeBytes: 512 * 1024 * 1024,
//	})
//	defer database.Close()
//
//	database.Set("greeting", []byte("hello"))
//	value, ok := database.Get("greeting")
package vault
