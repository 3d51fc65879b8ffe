// Package lstore implements a local, single-node key-value store based on the
// store.IStore interface. It provides a thin wrapper around any db.KVDB
// implementation, translating IStore's error-returning surface onto
// db.KVDB's boolean/feature-flag surface.
//
// Key Features:
//   - Direct integration with db.KVDB implementations
//   - Feature detection to handle unsupported operations gracefully
//   - No additional state of its own; thread-safety is entirely delegated to
//     the underlying db.KVDB implementation
//
// Implementation Details:
//
//   - Feature Detection: Before executing operations, the store checks if the underlying
//     db.KVDB implementation supports the requested feature through the SupportsFeature
//     method. Unsupported operations return appropriate error codes rather than failing
//     silently or producing undefined behavior.
//
//   - Allocator Exhaustion: A Set that returns false from the underlying db.KVDB
//     (storage exhausted, not an unexpected key collision) is surfaced as
//     store.RetCAllocatorExhausted rather than store.RetCInternalError, so
//     callers over RPC can distinguish "store full" from an actual bug.
//
//   - Composition Architecture: The store follows a composition pattern where the
//     store.DBFactory factory function injects the underlying db.KVDB implementation.
//     This allows the store to work with any db.KVDB-compatible engine without modification.
//
// Usage Example:
//
//	// Create a store with a vault database backend
//	factory := func() db.KVDB { return vault.NewVaultDB(nil) }
//	s := lstore.NewLocalStore(factory)
//
//	// Store a value
//	err := s.Set("session:123", sessionData)
//
//	// Retrieve the value
//	value, exists, err := s.Get("session:123")
//
// Suitable Use Cases:
//
//	The local store is ideal for:
//	- Single-node applications where distributed consensus is not required
//	- Testing and development environments
//	- Any deployment where the store's own persistence (e.g. vault's
//	  memory-mapped file) is sufficient without cross-process replication
package lstore
