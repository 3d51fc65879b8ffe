// Package store provides a high-level interface for key-value storage operations
// with unified error handling. It serves as an abstraction layer over the
// lower-level db.KVDB implementations, translating their bool/feature-flag
// surface into a standardized error-returning surface.
//
// The package focuses on:
//   - A unified interface (IStore) for key-value operations across different backends
//   - Pluggable storage backend architecture through DBFactory pattern
//
// Key Components:
//
//   - IStore Interface: The core abstraction defining operations for interacting with
//     a key-value store. All implementations share this common interface, allowing
//     applications to switch between different storage backends without code changes.
//     The interface methods return custom Error types that provide detailed information
//     about operation results.
//
//   - Error System: A structured error reporting mechanism using typed error codes
//     and descriptive messages. This system allows applications to make informed
//     decisions based on specific error conditions rather than generic errors -
//     for example distinguishing an unsupported operation from a store that has
//     run out of backing space.
//
//   - DBFactory: A function type that abstracts the creation of underlying db.KVDB
//     instances, providing dependency injection and flexible configuration of
//     storage backends.
//
// Implementations:
//
//	The package currently includes one implementation of the IStore interface:
//
//	- Local Store (lstore): A simple, non-distributed implementation that directly
//	  utilizes a db.KVDB instance. This implementation is suitable for single-node
//	  applications where distributed consensus is not required.
//	  Available in the "github.com/ValentinKolb/vaultkv/lib/store/lstore" package.
//
// This interface-driven approach allows applications to:
//   - Switch storage backends depending on deployment requirements
//   - Handle errors in a consistent and type-safe manner across implementations
//   - Abstract storage implementation details from application logic
package store
