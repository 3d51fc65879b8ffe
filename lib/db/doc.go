// Package db provides a standardized interface for key-value database implementations.
// It defines a minimal KVDB interface that allows for consistent interaction
// with database backends while abstracting implementation details.
//
// The package focuses on:
//   - A unified interface for key-value operations
//   - Feature discovery through capability flags
//   - Standardized metadata reporting
//
// Key Components:
//
//   - KVDB Interface: The core interface that all database implementations must satisfy.
//     It provides methods for basic operations (Set, Get, Has), metadata retrieval
//     (GetInfo), and lifecycle management (Close).
//
//   - Feature Flags: The Feature type defines capability flags that implementations
//     can advertise through the SupportsFeature method. This allows clients to
//     discover supported operations at runtime.
//
//   - Implementation Identifiers: The Implementation type provides string constants
//     for different database backends (currently "vault").
//
//   - Database Information: The DatabaseInfo structure provides standardized
//     reporting on database state, including size statistics, implementation type,
//     and implementation-specific metadata.
//
// This interface-driven approach allows applications to:
//   - Swap database implementations without code changes
//   - Gracefully handle operations not supported by specific implementations
//   - Maintain consistent behavior across different storage backends
//   - Collect standardized metrics for monitoring and management
//
// Related Packages:
//
// The engines/vault package (github.com/ValentinKolb/vaultkv/lib/db/engines/vault) provides
// a persistent implementation of the KVDB interface backed by a single memory-mapped
// file: an intrusive heap allocator for storage and a concurrent chained hash index
// on top, offering lock-free reads and serialized writes with strong consistency.
//
// The util package (github.com/ValentinKolb/vaultkv/lib/db/util) provides complementary
// tools for working with db.KVDB implementations:
//   - SizeHistogram: Utilities for analyzing data size distributions
//   - HashString: A seeded FNV-1a hash used for key-to-bucket distribution
//
// The testing package (github.com/ValentinKolb/vaultkv/lib/db/testing) provides
// standardized tests and benchmarks for database implementations that satisfy the db.KVDB interface.
//   - RunKVDBTests: Runs a standardized test suite to validate implementations
//   - RunKVDBBenchmarks: Provides performance benchmarks for comparing implementations
package db
