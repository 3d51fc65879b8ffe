// Package common provides core data structures and utilities shared across
// the distributed key-value store system. It defines fundamental types,
// configuration structures, and protocol elements used by other packages.
//
// The package focuses on:
//   - Message protocol definition for inter-component communication
//   - Configuration structures for client and server components
//   - A zap-backed logging implementation shared across packages
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication between components,
//     with a flexible structure that adapts to different operation types.
//     Includes factory methods for creating various request and response messages.
//
//   - MessageType: Enumeration defining all supported operation types in the
//     system, currently limited to key-value operations (Set, Get, Has) and
//     control messages.
//
//   - ServerConfig: Configuration for a server process, describing the set of
//     vault shards it serves, network endpoints, and logging level.
//
//   - ClientConfig: Configuration for client components, controlling connection
//     parameters, timeouts, and retry behavior.
//
//   - Logger: zap-backed logging implementation providing consistent,
//     structured log output across the application.
package common
