// Package server implements the RPC server for the vaultkv key-value store.
// It provides an adapter that handles store requests and the core server
// implementation that manages shards and request routing.
//
// The package focuses on:
//   - Server-side RPC request handling for store operations
//   - Adapter pattern to decouple application logic from RPC mechanisms
//   - Serving any number of independent vault files as numbered shards
//   - Exposing per-shard allocator/index statistics on a metrics endpoint
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for all server adapters,
//     with the Handle method that processes incoming requests against a store.IStore.
//
//   - NewIStoreServerAdapter: Factory function creating an adapter for key-value
//     store operations, translating RPC requests to store.IStore method calls.
//
//   - NewRPCServer: Factory function creating a configured server with the specified
//     transport and serializer mechanisms.
//
// Usage Example:
//
//	// Create server configuration
//	config := common.ServerConfig{
//	  Shards: []common.ServerShard{
//	    {ShardID: 0, Path: "data/shard-0.bin", SizeBytes: 512 * 1024 * 1024},
//	    {ShardID: 1, Path: "data/shard-1.bin", SizeBytes: 512 * 1024 * 1024},
//	  },
//	  Endpoint:        "0.0.0.0:8080",
//	  MetricsEndpoint: "0.0.0.0:9090",
//	  TimeoutSecond:   5,
//	  LogLevel:        "info",
//	}
//
//	// Create and start the server
//	s := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPDefaultServerTransport(32),
//	  serializer.NewBinarySerializer(),
//	)
//
//	// Start the server
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Every shard is a single memory-mapped vault file served locally by this
// process; there is no distributed or cross-process shard type. A single
// server can serve any number of shards, each backed by its own file.
//
// Thread Safety:
//
//	The server implementation is thread-safe and can handle concurrent requests
//	Across multiple connections. Each request is processed independently.
//	The Serve method is not thread-safe and should be called only once.
package server
