// Package client implements an RPC client for the vaultkv key-value store.
// It provides an implementation of the store.IStore interface that
// communicates with a remote vaultkv server via RPC.
//
// The package focuses on:
//   - Transparent RPC access to a remote store.IStore
//   - Integration with the transport and serialization layers
//   - Error handling and conversion between RPC and domain errors
//
// Key Components:
//
//   - NewRPCStore: Factory function that creates a client implementing the store.IStore
//     interface. This client forwards all operations to a remote server via the configured
//     transport layer.
//
// Usage Example:
//
//		// Configure the client
//		config := common.ClientConfig{
//		  TimeoutSecond: 5,
//		  Transport: common.ClientTransportConfig{
//		    Endpoints:              []string{"localhost:5000"},
//		    RetryCount:             3,
//		    ConnectionsPerEndpoint: 1,
//		  },
//		}
//
//	 // Create a serializer
//		serializer := serializer.NewBinarySerializer()
//
//		// Create store client
//		store, _ := client.NewRPCStore(0, config, tcp.NewTCPClientTransport(), serializer)
//
//		// Use the store
//		store.Set("mykey", []byte("myvalue"))
//		value, exists, _ := store.Get("mykey")
//		info, _ := store.GetDBInfo()
//
// Performance Considerations:
//
//   - For applications that frequently send large payloads, increasing ConnectionsPerEndpoint
//     can improve throughput by allowing parallel requests.
//
//   - For small messages, a single connection per endpoint is often more efficient due to
//     reduced connection overhead.
//
//   - The choice of serializer significantly affects performance. The binary serializer
//     provides the best performance and smallest payload size.
//
// Thread Safety:
//
//	All client implementations are thread-safe and can be used concurrently from
//	multiple goroutines without additional synchronization.
package client
