package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Shared transport tuning knobs
// --------------------------------------------------------------------------

// SocketConf holds buffer-size tuning shared by stream-oriented transports.
type SocketConf struct {
	WriteBufferSize int // bytes, ignored by transports that don't use raw sockets (e.g. http)
	ReadBufferSize  int // bytes, ignored by transports that don't use raw sockets (e.g. http)
}

// TCPConf holds settings only meaningful for the tcp transport.
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerShard describes one vault file served under a numeric shard ID.
type ServerShard struct {
	// ShardID is the ID clients use to address this shard
	ShardID uint64
	// Path is the backing file for the shard's vault
	Path string
	// SizeBytes is the fixed size of the backing file (used only on first creation)
	SizeBytes int64
}

// ServerTransportConfig holds transport-level tuning for the server side.
type ServerTransportConfig struct {
	SocketConf
	TCPConf
}

// ServerConfig holds all configuration parameters for the RPC server.
type ServerConfig struct {
	// Shards is the set of vault files this server exposes
	Shards []ServerShard

	// TimeoutSecond is the per-request read/write deadline
	TimeoutSecond int64

	// Endpoint is the address the server listens on (e.g. "0.0.0.0:8080", "/tmp/vault.sock")
	Endpoint string

	// Transport holds transport-specific tuning
	Transport ServerTransportConfig

	// MetricsEndpoint is the address the VictoriaMetrics/metrics exposition endpoint listens on.
	// Empty disables the metrics endpoint.
	MetricsEndpoint string

	// LogLevel is the level at which logs will be output (debug, info, warn, error)
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("RPC Server")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	if c.MetricsEndpoint != "" {
		addField("Metrics Endpoint", c.MetricsEndpoint)
	}

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	addSection("Shards")
	for _, shard := range c.Shards {
		addField(strconv.FormatUint(shard.ShardID, 10), fmt.Sprintf("%s (%d bytes)", shard.Path, shard.SizeBytes))
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientTransportConfig holds transport-level tuning for the client side.
type ClientTransportConfig struct {
	// Endpoints is the list of server addresses; transports that support
	// load balancing will round-robin across them.
	Endpoints []string
	// RetryCount is how many times to retry a failed request
	RetryCount int
	// ConnectionsPerEndpoint is the number of simultaneous connections opened per endpoint
	ConnectionsPerEndpoint int
	SocketConf
	TCPConf
}

// ClientConfig holds all configuration parameters for the RPC client.
type ClientConfig struct {
	TimeoutSecond int
	Transport     ClientTransportConfig
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.Transport.RetryCount))
	connPerEP := c.Transport.ConnectionsPerEndpoint
	if connPerEP < 1 {
		connPerEP = 1
	}
	addField("Connections Per Endpoint", strconv.Itoa(connPerEP))

	addSection("Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
