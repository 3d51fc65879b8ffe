package server

import (
	"fmt"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/ValentinKolb/vaultkv/lib/db"
	"github.com/ValentinKolb/vaultkv/lib/db/engines/vault"
	"github.com/ValentinKolb/vaultkv/lib/store"
	"github.com/ValentinKolb/vaultkv/lib/store/lstore"
	"github.com/ValentinKolb/vaultkv/rpc/common"
	"github.com/ValentinKolb/vaultkv/rpc/serializer"
	"github.com/ValentinKolb/vaultkv/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = common.GetLogger("rpc")

// serverShard is a struct that represents a shard in the RPC server
// It contains the store it encapsulates and the adapter that handles
// requests for the store; the shard ID is its key in rpcServer.shards
type serverShard struct {
	Store   store.IStore
	Adapter IRPCServerAdapter
}

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		http.NewHttpServerTransport(),
//		serializer.NewJSONSerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	 }
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) rpcServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	// Create shards map
	shardMap := xsync.NewMapOf[uint64, serverShard]()

	Logger.Infof("Created RPC Server")
	Logger.Infof(config.String())

	// Create the RPC server
	return rpcServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		shards:     shardMap,
	}
}

type rpcServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	shards     *xsync.MapOf[uint64, serverShard]
}

func (s *rpcServer) registerTransportHandler() {
	s.transport.RegisterHandler(func(shardId uint64, req []byte) []byte {
		var msg common.Message
		var respMsg common.Message

		// Get appropriate shard
		shard, ok := s.shards.Load(shardId)

		// Case shard does not exist -> error
		if !ok {
			respMsg = common.Message{
				MsgType: common.MsgTError,
				Err:     "shard not found",
			}
		} else {
			// Decode the request
			err := s.serializer.Deserialize(req, &msg)

			if err != nil {
				respMsg = common.Message{
					MsgType: common.MsgTError,
					Err:     fmt.Sprintf("failed to deserialize request: %s", err),
				}
			} else {
				// Let the adapter handle the request
				respMsg = *shard.Adapter.Handle(&msg, shard.Store)
			}
		}

		// Return result
		val, err := s.serializer.Serialize(respMsg)
		if err != nil {
			respMsg = common.Message{
				MsgType: common.MsgTError,
				Err:     fmt.Sprintf("failed to serialize response: %s", err),
			}
		}
		return val
	})
}

// registerShardMetrics exposes a gauge per shard per heap/index statistic,
// sourced from a fresh GetDBInfo call every time the metrics endpoint is
// scraped. Metric names are tagged with the shard ID so a single process
// serving several shards reports each one separately.
func (s *rpcServer) registerShardMetrics(shardID uint64, shardStore store.IStore) {
	metrics.GetOrCreateGauge(fmt.Sprintf(`vaultkv_used_bytes{shard="%d"}`, shardID), func() float64 {
		info, err := shardStore.GetDBInfo()
		if err != nil {
			return 0
		}
		v, _ := info.Metadata.(map[string]interface{})["used_bytes"].(uint64)
		return float64(v)
	})
	metrics.GetOrCreateGauge(fmt.Sprintf(`vaultkv_free_bytes{shard="%d"}`, shardID), func() float64 {
		info, err := shardStore.GetDBInfo()
		if err != nil {
			return 0
		}
		v, _ := info.Metadata.(map[string]interface{})["free_bytes"].(uint64)
		return float64(v)
	})
	metrics.GetOrCreateGauge(fmt.Sprintf(`vaultkv_used_blocks{shard="%d"}`, shardID), func() float64 {
		info, err := shardStore.GetDBInfo()
		if err != nil {
			return 0
		}
		v, _ := info.Metadata.(map[string]interface{})["used_blocks"].(int)
		return float64(v)
	})
	metrics.GetOrCreateGauge(fmt.Sprintf(`vaultkv_free_blocks{shard="%d"}`, shardID), func() float64 {
		info, err := shardStore.GetDBInfo()
		if err != nil {
			return 0
		}
		v, _ := info.Metadata.(map[string]interface{})["free_blocks"].(int)
		return float64(v)
	})
}

func (s *rpcServer) serveMetrics() {
	if s.config.MetricsEndpoint == "" {
		return
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, false)
	})

	go func() {
		Logger.Infof("serving metrics on %s", s.config.MetricsEndpoint)
		if err := http.ListenAndServe(s.config.MetricsEndpoint, mux); err != nil {
			Logger.Errorf("metrics server stopped: %v", err)
		}
	}()
}

func (s *rpcServer) init() error {

	// Init logger
	common.InitLoggers(s.config)

	// CREATE SHARDS
	//
	// Every shard is a single memory-mapped vault file served locally by
	// this process; there is no remote/replicated shard type anymore.
	for _, shardConfig := range s.config.Shards {
		shard := shardConfig
		dbFactory := func() db.KVDB {
			return vault.NewVaultDB(&vault.Options{
				Path:      shard.Path,
				SizeBytes: shard.SizeBytes,
			})
		}

		localStore := lstore.NewLocalStore(dbFactory)

		s.shards.Store(shard.ShardID, serverShard{
			Store:   localStore,
			Adapter: NewIStoreServerAdapter(),
		})
		s.registerShardMetrics(shard.ShardID, localStore)

		Logger.Infof("opened shard %d at %s (%d bytes)", shard.ShardID, shard.Path, shard.SizeBytes)
	}

	Logger.Infof("vaultkv setup completed successfully")

	// Configure the transport layer
	s.registerTransportHandler()

	// Configure the metrics endpoint, if enabled
	s.serveMetrics()

	return nil
}

// Serve starts the RPC server
// This function will also initialize the server plus the shards and start the transport layer
func (s *rpcServer) Serve() error {
	err := s.init()
	if err != nil {
		return err
	}
	return s.transport.Listen(s.config)
}
