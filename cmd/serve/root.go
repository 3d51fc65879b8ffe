package serve

import (
	"fmt"
	"strconv"
	"strings"

	cmdUtil "github.com/ValentinKolb/vaultkv/cmd/util"
	"github.com/ValentinKolb/vaultkv/rpc/common"
	"github.com/ValentinKolb/vaultkv/rpc/serializer"
	"github.com/ValentinKolb/vaultkv/rpc/server"
	"github.com/ValentinKolb/vaultkv/rpc/transport"
	"github.com/ValentinKolb/vaultkv/rpc/transport/http"
	"github.com/ValentinKolb/vaultkv/rpc/transport/tcp"
	"github.com/ValentinKolb/vaultkv/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	defaultShardSizeBytes = 512 * 1024 * 1024
	maxWorkersPerConn     = 32
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the vaultkv server",
		Long:    `Start the vaultkv server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is VAULTKV_<flag> (e.g. VAULTKV_TIMEOUT=15)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "shards"
	ServeCmd.PersistentFlags().String(key, "0=data/shard-0.bin", cmdUtil.WrapString("Comma-separated list of shards to serve. Format: ID=PATH[:SIZE_MIB] where SIZE_MIB only applies the first time the file is created (default 512)"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("Per-request timeout in seconds"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the API will listen (e.g. 0.0.0.0:8080, /tmp/vaultkv.sock, ...)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:9090", cmdUtil.WrapString("The address on which the Prometheus /metrics endpoint will listen. Empty disables it"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// parse shards
	shardsConfig := viper.GetString("shards")
	serveCmdConfig.Shards = []common.ServerShard{}
	for _, shardConfig := range strings.Split(shardsConfig, ",") {
		shardConfig = strings.TrimSpace(shardConfig)
		if shardConfig == "" {
			continue
		}

		parts := strings.SplitN(shardConfig, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid shard format: %s (expected ID=PATH[:SIZE_MIB])", shardConfig)
		}

		// Parse shard ID
		shardID, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid shard ID %s: %v", parts[0], err)
		}

		// Parse path and optional size
		path := parts[1]
		sizeBytes := int64(defaultShardSizeBytes)
		if idx := strings.LastIndex(path, ":"); idx != -1 {
			sizeMiB, err := strconv.ParseInt(path[idx+1:], 10, 64)
			if err == nil {
				path = path[:idx]
				sizeBytes = sizeMiB * 1024 * 1024
			}
		}

		serveCmdConfig.Shards = append(serveCmdConfig.Shards, common.ServerShard{
			ShardID:   shardID,
			Path:      path,
			SizeBytes: sizeBytes,
		})
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	return nil
}

// run starts the vaultkv server
func run(_ *cobra.Command, _ []string) error {

	// parse the serializer
	var s serializer.IRPCSerializer
	switch viper.GetString("serializer") {
	case "json":
		s = serializer.NewJSONSerializer()
	case "gob":
		s = serializer.NewGOBSerializer()
	case "binary":
		s = serializer.NewBinarySerializer()
	default:
		return fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}

	// Parse the transport
	var t transport.IRPCServerTransport
	switch viper.GetString("transport") {
	case "http":
		t = http.NewHttpServerTransport()
	case "tcp":
		t = tcp.NewTCPServerTransport(64*1024, maxWorkersPerConn)
	case "unix":
		t = unix.NewUnixServerTransport(64*1024, maxWorkersPerConn)
	default:
		return fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}

	serv := server.NewRPCServer(
		*serveCmdConfig,
		t,
		s,
	)

	return serv.Serve()
}

// initConfig reads in serveCmdConfig file and ENV variables if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("vaultkv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

}
