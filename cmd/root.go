package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/vaultkv/cmd/kv"
	"github.com/ValentinKolb/vaultkv/cmd/serve"
	"github.com/ValentinKolb/vaultkv/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "1.0.9"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "vaultkv",
		Short: "persistent key-value store",
		Long: fmt.Sprintf(`vaultkv (v%s)

A persistent, concurrent key-value store backed by a single memory-mapped
file, with a hand-rolled allocator and a wait-free read path.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of vaultkv",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("vaultkv v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "json", util.WrapString("serializer to use (json, gob, binary)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "http", util.WrapString("transport to use (http, tcp, unix)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
