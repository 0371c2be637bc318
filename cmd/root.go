package cmd

import (
	"fmt"
	"github.com/ValentinKolb/rmemstore/cmd/kv"
	"github.com/ValentinKolb/rmemstore/cmd/serve"
	"github.com/ValentinKolb/rmemstore/cmd/util"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "0.1.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "rms",
		Short: "rmemstore client",
		Long: fmt.Sprintf(`rms (v%s)

Command line client for rmemstore servers. Requests are multiplexed over a
single connection and correlated with their responses by request id.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of rms",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("rms v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper and .env files before any command runs
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "protobuf", util.WrapString("serializer to use (protobuf, json, gob)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (tcp, unix)"))
	key = "log-level"
	RootCmd.PersistentFlags().String(key, "warn", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
