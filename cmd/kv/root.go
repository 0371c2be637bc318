package kv

import (
	"github.com/ValentinKolb/rmemstore/cmd/util"
	"github.com/ValentinKolb/rmemstore/rpc/client"
	"github.com/ValentinKolb/rmemstore/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
)

var (
	Logger = logger.GetLogger("cli")

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:               "kv",
		Short:             "Perform key-value store operations",
		PersistentPreRunE: setupKV,
	}
)

func init() {
	// Add common RPC flags to the KV command
	util.SetupRPCClientFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(putCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(benchCmd)
}

// setupKV binds the flags and initializes the loggers
func setupKV(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	return util.InitLoggers()
}

// connect creates a client transport and connects a typed client with it.
// The transport is returned as well for access to the connection metrics.
func connect() (client.IMemstore, transport.IRPCClientTransport, error) {
	config, err := util.GetClientConfig()
	if err != nil {
		return nil, nil, err
	}

	// Get serializer and transport
	s, err := util.GetSerializer()
	if err != nil {
		return nil, nil, err
	}

	t, err := util.GetTransport(s)
	if err != nil {
		return nil, nil, err
	}

	// Create the memstore client
	c, err := client.NewRPCMemstore(*config, t)
	if err != nil {
		return nil, nil, err
	}
	return c, t, nil
}
