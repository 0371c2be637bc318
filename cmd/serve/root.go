package serve

import (
	"github.com/ValentinKolb/rmemstore/cmd/util"
	"github.com/ValentinKolb/rmemstore/lib/memstore"
	"github.com/ValentinKolb/rmemstore/rpc/common"
	"github.com/ValentinKolb/rmemstore/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"os/signal"
	"syscall"
)

const (
	// DefaultServerEndpoint is the address the development server listens on
	DefaultServerEndpoint = "0.0.0.0:9466"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:   "serve",
		Short: "Start the rmemstore development server",
		Long: `Start an in-memory rmemstore server for local testing. The configuration can be set via command
line flags or environment variables. The format of the environment variables is RMS_<flag> (e.g. RMS_TIMEOUT=15)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// add flags
	key := "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, util.WrapString("Timeout in seconds for writing a response"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, DefaultServerEndpoint, util.WrapString("The address on which the server will listen (e.g. 0.0.0.0:9466, /tmp/rms.sock, ...)"))

	key = "workers"
	ServeCmd.PersistentFlags().Int(key, 64, util.WrapString("Maximum number of requests processed concurrently per connection"))

	util.SetupRPCServerFlags(ServeCmd)
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.MaxWorkersPerConn = viper.GetInt("workers")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.Transport = util.GetServerTransportConfig()

	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// run starts the development server and stops it on SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetServerTransport(s, serveCmdConfig.MaxWorkersPerConn)
	if err != nil {
		return err
	}

	serv := server.NewRPCServer(
		*serveCmdConfig,
		t,
		memstore.NewMemStore(),
	)

	// stop serving on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		if _, ok := <-sigCh; ok {
			server.Logger.Infof("Shutting down")
			_ = serv.Close()
		}
	}()

	return serv.Serve()
}
