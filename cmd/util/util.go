package util

import (
	"fmt"
	"github.com/ValentinKolb/rmemstore/rpc/common"
	"github.com/ValentinKolb/rmemstore/rpc/serializer"
	"github.com/ValentinKolb/rmemstore/rpc/transport"
	"github.com/ValentinKolb/rmemstore/rpc/transport/tcp"
	"github.com/ValentinKolb/rmemstore/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// DefaultClientEndpoint is the address clients connect to if nothing else is configured
	DefaultClientEndpoint = "127.0.0.1:9466"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of a single request (0 = no timeout)"))

	key = "endpoint"
	cmd.PersistentFlags().String(key, DefaultClientEndpoint, WrapString("The address of the rmemstore server (host:port for tcp, a socket path for unix). Can also be set with the HOST environment variable"))

	key = "fail-pending"
	cmd.PersistentFlags().Bool(key, false, WrapString("Fail requests that are waiting for a response when the connection stops, instead of waiting for their timeout"))

	key = "transport-max-frame"
	cmd.PersistentFlags().Int(key, common.DefaultMaxFrameBytes/1024, WrapString("The largest accepted response frame (in KB)"))

	setupSocketFlags(cmd)
}

// SetupRPCServerFlags adds the socket flags of the server to a command
func SetupRPCServerFlags(cmd *cobra.Command) {
	setupSocketFlags(cmd)
}

// setupSocketFlags adds the socket options shared by client and server
func setupSocketFlags(cmd *cobra.Command) {
	key := "transport-write-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket write buffer (in KB, 0 = os default)"))

	key = "transport-read-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket read buffer (in KB, 0 = os default)"))

	key = "transport-read-chunk"
	cmd.PersistentFlags().Int(key, common.DefaultReadBufferSize/1024, WrapString("How many bytes are requested from the connection per read (in KB)"))

	key = "transport-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY for the transport (only for tcp)"))

	key = "transport-tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval for the transport (in seconds, only for tcp)"))

	key = "transport-tcp-linger"
	cmd.PersistentFlags().Int(key, 0, WrapString("The linger time for the transport (in seconds, 0 = os default, only for tcp)"))
}

// InitConfig loads .env files and initializes viper from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("rms")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// the endpoint may also come from HOST
	_ = viper.BindEnv("endpoint", "RMS_ENDPOINT", "HOST")
}

// InitLoggers sets the log level of all loggers from the configuration
func InitLoggers() error {
	return common.InitLoggers(viper.GetString("log-level"))
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() (*common.ClientConfig, error) {
	maxFrame := viper.GetInt("transport-max-frame")
	if maxFrame <= 0 {
		return nil, fmt.Errorf("invalid transport-max-frame %d: must be greater than 0", maxFrame)
	}

	return &common.ClientConfig{
		Endpoint:      viper.GetString("endpoint"),
		TimeoutSecond: viper.GetInt("timeout"),
		FailPending:   viper.GetBool("fail-pending"),
		Transport: common.ClientTransportConfig{
			SocketConf: getSocketConf(),
			TCPConf:    getTCPConf(),
			FrameConf: common.FrameConf{
				ReadChunkSize: viper.GetInt("transport-read-chunk") * 1024,
				MaxFrameBytes: uint64(maxFrame) * 1024,
			},
		},
	}, nil
}

// GetServerTransportConfig reads the server transport options from viper
func GetServerTransportConfig() common.ServerTransportConfig {
	return common.ServerTransportConfig{
		SocketConf: getSocketConf(),
		TCPConf:    getTCPConf(),
		FrameConf: common.FrameConf{
			ReadChunkSize: viper.GetInt("transport-read-chunk") * 1024,
		},
	}
}

func getSocketConf() common.SocketConf {
	return common.SocketConf{
		WriteBufferSize: viper.GetInt("transport-write-buffer") * 1024,
		ReadBufferSize:  viper.GetInt("transport-read-buffer") * 1024,
	}
}

func getTCPConf() common.TCPConf {
	return common.TCPConf{
		TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
		TCPLingerSec:    viper.GetInt("transport-tcp-linger"),
		TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
	}
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	switch viper.GetString("serializer") {
	case "protobuf":
		return serializer.NewProtobufSerializer(), nil
	case "json":
		return serializer.NewJSONSerializer(), nil
	case "gob":
		return serializer.NewGOBSerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}
}

// GetTransport creates a client transport based on configuration
func GetTransport(s serializer.IRPCSerializer) (transport.IRPCClientTransport, error) {
	switch viper.GetString("transport") {
	case "tcp":
		return tcp.NewTCPClientTransport(s), nil
	case "unix":
		return unix.NewUnixClientTransport(s), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// GetServerTransport creates a server transport based on configuration
func GetServerTransport(s serializer.IRPCSerializer, maxWorkersPerConn int) (transport.IRPCServerTransport, error) {
	switch viper.GetString("transport") {
	case "tcp":
		return tcp.NewTCPServerTransport(s, maxWorkersPerConn), nil
	case "unix":
		return unix.NewUnixServerTransport(s, maxWorkersPerConn), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
