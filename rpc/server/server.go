package server

import (
	"github.com/ValentinKolb/rmemstore/lib/memstore"
	"github.com/ValentinKolb/rmemstore/rpc/common"
	"github.com/ValentinKolb/rmemstore/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"os/signal"
	"runtime"
	"syscall"
)

var Logger = logger.GetLogger("rpc")

// NewRPCServer creates a new RPC server
// It takes a config, a transport and the store that answers requests as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		tcp.NewTCPServerTransport(serializer.NewProtobufSerializer(), config.MaxWorkersPerConn),
//		memstore.NewMemStore(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	store memstore.IStore,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	Logger.Infof("Created RPC Server")
	Logger.Infof(config.String())

	return &RPCServer{
		config:    config,
		transport: transport,
		store:     store,
		adapter:   NewMemStoreServerAdapter(),
	}
}

// RPCServer answers requests of a server transport from a store
type RPCServer struct {
	config    common.ServerConfig
	transport transport.IRPCServerTransport
	store     memstore.IStore
	adapter   IRPCServerAdapter
}

// Handle processes a single request, it is registered as the transport handler
func (s *RPCServer) Handle(req common.Request) common.Response {
	return *s.adapter.Handle(&req, s.store)
}

// Serve registers the handler and serves the transport until Close is called
func (s *RPCServer) Serve() error {
	s.transport.RegisterHandler(s.Handle)
	return s.transport.Listen(s.config)
}

// Ready is closed once the server accepts connections or Serve failed to listen
func (s *RPCServer) Ready() <-chan struct{} {
	return s.transport.Ready()
}

// Close stops the transport, Serve returns afterward
func (s *RPCServer) Close() error {
	return s.transport.Close()
}
