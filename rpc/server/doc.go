// Package server implements the development server for the rmemstore
// protocol. It answers put and get requests from a memstore.IStore and is
// meant for testing clients locally, not for production use.
//
// Key Components:
//
//   - RPCServer: Registers itself as handler on a server transport and
//     serves it until Close is called.
//
//   - IRPCServerAdapter: Maps a request onto store operations. The memstore
//     adapter answers a successful put with ok, a hit with the value and
//     every other case (miss, invalid request, unknown operation) with an
//     empty response.
//
// Usage Example:
//
//	s := server.NewRPCServer(config, unix.NewUnixServerTransport(serializer.NewProtobufSerializer(), 4), memstore.NewMemStore())
//	go s.Serve()
//	<-s.Ready()
//	defer s.Close()
package server
