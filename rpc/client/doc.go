// Package client implements the typed rmemstore client on top of a client
// transport.
//
// Key Components:
//
//   - NewRPCMemstore: Connects a transport and returns an IMemstore with Put
//     and Get. Requests from any number of goroutines share the single
//     connection of the transport, responses are correlated by request id.
//
// Usage Example:
//
//	config := common.ClientConfig{
//		Endpoint:      "127.0.0.1:9466",
//		TimeoutSecond: 5,
//	}
//
//	store, err := client.NewRPCMemstore(config, tcp.NewTCPClientTransport(serializer.NewProtobufSerializer()))
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	_ = store.Put(ctx, []byte("mykey"), common.StringValue("myvalue"))
//	value, found, _ := store.Get(ctx, []byte("mykey"))
//
// Error Handling:
//
//	Transport errors (closed connection, protocol violations, expired
//	contexts) are returned as errors. A put the server does not accept
//	returns an error wrapping ErrRejected, a get without a value is a miss
//	and not an error.
package client
