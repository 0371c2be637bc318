package tcp

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/rmemstore/rpc/common"
	"github.com/ValentinKolb/rmemstore/rpc/serializer"
	"github.com/ValentinKolb/rmemstore/rpc/transport"
	"sync"
	"testing"
	"time"
)

// echoHandler answers every request with its key as string value
func echoHandler(req common.Request) common.Response {
	if req.Op != common.OpGet {
		return *common.NewOkResponse(req.ID, req.Op == common.OpPut)
	}
	return *common.NewValueResponse(req.ID, common.StringValue(string(req.Key)))
}

// startServer starts a TCP server on a random port and returns it once it accepts connections
func startServer(t *testing.T, s serializer.IRPCSerializer) transport.IRPCServerTransport {
	t.Helper()

	server := NewTCPServerTransport(s, 8)
	server.RegisterHandler(echoHandler)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(common.ServerConfig{
			Endpoint:      "127.0.0.1:0",
			TimeoutSecond: 5,
			Transport: common.ServerTransportConfig{
				TCPConf: common.TCPConf{TCPNoDelay: true},
			},
		})
	}()

	select {
	case <-server.Ready():
	case err := <-errCh:
		t.Fatalf("Listen failed: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatalf("Timeout waiting for the server")
	}

	t.Cleanup(func() {
		_ = server.Close()
		if err := <-errCh; err != nil {
			t.Errorf("Listen returned %v after Close", err)
		}
	})
	return server
}

// TestTCPRoundTrip tests concurrent requests against a real TCP server with every serializer
func TestTCPRoundTrip(t *testing.T) {
	serializers := map[string]func() serializer.IRPCSerializer{
		"Protobuf": serializer.NewProtobufSerializer,
		"JSON":     serializer.NewJSONSerializer,
		"GOB":      serializer.NewGOBSerializer,
	}

	for name, factory := range serializers {
		t.Run(name, func(t *testing.T) {
			server := startServer(t, factory())

			client := NewTCPClientTransport(factory())
			if err := client.Connect(common.ClientConfig{
				Endpoint:      server.Addr().String(),
				TimeoutSecond: 5,
				Transport: common.ClientTransportConfig{
					TCPConf: common.TCPConf{TCPNoDelay: true, TCPKeepAliveSec: 30},
				},
			}); err != nil {
				t.Fatalf("Connect failed: %v", err)
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					key := fmt.Sprintf("key-%d", i)
					resp, err := client.Send(ctx, *common.NewGetRequest([]byte(key)))
					if err != nil {
						t.Errorf("Send %s failed: %v", key, err)
						return
					}
					if resp.Value.Text() != key {
						t.Errorf("Expected %q, got %q", key, resp.Value.Text())
					}
				}(i)
			}
			wg.Wait()

			resp, err := client.Send(ctx, *common.NewPutRequest([]byte("k"), common.StringValue("v")))
			if err != nil || resp.Failed() {
				t.Errorf("Put failed: %v %+v", err, resp)
			}
		})
	}
}

// TestTCPServerClose tests that clients notice when the server goes away
func TestTCPServerClose(t *testing.T) {
	s := serializer.NewProtobufSerializer()
	server := startServer(t, s)

	client := NewTCPClientTransport(s)
	if err := client.Connect(common.ClientConfig{Endpoint: server.Addr().String()}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	if _, err := client.Send(context.Background(), *common.NewGetRequest([]byte("k"))); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if err := server.Close(); err != nil {
		t.Fatalf("Server close failed: %v", err)
	}

	select {
	case <-client.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("Timeout waiting for the client to notice the closed connection")
	}
	if !errors.Is(client.Err(), transport.ErrConnectionClosed) {
		t.Errorf("Expected ErrConnectionClosed, got %v", client.Err())
	}
}

// TestTCPConnectErrors tests misuse of the client transport
func TestTCPConnectErrors(t *testing.T) {
	client := NewTCPClientTransport(serializer.NewProtobufSerializer())

	if _, err := client.Send(context.Background(), *common.NewGetRequest([]byte("k"))); !errors.Is(err, transport.ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
	if err := client.Connect(common.ClientConfig{}); err == nil {
		t.Errorf("Expected error for empty endpoint")
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close of an unconnected transport failed: %v", err)
	}
}

// TestTCPListenError tests that Ready is released when the listener cannot be created
func TestTCPListenError(t *testing.T) {
	first := startServer(t, serializer.NewProtobufSerializer())

	server := NewTCPServerTransport(serializer.NewProtobufSerializer(), 1)
	server.RegisterHandler(echoHandler)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(common.ServerConfig{Endpoint: first.Addr().String()})
	}()

	select {
	case <-server.Ready():
	case <-time.After(2 * time.Second):
		t.Fatalf("Timeout waiting for Ready after a failed Listen")
	}

	if err := <-errCh; err == nil {
		t.Fatalf("Expected Listen to fail on an address in use")
	}
	if addr := server.Addr(); addr != nil {
		t.Errorf("Expected no address after a failed Listen, got %v", addr)
	}
	if err := server.Close(); err != nil {
		t.Errorf("Close after a failed Listen returned %v", err)
	}
}
