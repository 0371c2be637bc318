package client

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/rmemstore/lib/memstore"
	"github.com/ValentinKolb/rmemstore/rpc/common"
	"github.com/ValentinKolb/rmemstore/rpc/serializer"
	"github.com/ValentinKolb/rmemstore/rpc/server"
	"github.com/ValentinKolb/rmemstore/rpc/transport"
	"github.com/ValentinKolb/rmemstore/rpc/transport/tcp"
	"sync"
	"testing"
	"time"
)

// startServer runs a development server on a random local port
func startServer(t *testing.T) string {
	t.Helper()

	serverTransport := tcp.NewTCPServerTransport(serializer.NewProtobufSerializer(), 4)
	s := server.NewRPCServer(common.ServerConfig{Endpoint: "127.0.0.1:0"}, serverTransport, memstore.NewMemStore())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve() }()

	select {
	case <-s.Ready():
	case err := <-errCh:
		t.Fatalf("Serve failed: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatalf("Timeout waiting for the server")
	}

	t.Cleanup(func() {
		_ = s.Close()
		<-errCh
	})
	return serverTransport.Addr().String()
}

// newClient connects a typed client to endpoint
func newClient(t *testing.T, endpoint string) IMemstore {
	t.Helper()

	c, err := NewRPCMemstore(
		common.ClientConfig{Endpoint: endpoint, TimeoutSecond: 5},
		tcp.NewTCPClientTransport(serializer.NewProtobufSerializer()),
	)
	if err != nil {
		t.Fatalf("NewRPCMemstore failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestPutGet(t *testing.T) {
	c := newClient(t, startServer(t))
	ctx := context.Background()

	if _, ok, err := c.Get(ctx, []byte("missing")); ok || err != nil {
		t.Errorf("Expected miss, got ok=%v err=%v", ok, err)
	}

	values := map[string]*common.Value{
		"blob":   common.BlobValue([]byte{0, 1, 2}),
		"string": common.StringValue("hello"),
		"map": common.MapValue(map[string]*common.Value{
			"nested": common.StringValue("value"),
		}),
	}

	for key, value := range values {
		if err := c.Put(ctx, []byte(key), value); err != nil {
			t.Fatalf("Put %s failed: %v", key, err)
		}
	}

	for key, want := range values {
		got, ok, err := c.Get(ctx, []byte(key))
		if err != nil || !ok {
			t.Fatalf("Get %s failed: ok=%v err=%v", key, ok, err)
		}
		if got.Kind != want.Kind || got.Text() != want.Text() {
			t.Errorf("Get %s: expected %s, got %s", key, want.Text(), got.Text())
		}
	}
}

func TestPutRejected(t *testing.T) {
	c := newClient(t, startServer(t))

	err := c.Put(context.Background(), []byte("k"), nil)
	if !errors.Is(err, ErrRejected) {
		t.Errorf("Expected ErrRejected, got %v", err)
	}
}

func TestConcurrentClients(t *testing.T) {
	endpoint := startServer(t)
	c := newClient(t, endpoint)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := []byte(fmt.Sprintf("key-%d", i))
			if err := c.Put(ctx, key, common.BlobValue(key)); err != nil {
				t.Errorf("Put failed: %v", err)
				return
			}
			got, ok, err := c.Get(ctx, key)
			if err != nil || !ok || string(got.Blob) != string(key) {
				t.Errorf("Get %s: ok=%v err=%v value=%v", key, ok, err, got)
			}
		}(i)
	}
	wg.Wait()

	// a second connection sees the same store
	other := newClient(t, endpoint)
	if _, ok, err := other.Get(ctx, []byte("key-0")); !ok || err != nil {
		t.Errorf("Expected key-0 from second client, got ok=%v err=%v", ok, err)
	}
}

func TestClosedClient(t *testing.T) {
	c := newClient(t, startServer(t))
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	_, _, err := c.Get(context.Background(), []byte("k"))
	if !errors.Is(err, transport.ErrClientClosed) {
		t.Errorf("Expected ErrClientClosed, got %v", err)
	}
}

func TestConnectError(t *testing.T) {
	_, err := NewRPCMemstore(
		common.ClientConfig{},
		tcp.NewTCPClientTransport(serializer.NewProtobufSerializer()),
	)
	if err == nil {
		t.Errorf("Expected error without endpoint")
	}
}
