package base

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/rmemstore/rpc/common"
	"github.com/ValentinKolb/rmemstore/rpc/serializer"
	"github.com/ValentinKolb/rmemstore/rpc/transport"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

// stubServer is the server end of a pipe. It decodes every request it
// receives and lets the test decide when and how to answer.
type stubServer struct {
	t        *testing.T
	conn     net.Conn
	s        serializer.IRPCSerializer
	requests chan common.Request
	mu       sync.Mutex
}

// newStubPair connects a ClientConn to a stub server over net.Pipe
func newStubPair(t *testing.T, config common.ClientConfig) (*ClientConn, *stubServer) {
	t.Helper()

	clientSide, serverSide := net.Pipe()
	s := serializer.NewProtobufSerializer()

	stub := &stubServer{
		t:        t,
		conn:     serverSide,
		s:        s,
		requests: make(chan common.Request, 1024),
	}
	go stub.readRequests()

	config.Endpoint = "pipe"
	c := NewClientConn(clientSide, s, config)

	t.Cleanup(func() {
		_ = c.Close()
		_ = serverSide.Close()
	})
	return c, stub
}

func (s *stubServer) readRequests() {
	defer close(s.requests)

	reader := newFrameReader(s.conn, common.FrameConf{})
	_ = reader.run(func(frame []byte) error {
		var req common.Request
		if err := s.s.DeserializeRequest(frame, &req); err != nil {
			return err
		}
		s.requests <- req
		return nil
	})
}

// next waits for the next request
func (s *stubServer) next() common.Request {
	s.t.Helper()
	select {
	case req, ok := <-s.requests:
		if !ok {
			s.t.Fatalf("Stub server stopped before a request arrived")
		}
		return req
	case <-time.After(2 * time.Second):
		s.t.Fatalf("Timeout waiting for request")
	}
	return common.Request{}
}

// respond writes resp as one frame
func (s *stubServer) respond(resp common.Response) error {
	data, err := s.s.SerializeResponse(resp)
	if err != nil {
		return err
	}
	return s.writeRaw(data)
}

// writeRaw writes an arbitrary frame payload
func (s *stubServer) writeRaw(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := writeFrame(s.conn, frame)
	return err
}

// serve answers every request with the result of handle until the pipe closes
func (s *stubServer) serve(handle func(req common.Request) common.Response) {
	go func() {
		for req := range s.requests {
			if err := s.respond(handle(req)); err != nil {
				return
			}
		}
	}()
}

// waitDone waits until the reader of c stopped
func waitDone(t *testing.T, c *ClientConn) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("Timeout waiting for the reader to stop")
	}
}

// TestClientConnIDSequence tests that ids start at 1 and increase by one per request
func TestClientConnIDSequence(t *testing.T) {
	c, stub := newStubPair(t, common.ClientConfig{})
	stub.serve(func(req common.Request) common.Response {
		return *common.NewOkResponse(req.ID, true)
	})

	for i := uint64(1); i <= 5; i++ {
		resp, err := c.Send(context.Background(), *common.NewGetRequest([]byte("k")))
		if err != nil {
			t.Fatalf("Send %d failed: %v", i, err)
		}
		if resp.ID != i {
			t.Errorf("Expected id %d, got %d", i, resp.ID)
		}
	}

	if c.Pending() != 0 {
		t.Errorf("Expected empty pending table, got %d entries", c.Pending())
	}
}

// TestClientConnPayloadOnWire tests that the stub receives the request as sent
func TestClientConnPayloadOnWire(t *testing.T) {
	c, stub := newStubPair(t, common.ClientConfig{})

	result := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), *common.NewPutRequest([]byte("key"), common.StringValue("value")))
		result <- err
	}()

	req := stub.next()
	if req.ID != 1 || req.Op != common.OpPut || string(req.Key) != "key" || req.Value.Text() != "value" {
		t.Errorf("Unexpected request on the wire: %+v", req)
	}

	if err := stub.respond(*common.NewOkResponse(req.ID, true)); err != nil {
		t.Fatalf("respond failed: %v", err)
	}
	if err := <-result; err != nil {
		t.Errorf("Send failed: %v", err)
	}
}

// TestClientConnOutOfOrder tests that responses are correlated by id and not by order
func TestClientConnOutOfOrder(t *testing.T) {
	const n = 100
	c, stub := newStubPair(t, common.ClientConfig{})

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i)
			resp, err := c.Send(context.Background(), *common.NewPutRequest([]byte(key), common.StringValue(key)))
			if err != nil {
				errs <- err
				return
			}
			if resp.Value == nil || resp.Value.String != key {
				errs <- fmt.Errorf("request %s got response %+v", key, resp.Value)
			}
		}(i)
	}

	// collect all requests first, then answer them in reverse order
	reqs := make([]common.Request, n)
	seen := make(map[uint64]bool, n)
	for i := range reqs {
		reqs[i] = stub.next()
		if seen[reqs[i].ID] {
			t.Fatalf("Duplicate request id %d", reqs[i].ID)
		}
		seen[reqs[i].ID] = true
	}
	for i := n - 1; i >= 0; i-- {
		if err := stub.respond(*common.NewValueResponse(reqs[i].ID, common.StringValue(string(reqs[i].Key)))); err != nil {
			t.Fatalf("respond failed: %v", err)
		}
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	for id := uint64(1); id <= n; id++ {
		if !seen[id] {
			t.Errorf("Request id %d was never sent", id)
		}
	}
	if c.Pending() != 0 {
		t.Errorf("Expected empty pending table, got %d entries", c.Pending())
	}
}

// TestClientConnFailedResponse tests that ok == false is delivered as a normal response
func TestClientConnFailedResponse(t *testing.T) {
	c, stub := newStubPair(t, common.ClientConfig{})
	stub.serve(func(req common.Request) common.Response {
		return *common.NewOkResponse(req.ID, false)
	})

	resp, err := c.Send(context.Background(), *common.NewPutRequest([]byte("k"), common.StringValue("v")))
	if err != nil {
		t.Fatalf("Expected no transport error, got %v", err)
	}
	if !resp.Failed() {
		t.Errorf("Expected a failed response, got %+v", resp)
	}
	if c.Err() != nil {
		t.Errorf("Expected the reader to keep running, got %v", c.Err())
	}
}

// TestClientConnUnknownIDOrphans tests that an unknown id stops the reader
// while pending requests keep waiting
func TestClientConnUnknownIDOrphans(t *testing.T) {
	c, stub := newStubPair(t, common.ClientConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	result := make(chan error, 1)
	go func() {
		_, err := c.Send(ctx, *common.NewGetRequest([]byte("k")))
		result <- err
	}()

	req := stub.next()
	if err := stub.respond(*common.NewOkResponse(req.ID+1000, true)); err != nil {
		t.Fatalf("respond failed: %v", err)
	}

	waitDone(t, c)
	if !errors.Is(c.Err(), transport.ErrUnknownRequestID) {
		t.Errorf("Expected ErrUnknownRequestID, got %v", c.Err())
	}

	// the pending request is not resumed
	select {
	case err := <-result:
		t.Fatalf("Expected the pending request to stay suspended, got %v", err)
	case <-time.After(100 * time.Millisecond):
	}
	if c.Pending() != 1 {
		t.Errorf("Expected 1 pending request, got %d", c.Pending())
	}

	// new requests fail fast
	if _, err := c.Send(context.Background(), *common.NewGetRequest([]byte("k"))); !errors.Is(err, transport.ErrUnknownRequestID) {
		t.Errorf("Expected new request to fail with ErrUnknownRequestID, got %v", err)
	}

	cancel()
	select {
	case err := <-result:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Timeout waiting for the canceled request")
	}
}

// TestClientConnUnknownIDFailPending tests that pending requests fail once the reader stopped
func TestClientConnUnknownIDFailPending(t *testing.T) {
	c, stub := newStubPair(t, common.ClientConfig{FailPending: true})

	result := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), *common.NewGetRequest([]byte("k")))
		result <- err
	}()

	req := stub.next()
	if err := stub.respond(*common.NewOkResponse(req.ID+1, true)); err != nil {
		t.Fatalf("respond failed: %v", err)
	}

	select {
	case err := <-result:
		if !errors.Is(err, transport.ErrUnknownRequestID) {
			t.Errorf("Expected ErrUnknownRequestID, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Timeout waiting for the pending request to fail")
	}

	if c.Pending() != 0 {
		t.Errorf("Expected empty pending table, got %d entries", c.Pending())
	}
}

// TestClientConnDuplicateID tests that a second response for an already
// settled id stops the reader without touching the first result
func TestClientConnDuplicateID(t *testing.T) {
	c, stub := newStubPair(t, common.ClientConfig{})

	type result struct {
		resp common.Response
		err  error
	}
	results := make(chan result, 1)
	go func() {
		resp, err := c.Send(context.Background(), *common.NewGetRequest([]byte("k")))
		results <- result{resp, err}
	}()

	req := stub.next()
	if err := stub.respond(*common.NewValueResponse(req.ID, common.StringValue("first"))); err != nil {
		t.Fatalf("respond failed: %v", err)
	}

	select {
	case r := <-results:
		if r.err != nil {
			t.Fatalf("Send failed: %v", r.err)
		}
		if r.resp.Value == nil || r.resp.Value.String != "first" {
			t.Errorf("Expected value \"first\", got %+v", r.resp.Value)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Timeout waiting for the response")
	}

	if err := stub.respond(*common.NewValueResponse(req.ID, common.StringValue("second"))); err != nil {
		t.Fatalf("respond failed: %v", err)
	}

	waitDone(t, c)
	if !errors.Is(c.Err(), transport.ErrUnknownRequestID) {
		t.Errorf("Expected ErrUnknownRequestID, got %v", c.Err())
	}
}

// TestClientConnMalformedEnvelope tests that an undecodable frame stops the reader
func TestClientConnMalformedEnvelope(t *testing.T) {
	c, stub := newStubPair(t, common.ClientConfig{})

	// field 1 with a truncated varint value
	if err := stub.writeRaw([]byte{0x08, 0xff}); err != nil {
		t.Fatalf("writeRaw failed: %v", err)
	}

	waitDone(t, c)
	if !errors.Is(c.Err(), transport.ErrMalformedEnvelope) {
		t.Errorf("Expected ErrMalformedEnvelope, got %v", c.Err())
	}
}

// TestClientConnCanceledThenLate tests that a response arriving after the
// caller stopped waiting is not treated as unknown
func TestClientConnCanceledThenLate(t *testing.T) {
	c, stub := newStubPair(t, common.ClientConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		_, err := c.Send(ctx, *common.NewGetRequest([]byte("slow")))
		result <- err
	}()

	req := stub.next()
	if err := <-result; !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected context.DeadlineExceeded, got %v", err)
	}
	if c.Pending() != 1 {
		t.Fatalf("Expected the request to stay pending, got %d entries", c.Pending())
	}

	if err := stub.respond(*common.NewOkResponse(req.ID, true)); err != nil {
		t.Fatalf("respond failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for c.Pending() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Timeout waiting for the late response")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if c.Err() != nil {
		t.Fatalf("Expected the reader to keep running, got %v", c.Err())
	}

	// the connection is still usable
	stub.serve(func(req common.Request) common.Response {
		return *common.NewOkResponse(req.ID, true)
	})
	resp, err := c.Send(context.Background(), *common.NewGetRequest([]byte("k")))
	if err != nil {
		t.Fatalf("Send after late response failed: %v", err)
	}
	if resp.ID != 2 {
		t.Errorf("Expected id 2, got %d", resp.ID)
	}
}

// TestClientConnClose tests that Close stops the reader and later requests fail
func TestClientConnClose(t *testing.T) {
	c, _ := newStubPair(t, common.ClientConfig{})

	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Close joins the reader
	select {
	case <-c.Done():
	default:
		t.Fatalf("Expected the reader to be stopped after Close")
	}
	if !errors.Is(c.Err(), transport.ErrClientClosed) {
		t.Errorf("Expected ErrClientClosed, got %v", c.Err())
	}
	if _, err := c.Send(context.Background(), *common.NewGetRequest([]byte("k"))); !errors.Is(err, transport.ErrClientClosed) {
		t.Errorf("Expected ErrClientClosed, got %v", err)
	}

	// Close is idempotent
	if err := c.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}
}

// TestClientConnServerClosed tests that the end of the stream stops the reader cleanly
func TestClientConnServerClosed(t *testing.T) {
	c, stub := newStubPair(t, common.ClientConfig{FailPending: true})

	result := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), *common.NewGetRequest([]byte("k")))
		result <- err
	}()

	stub.next()
	_ = stub.conn.Close()

	waitDone(t, c)
	if !errors.Is(c.Err(), transport.ErrConnectionClosed) {
		t.Errorf("Expected ErrConnectionClosed, got %v", c.Err())
	}
	if err := <-result; !errors.Is(err, transport.ErrConnectionClosed) {
		t.Errorf("Expected pending request to fail with ErrConnectionClosed, got %v", err)
	}
}

// TestClientConnMetrics tests the per-connection metrics
func TestClientConnMetrics(t *testing.T) {
	c, stub := newStubPair(t, common.ClientConfig{})
	stub.serve(func(req common.Request) common.Response {
		return *common.NewOkResponse(req.ID, true)
	})

	for i := 0; i < 3; i++ {
		if _, err := c.Send(context.Background(), *common.NewGetRequest([]byte("k"))); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}

	var buf bytes.Buffer
	c.WriteMetrics(&buf)
	out := buf.String()

	for _, want := range []string{
		`rms_client_requests_total{endpoint="pipe"} 3`,
		`rms_client_responses_total{endpoint="pipe"} 3`,
		`rms_client_pending{endpoint="pipe"} 0`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected metrics to contain %q, got:\n%s", want, out)
		}
	}
}
