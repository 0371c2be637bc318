package client

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/rmemstore/rpc/common"
	"github.com/ValentinKolb/rmemstore/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"time"
)

var (
	Logger = logger.GetLogger("rpc")
)

// ErrRejected is returned when the server answers a request with ok == false
var ErrRejected = errors.New("request rejected by server")

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client
type rpcClientAdapter struct {
	config    common.ClientConfig
	transport transport.IRPCClientTransport
}

// invokeRPCRequest is a helper function used for all RPC Clients to send requests
// It bounds ctx by the configured timeout if ctx has no deadline yet
// It returns the response and an error if the transport failed, application
// level failures are returned as a response
func (a *rpcClientAdapter) invokeRPCRequest(ctx context.Context, req *common.Request) (common.Response, error) {
	if _, ok := ctx.Deadline(); !ok && a.config.TimeoutSecond > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(a.config.TimeoutSecond)*time.Second)
		defer cancel()
	}

	resp, err := a.transport.Send(ctx, *req)
	if err != nil {
		return common.Response{}, fmt.Errorf("RPC %s - Error: %w", req.Op, err)
	}
	return resp, nil
}
