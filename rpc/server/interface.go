package server

import (
	"github.com/ValentinKolb/rmemstore/lib/memstore"
	"github.com/ValentinKolb/rmemstore/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for handling requests and responses
type IRPCServerAdapter interface {
	// Handle handles a request and returns a response
	// It takes a Request and a store as parameters.
	// It returns a Response, an operation that did not succeed is answered
	// with a response that carries neither ok nor a value
	Handle(req *common.Request, store memstore.IStore) (resp *common.Response)
}
