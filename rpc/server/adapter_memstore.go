package server

import (
	"github.com/ValentinKolb/rmemstore/lib/memstore"
	"github.com/ValentinKolb/rmemstore/rpc/common"
)

// NewMemStoreServerAdapter creates the adapter that maps put and get requests onto a memstore.IStore
func NewMemStoreServerAdapter() IRPCServerAdapter {
	return &memStoreServerAdapterImpl{}
}

type memStoreServerAdapterImpl struct{}

func (adapter *memStoreServerAdapterImpl) Handle(req *common.Request, store memstore.IStore) *common.Response {
	// Check for nil store
	if store == nil {
		Logger.Errorf("handler: store is nil")
		return common.NewOkResponse(req.ID, false)
	}

	// Handle different operations
	switch req.Op {
	case common.OpPut:
		if err := store.Put(req.Key, req.Value); err != nil {
			Logger.Warningf("put %q failed: %v", req.Key, err)
			return common.NewOkResponse(req.ID, false)
		}
		return common.NewOkResponse(req.ID, true)

	case common.OpGet:
		val, ok, err := store.Get(req.Key)
		if err != nil {
			Logger.Warningf("get %q failed: %v", req.Key, err)
		}
		// Case miss: empty response
		if !ok || err != nil {
			return common.NewOkResponse(req.ID, false)
		}
		return common.NewValueResponse(req.ID, val)

	default:
		Logger.Warningf("unsupported operation %s in request %d", req.Op, req.ID)
		return common.NewOkResponse(req.ID, false)
	}
}
