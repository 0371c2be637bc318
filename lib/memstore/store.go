package memstore

import (
	"github.com/ValentinKolb/rmemstore/rpc/common"
	"github.com/puzpuzpuz/xsync/v3"
)

type storeImpl struct {
	data *xsync.MapOf[string, *common.Value]
}

// NewMemStore creates a new in-memory store.
// Values are kept as they are passed to Put and must not be modified afterward.
func NewMemStore() IStore {
	return &storeImpl{
		data: xsync.NewMapOf[string, *common.Value](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see memstore/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Put(key []byte, value *common.Value) error {
	if len(key) == 0 {
		return NewError(RetCInvalidOperation, "key must not be empty")
	}
	if value == nil {
		return NewError(RetCInvalidOperation, "value must not be nil")
	}
	s.data.Store(string(key), value)
	return nil
}

func (s *storeImpl) Get(key []byte) (*common.Value, bool, error) {
	if len(key) == 0 {
		return nil, false, NewError(RetCInvalidOperation, "key must not be empty")
	}
	val, ok := s.data.Load(string(key))
	return val, ok, nil
}

func (s *storeImpl) Len() int {
	return s.data.Size()
}
