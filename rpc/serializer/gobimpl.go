package serializer

import (
	"bytes"
	"encoding/gob"
	"github.com/ValentinKolb/rmemstore/rpc/common"
)

// NewGOBSerializer creates a new serializer using Go's binary gob format
func NewGOBSerializer() IRPCSerializer {
	return &gobSerializerImpl{}
}

// gobSerializerImpl implements the IRPCSerializer interface using gob encoding.
// Every envelope is encoded with a fresh encoder, so each frame carries its own type information.
type gobSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (g gobSerializerImpl) SerializeRequest(req common.Request) ([]byte, error) {
	return gobEncode(req)
}

func (g gobSerializerImpl) DeserializeRequest(b []byte, req *common.Request) error {
	*req = common.Request{}
	return gob.NewDecoder(bytes.NewReader(b)).Decode(req)
}

func (g gobSerializerImpl) SerializeResponse(resp common.Response) ([]byte, error) {
	return gobEncode(resp)
}

func (g gobSerializerImpl) DeserializeResponse(b []byte, resp *common.Response) error {
	*resp = common.Response{}
	return gob.NewDecoder(bytes.NewReader(b)).Decode(resp)
}

func (g gobSerializerImpl) Name() string {
	return "gob"
}

func gobEncode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
