package serializer

import (
	"fmt"
	"github.com/ValentinKolb/rmemstore/rpc/common"
	"google.golang.org/protobuf/encoding/protowire"
)

// NewProtobufSerializer creates a new serializer producing the protobuf wire
// format of the rmemstore message schema. It is the format spoken by rmemstored.
func NewProtobufSerializer() IRPCSerializer {
	return &protobufSerializerImpl{}
}

// protobufSerializerImpl implements IRPCSerializer by hand-encoding the
// rmemstore schema with protowire:
//
//	Rpc      { uint64 id = 1; uint32 code = 2; oneof command { Put put = 3; Get get = 4; } }
//	Response { uint64 id = 1; uint32 code = 2; oneof kind { bool ok = 3; Value value = 4; } }
//	Value    { oneof kind { bytes blob = 1; string string = 2; Map map = 3; } }
//	Map      { map<string, Value> map = 1; }
//	Put      { bytes key = 1; Value value = 2; }
//	Get      { bytes key = 1; }
type protobufSerializerImpl struct {
}

// Field numbers of the schema
const (
	fieldID    protowire.Number = 1
	fieldCode  protowire.Number = 2
	fieldPut   protowire.Number = 3
	fieldGet   protowire.Number = 4
	fieldOk    protowire.Number = 3
	fieldValue protowire.Number = 4

	fieldValueBlob   protowire.Number = 1
	fieldValueString protowire.Number = 2
	fieldValueMap    protowire.Number = 3

	fieldMapEntries    protowire.Number = 1
	fieldMapEntryKey   protowire.Number = 1
	fieldMapEntryValue protowire.Number = 2

	fieldCommandKey   protowire.Number = 1
	fieldCommandValue protowire.Number = 2
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (p protobufSerializerImpl) SerializeRequest(req common.Request) ([]byte, error) {
	b := appendHeader(nil, req.ID, req.Code)

	switch req.Op {
	case common.OpPut:
		var put []byte
		if len(req.Key) > 0 {
			put = protowire.AppendTag(put, fieldCommandKey, protowire.BytesType)
			put = protowire.AppendBytes(put, req.Key)
		}
		if req.Value != nil {
			value, err := appendValue(nil, req.Value)
			if err != nil {
				return nil, err
			}
			put = protowire.AppendTag(put, fieldCommandValue, protowire.BytesType)
			put = protowire.AppendBytes(put, value)
		}
		b = protowire.AppendTag(b, fieldPut, protowire.BytesType)
		b = protowire.AppendBytes(b, put)
	case common.OpGet:
		var get []byte
		if len(req.Key) > 0 {
			get = protowire.AppendTag(get, fieldCommandKey, protowire.BytesType)
			get = protowire.AppendBytes(get, req.Key)
		}
		b = protowire.AppendTag(b, fieldGet, protowire.BytesType)
		b = protowire.AppendBytes(b, get)
	case common.OpUnknown:
		// no command
	default:
		return nil, fmt.Errorf("unsupported op type: %d", req.Op)
	}

	return b, nil
}

func (p protobufSerializerImpl) DeserializeRequest(data []byte, req *common.Request) error {
	*req = common.Request{}

	return walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldID && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			req.ID = v
			return n, nil
		case num == fieldCode && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			req.Code = uint32(v)
			return n, nil
		case (num == fieldPut || num == fieldGet) && typ == protowire.BytesType:
			cmd, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			req.Op = common.OpPut
			if num == fieldGet {
				req.Op = common.OpGet
			}
			req.Key, req.Value = nil, nil
			return n, consumeCommand(cmd, req)
		}
		return 0, nil
	})
}

func (p protobufSerializerImpl) SerializeResponse(resp common.Response) ([]byte, error) {
	b := appendHeader(nil, resp.ID, resp.Code)

	if resp.Value != nil {
		value, err := appendValue(nil, resp.Value)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, fieldValue, protowire.BytesType)
		b = protowire.AppendBytes(b, value)
	} else if resp.Ok {
		b = protowire.AppendTag(b, fieldOk, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}

	return b, nil
}

func (p protobufSerializerImpl) DeserializeResponse(data []byte, resp *common.Response) error {
	*resp = common.Response{}

	return walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldID && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			resp.ID = v
			return n, nil
		case num == fieldCode && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			resp.Code = uint32(v)
			return n, nil
		case num == fieldOk && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			resp.Ok = protowire.DecodeBool(v)
			resp.Value = nil
			return n, nil
		case num == fieldValue && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			value, err := consumeValue(raw)
			resp.Ok = true
			resp.Value = value
			return n, err
		}
		return 0, nil
	})
}

func (p protobufSerializerImpl) Name() string {
	return "protobuf"
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// walkFields calls fn for every field of the message in data.
// fn returns the number of bytes of the field value it consumed (or a negative
// protowire error code), returning 0 skips the field.
func walkFields(data []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]

		m, err := fn(num, typ, data)
		if err != nil {
			return err
		}
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, data)
		}
		if m < 0 {
			return fmt.Errorf("field %d: %w", num, protowire.ParseError(m))
		}
		data = data[m:]
	}
	return nil
}

// appendHeader appends the id and code fields shared by Rpc and Response
func appendHeader(b []byte, id uint64, code uint32) []byte {
	if id != 0 {
		b = protowire.AppendTag(b, fieldID, protowire.VarintType)
		b = protowire.AppendVarint(b, id)
	}
	if code != 0 {
		b = protowire.AppendTag(b, fieldCode, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(code))
	}
	return b
}

// appendValue appends the encoded Value message (without tag and length)
func appendValue(b []byte, v *common.Value) ([]byte, error) {
	switch v.Kind {
	case common.KindBlob:
		b = protowire.AppendTag(b, fieldValueBlob, protowire.BytesType)
		b = protowire.AppendBytes(b, v.Blob)
	case common.KindString:
		b = protowire.AppendTag(b, fieldValueString, protowire.BytesType)
		b = protowire.AppendString(b, v.String)
	case common.KindMap:
		var m []byte
		for key, entry := range v.Map {
			var e []byte
			e = protowire.AppendTag(e, fieldMapEntryKey, protowire.BytesType)
			e = protowire.AppendString(e, key)
			if entry != nil {
				value, err := appendValue(nil, entry)
				if err != nil {
					return nil, err
				}
				e = protowire.AppendTag(e, fieldMapEntryValue, protowire.BytesType)
				e = protowire.AppendBytes(e, value)
			}
			m = protowire.AppendTag(m, fieldMapEntries, protowire.BytesType)
			m = protowire.AppendBytes(m, e)
		}
		b = protowire.AppendTag(b, fieldValueMap, protowire.BytesType)
		b = protowire.AppendBytes(b, m)
	default:
		return nil, fmt.Errorf("unknown value kind: %d", v.Kind)
	}
	return b, nil
}

// consumeValue decodes a Value message, byte fields are copied
func consumeValue(data []byte) (*common.Value, error) {
	v := &common.Value{}

	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.BytesType {
			return 0, nil
		}
		switch num {
		case fieldValueBlob:
			raw, n := protowire.ConsumeBytes(b)
			if n >= 0 {
				*v = common.Value{Kind: common.KindBlob, Blob: append([]byte{}, raw...)}
			}
			return n, nil
		case fieldValueString:
			s, n := protowire.ConsumeString(b)
			if n >= 0 {
				*v = common.Value{Kind: common.KindString, String: s}
			}
			return n, nil
		case fieldValueMap:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			m, err := consumeMap(raw)
			*v = common.Value{Kind: common.KindMap, Map: m}
			return n, err
		}
		return 0, nil
	})

	return v, err
}

// consumeMap decodes the entries of a Map message
func consumeMap(data []byte) (map[string]*common.Value, error) {
	m := make(map[string]*common.Value)

	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != fieldMapEntries || typ != protowire.BytesType {
			return 0, nil
		}
		raw, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n, nil
		}

		var key string
		value := &common.Value{}
		err := walkFields(raw, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			if typ != protowire.BytesType {
				return 0, nil
			}
			switch num {
			case fieldMapEntryKey:
				s, n := protowire.ConsumeString(b)
				key = s
				return n, nil
			case fieldMapEntryValue:
				raw, n := protowire.ConsumeBytes(b)
				if n < 0 {
					return n, nil
				}
				v, err := consumeValue(raw)
				value = v
				return n, err
			}
			return 0, nil
		})
		m[key] = value
		return n, err
	})

	return m, err
}

// consumeCommand decodes a Put or Get message into req
func consumeCommand(data []byte, req *common.Request) error {
	return walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.BytesType {
			return 0, nil
		}
		switch {
		case num == fieldCommandKey:
			raw, n := protowire.ConsumeBytes(b)
			if n >= 0 {
				req.Key = append([]byte{}, raw...)
			}
			return n, nil
		case num == fieldCommandValue && req.Op == common.OpPut:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			v, err := consumeValue(raw)
			req.Value = v
			return n, err
		}
		return 0, nil
	})
}
