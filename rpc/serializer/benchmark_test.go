package serializer

import (
	"github.com/ValentinKolb/rmemstore/rpc/common"
	"testing"
)

// benchmarkRequests returns a set of requests for targeted benchmarking
func benchmarkRequests() map[string]common.Request {
	return map[string]common.Request{
		"SmallGet": {
			ID:  1,
			Op:  common.OpGet,
			Key: []byte("k"),
		},
		"LargeKeyGet": {
			ID:  1 << 20,
			Op:  common.OpGet,
			Key: []byte("this-is-a-very-large-key-that-could-be-used-for-storing-data-or-as-a-document-id-in-some-cases"),
		},
		"SmallPut": {
			ID:    2,
			Op:    common.OpPut,
			Key:   []byte("key"),
			Value: common.StringValue("v"),
		},
		"LargePut": {
			ID:    3,
			Op:    common.OpPut,
			Key:   []byte("key"),
			Value: common.BlobValue(make([]byte, 1024*16)), // 16KB of data
		},
		"MapPut": {
			ID:  4,
			Op:  common.OpPut,
			Key: []byte("key"),
			Value: common.MapValue(map[string]*common.Value{
				"name":  common.StringValue("rmemstore"),
				"bytes": common.BlobValue(make([]byte, 64)),
			}),
		},
	}
}

// BenchmarkSerializeRequest benchmarks request serialization for all implementations
func BenchmarkSerializeRequest(b *testing.B) {
	for name, factory := range testSerializers {
		for reqName, req := range benchmarkRequests() {
			b.Run(name+"_"+reqName, func(b *testing.B) {
				serializer := factory()
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					if _, err := serializer.SerializeRequest(req); err != nil {
						b.Fatalf("Failed to serialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkDeserializeResponse benchmarks response deserialization for all implementations
func BenchmarkDeserializeResponse(b *testing.B) {
	responses := map[string]common.Response{
		"Ok":        *common.NewOkResponse(1, true),
		"SmallBlob": *common.NewValueResponse(2, common.BlobValue([]byte("value"))),
		"LargeBlob": *common.NewValueResponse(3, common.BlobValue(make([]byte, 1024*16))),
	}

	for name, factory := range testSerializers {
		for respName, resp := range responses {
			serializer := factory()
			data, err := serializer.SerializeResponse(resp)
			if err != nil {
				b.Fatalf("Failed to serialize %s with %s: %v", respName, name, err)
			}

			b.Run(name+"_"+respName, func(b *testing.B) {
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					var msg common.Response
					if err := serializer.DeserializeResponse(data, &msg); err != nil {
						b.Fatalf("Failed to deserialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkSize measures and reports the serialized size for each request
func BenchmarkSize(b *testing.B) {
	for name, factory := range testSerializers {
		serializer := factory()

		for reqName, req := range benchmarkRequests() {
			b.Run(name+"_"+reqName, func(b *testing.B) {
				data, err := serializer.SerializeRequest(req)
				if err != nil {
					b.Fatalf("Failed to serialize: %v", err)
				}

				// Report the size as a custom metric
				b.ReportMetric(float64(len(data)), "bytes")

				for i := 0; i < b.N; i++ {
					_ = data
				}
			})
		}
	}
}
