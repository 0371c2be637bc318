// Package memstore provides the in-memory key/value store used by the
// development server. Keys are arbitrary byte strings, values are
// common.Value trees (blob, string or map).
//
// The store is a plain concurrent map. Eviction and memory accounting are
// not implemented.
package memstore
