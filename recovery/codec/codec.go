// Package codec provides the byte encodings used to persist recovery snapshots.
package codec

import "fmt"

// Codec defines the serialization contract for snapshots and step results.
//
// Implementations must round-trip arbitrary composite and scalar values:
// maps with string keys, slices, strings, numbers, booleans, nil and
// time.Time. Decoding into an interface{} target yields generic shapes
// (map[string]interface{}, []interface{}, int64/uint64/float64) rather than
// the caller's original Go types.
type Codec interface {
	// Encode serializes v to bytes.
	Encode(v interface{}) ([]byte, error)

	// Decode deserializes data into the value pointed to by v.
	Decode(data []byte, v interface{}) error

	// Name returns the codec identifier ("msgpack", "json").
	Name() string
}

// Codec names accepted by ByName.
const (
	NameMsgpack = "msgpack"
	NameJSON    = "json"
)

// Default returns the binary codec used when none is configured.
func Default() Codec {
	return NewMsgpack()
}

// ByName returns the codec registered under name. The empty name selects
// the default codec.
func ByName(name string) (Codec, error) {
	switch name {
	case NameMsgpack, "":
		return NewMsgpack(), nil
	case NameJSON:
		return NewJSON(), nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

// Convert re-shapes src into the value pointed to by dst by encoding and
// decoding it with c. It is used to turn replayed step results, which come
// back in generic decoded shapes, into concrete Go types.
func Convert(c Codec, src, dst interface{}) error {
	data, err := c.Encode(src)
	if err != nil {
		return fmt.Errorf("failed to encode value: %w", err)
	}
	if err := c.Decode(data, dst); err != nil {
		return fmt.Errorf("failed to decode value: %w", err)
	}
	return nil
}
