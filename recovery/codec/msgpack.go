package codec

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack encodes values as MessagePack.
//
// Struct fields are named by their `json` tags so that a type serializes to
// the same field names under either codec. Map keys are sorted on encode,
// which makes identical snapshots byte-identical.
type Msgpack struct{}

// NewMsgpack returns a MessagePack codec.
func NewMsgpack() *Msgpack {
	return &Msgpack{}
}

func (c *Msgpack) Encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Msgpack) Decode(data []byte, v interface{}) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	dec.UseLooseInterfaceDecoding(true)
	return dec.Decode(v)
}

func (c *Msgpack) Name() string { return NameMsgpack }
