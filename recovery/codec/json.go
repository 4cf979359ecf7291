package codec

import (
	"bytes"
	"encoding/json"
)

// JSON encodes values as JSON. Numbers decoded into interface{} targets
// become float64, as with encoding/json.
type JSON struct{}

// NewJSON returns a JSON codec.
func NewJSON() *JSON {
	return &JSON{}
}

func (c *JSON) Encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (c *JSON) Decode(data []byte, v interface{}) error {
	return json.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (c *JSON) Name() string { return NameJSON }
