package codec

import (
	"encoding/json"
)

// JSONCodec is a codec that uses JSON for marshaling response payloads.
type JSONCodec struct{}

// NewJSONCodec creates a new JSONCodec instance.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// ContentType returns the JSON content type.
func (c *JSONCodec) ContentType() string {
	return "application/json"
}

// Encode marshals data to JSON.
// A nil payload encodes to an empty body rather than "null".
func (c *JSONCodec) Encode(data any) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	return json.Marshal(data)
}
