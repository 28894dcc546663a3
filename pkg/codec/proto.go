package codec

import (
	"fmt"

	"google.golang.org/protobuf/proto"
)

// ProtoCodec is a codec that uses Protocol Buffers for marshaling response payloads.
// The payload must implement proto.Message.
type ProtoCodec struct{}

// NewProtoCodec creates a new ProtoCodec instance.
func NewProtoCodec() *ProtoCodec {
	return &ProtoCodec{}
}

// ContentType returns the Protocol Buffers content type.
func (c *ProtoCodec) ContentType() string {
	return "application/x-protobuf"
}

// Encode marshals data to the Protocol Buffers wire format.
func (c *ProtoCodec) Encode(data any) ([]byte, error) {
	msg, ok := data.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("type %T does not implement proto.Message", data)
	}
	return proto.Marshal(msg)
}
