// Package codec provides encoding functionality for response payloads.
package codec

import "google.golang.org/protobuf/proto"

// Codec serializes a response payload for the transport.
type Codec interface {
	// ContentType returns the Content-Type header value for encoded payloads.
	ContentType() string

	// Encode serializes data into the wire format.
	Encode(data any) ([]byte, error)
}

// ForData returns the codec suited to data.
// Protocol Buffers messages use ProtoCodec, everything else uses JSONCodec.
func ForData(data any) Codec {
	if _, ok := data.(proto.Message); ok {
		return NewProtoCodec()
	}
	return NewJSONCodec()
}
