package native

import (
	"encoding/json"
)

// MessageCodec encodes and decodes values crossing the script boundary.
type MessageCodec interface {
	// Encode converts a Go value to bytes for the script layer.
	Encode(value any) ([]byte, error)

	// Decode converts bytes from the script layer to a Go value.
	Decode(data []byte) (any, error)
}

// JsonCodec implements MessageCodec using JSON encoding.
type JsonCodec struct{}

// Encode serializes the value to JSON bytes.
func (c JsonCodec) Encode(value any) ([]byte, error) {
	return json.Marshal(value)
}

// Decode deserializes JSON bytes to a Go value. Empty input decodes to nil.
func (c JsonCodec) Decode(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// DefaultCodec is the codec used for event and callback params.
var DefaultCodec MessageCodec = JsonCodec{}

// Normalize round-trips v through codec so the result holds only the
// generic shapes the script layer can see (maps, slices, float64, string,
// bool, nil).
func Normalize(codec MessageCodec, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := codec.Encode(v)
	if err != nil {
		return nil, err
	}
	return codec.Decode(data)
}
