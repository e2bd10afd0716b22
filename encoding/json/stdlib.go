//go:build !(amd64 || arm64) || sonic_off

package json

import (
	stdjson "encoding/json" //nolint:depguard // fallback backend
	"io"
)

// Implementation reports which backend is compiled in.
const Implementation = "encoding/json"

// Marshal returns the JSON encoding of v.
func Marshal(v any) ([]byte, error) {
	return stdjson.Marshal(v)
}

// MarshalIndent is like Marshal but applies Indent to format the output.
func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return stdjson.MarshalIndent(v, prefix, indent)
}

// Unmarshal parses JSON-encoded data and stores the result in the value pointed to by v.
func Unmarshal(data []byte, v any) error {
	return stdjson.Unmarshal(data, v)
}

// NewEncoder returns a new encoder that writes to w.
func NewEncoder(w io.Writer) *stdjson.Encoder {
	return stdjson.NewEncoder(w)
}

// NewDecoder returns a new decoder that reads from r.
func NewDecoder(r io.Reader) *stdjson.Decoder {
	return stdjson.NewDecoder(r)
}

// Valid reports whether data is a valid JSON encoding.
func Valid(data []byte) bool {
	return stdjson.Valid(data)
}
