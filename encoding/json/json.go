// Package json is a drop-in replacement for encoding/json. It defaults to
// bytedance/sonic where the platform supports it; build with the sonic_off tag
// to force the standard library.
package json

import stdjson "encoding/json" //nolint:depguard // RawMessage and error types are shared by both backends

type (
	// RawMessage is a raw encoded JSON value.
	RawMessage = stdjson.RawMessage
	// Marshaler is implemented by types that can marshal themselves into valid JSON.
	Marshaler = stdjson.Marshaler
	// Unmarshaler is implemented by types that can unmarshal a JSON description of themselves.
	Unmarshaler = stdjson.Unmarshaler
	// SyntaxError is a description of a JSON syntax error.
	SyntaxError = stdjson.SyntaxError
	// UnmarshalTypeError describes a JSON value that was not appropriate for a Go type.
	UnmarshalTypeError = stdjson.UnmarshalTypeError
)
