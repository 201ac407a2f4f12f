// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package corpus

import (
	"encoding/json"

	"github.com/xeipuuv/gojsonschema"
)

// Codec converts a typed value to and from its binary representation.
type Codec[T any] interface {
	Encode(value T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// JSONCodec encodes values as canonical JSON and optionally validates the
// raw document against a JSON schema on decode.
type JSONCodec[T any] struct {
	schema *gojsonschema.Schema
}

// NewJSONCodec creates a codec without schema validation.
func NewJSONCodec[T any]() JSONCodec[T] {
	return JSONCodec[T]{}
}

// NewValidatedJSONCodec creates a codec that validates decoded documents
// against the given JSON schema.
func NewValidatedJSONCodec[T any](schemaJSON string) (JSONCodec[T], error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return JSONCodec[T]{}, Error.New("invalid schema: %v", err)
	}
	return JSONCodec[T]{schema: schema}, nil
}

// Encode marshals the value. encoding/json emits map keys in sorted order,
// which keeps the encoding canonical for content hashing.
func (codec JSONCodec[T]) Encode(value T) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return data, nil
}

// Decode validates and unmarshals stored bytes.
func (codec JSONCodec[T]) Decode(data []byte) (T, error) {
	var value T

	if codec.schema != nil {
		result, err := codec.schema.Validate(gojsonschema.NewBytesLoader(data))
		if err != nil {
			return value, ErrDecode.Wrap(err)
		}
		if !result.Valid() {
			errors := result.Errors()
			if len(errors) > 0 {
				return value, ErrDecode.New("schema violation: %s", errors[0].String())
			}
			return value, ErrDecode.New("schema violation")
		}
	}

	if err := json.Unmarshal(data, &value); err != nil {
		return value, ErrDecode.Wrap(err)
	}
	return value, nil
}
