// Package json wraps bytedance/sonic behind the subset of the encoding/json
// API that dashreq uses.
package json

import (
	stdjson "encoding/json"

	"github.com/bytedance/sonic"
)

// api mirrors encoding/json behavior: map keys sorted, HTML escaped.
var api = sonic.ConfigStd

type (
	RawMessage = stdjson.RawMessage
	Number     = stdjson.Number
)

func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return api.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}

func Valid(data []byte) bool {
	return api.Valid(data)
}
