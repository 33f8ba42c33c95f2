package libraryapi

import (
	"bytes"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DecodeList decodes a list response into out, which must point to a slice.
// The backend answers either with a bare array or with an object carrying the
// array under key (e.g. {"books": [...]}); both decode to the same slice.
// An empty or null body, or a null array under key, decodes to an empty list.
func DecodeList(body []byte, key string, out any) error {
	trimmed := bytes.TrimSpace(body)
	if isNull(trimmed) {
		return json.Unmarshal([]byte("[]"), out)
	}

	switch trimmed[0] {
	case '[':
		return json.Unmarshal(trimmed, out)
	case '{':
		var envelope map[string]jsoniter.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return err
		}
		inner, ok := envelope[key]
		if !ok {
			return fmt.Errorf("%w: object without %q", ErrUnexpectedShape, key)
		}
		inner = bytes.TrimSpace(inner)
		if isNull(inner) {
			return json.Unmarshal([]byte("[]"), out)
		}
		if inner[0] != '[' {
			return fmt.Errorf("%w: %q is not an array", ErrUnexpectedShape, key)
		}
		return json.Unmarshal(inner, out)
	default:
		return fmt.Errorf("%w: %.20s", ErrUnexpectedShape, trimmed)
	}
}

// DecodeItem decodes a single resource. Mutating endpoints sometimes answer
// {"message": ..., "<key>": {...}}; the wrapped document wins when present.
func DecodeItem(body []byte, key string, out any) error {
	trimmed := bytes.TrimSpace(body)
	if isNull(trimmed) {
		return nil
	}
	if trimmed[0] != '{' {
		return fmt.Errorf("%w: %.20s", ErrUnexpectedShape, trimmed)
	}
	var envelope map[string]jsoniter.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return err
	}
	if inner, ok := envelope[key]; ok {
		inner = bytes.TrimSpace(inner)
		if len(inner) > 0 && inner[0] == '{' {
			return json.Unmarshal(inner, out)
		}
	}
	return json.Unmarshal(trimmed, out)
}

func isNull(b []byte) bool {
	return len(b) == 0 || bytes.Equal(b, []byte("null"))
}

// written reads the answer to a successful mutation. The 2xx status already
// confirms the write, so a body that is not the resource (plain text, a bare
// message, an empty list) yields the zero value instead of an error.
func written[T any](body []byte, key string) T {
	var v T
	if err := DecodeItem(body, key, &v); err != nil {
		var zero T
		return zero
	}
	return v
}
