package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"unicode/utf16"
)

// Object is a JSON object restricted to canonical-safe values.
//
// Allowed values: string, bool, int64, uint64, Object and []any of the same.
// Floats and null are rejected by MarshalCanonical. Decoding always yields
// uint64 for non-negative integers and int64 for negative ones, so an Object
// read back from storage hashes to the same bytes it was written with.
type Object map[string]any

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings orders by UTF-8 bytes, which differs for some inputs.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// Uint returns the unsigned integer stored at key.
func (obj Object) Uint(key string) (uint64, bool) {
	switch v := obj[key].(type) {
	case uint64:
		return v, true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}

// String returns the string stored at key.
func (obj Object) String(key string) (string, bool) {
	s, ok := obj[key].(string)
	return s, ok
}

// Bool returns the boolean stored at key.
func (obj Object) Bool(key string) (bool, bool) {
	b, ok := obj[key].(bool)
	return b, ok
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// MarshalJSON encodes the object canonically so stored text is byte-stable.
func (obj Object) MarshalJSON() ([]byte, error) {
	if obj == nil {
		return []byte("{}"), nil
	}
	return MarshalCanonical(obj)
}

// UnmarshalJSON implements json.Unmarshaler for Object.
func (obj *Object) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	out := make(Object, len(raw))
	for k, v := range raw {
		val, err := normalizeDecoded(v)
		if err != nil {
			return fmt.Errorf("object key %q: %w", k, err)
		}
		out[k] = val
	}
	*obj = out
	return nil
}

// normalizeDecoded converts encoding/json output into Object value types.
func normalizeDecoded(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden")
	case string, bool:
		return val, nil
	case json.Number:
		return parseInteger(val.String())
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			n, err := normalizeDecoded(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = n
		}
		return obj, nil
	case []any:
		arr := make([]any, len(val))
		for i, elem := range val {
			n, err := normalizeDecoded(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = n
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

func parseInteger(s string) (any, error) {
	if len(s) > 0 && s[0] == '-' {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("floats are forbidden: %s", s)
		}
		return n, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("floats are forbidden: %s", s)
	}
	return n, nil
}
