package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/leasehold/internal/ir"
)

// marshalObject converts an Object to canonical JSON TEXT for storage.
// A nil object is stored as {}.
func marshalObject(obj ir.Object) (string, error) {
	if obj == nil {
		return "{}", nil
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// unmarshalObject parses canonical JSON TEXT to an Object.
// Uses ir.Object.UnmarshalJSON which keeps integers exact via json.Number.
func unmarshalObject(data string) (ir.Object, error) {
	if data == "" || data == "{}" {
		return ir.Object{}, nil
	}
	var obj ir.Object
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// marshalTransfers converts a transfer batch to JSON TEXT.
// Uses json.Encoder with HTML escaping disabled so principals are stored verbatim.
func marshalTransfers(transfers []ir.Transfer) (string, error) {
	if len(transfers) == 0 {
		return "[]", nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(transfers); err != nil {
		return "", fmt.Errorf("marshal transfers: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalTransfers parses JSON TEXT to a transfer batch. An empty batch is nil.
func unmarshalTransfers(data string) ([]ir.Transfer, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var transfers []ir.Transfer
	if err := json.Unmarshal([]byte(data), &transfers); err != nil {
		return nil, fmt.Errorf("unmarshal transfers: %w", err)
	}
	return transfers, nil
}
