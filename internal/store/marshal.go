package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/smartfin/internal/ir"
)

// marshalArgs converts event args to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON for deterministic serialization.
func marshalArgs(args ir.EventArgs) (string, error) {
	data, err := ir.MarshalCanonical(args.CanonicalMap())
	if err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}
	return string(data), nil
}

// unmarshalArgs parses canonical JSON TEXT back to event args.
// Integers are decoded straight into int64/uint64 fields, so values above
// 2^53 keep full precision.
func unmarshalArgs(data string) (ir.EventArgs, error) {
	var args ir.EventArgs
	if data == "" || data == "{}" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(data), &args); err != nil {
		return args, fmt.Errorf("unmarshal args: %w", err)
	}
	return args, nil
}
