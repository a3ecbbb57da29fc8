package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/strictmod/internal/ir"
)

// marshalCounts converts verdict counts to canonical JSON TEXT so equal
// counts always store identical text.
func marshalCounts(counts map[string]int) (string, error) {
	if counts == nil {
		counts = map[string]int{}
	}
	data, err := ir.MarshalCanonical(counts)
	if err != nil {
		return "", fmt.Errorf("marshal counts: %w", err)
	}
	return string(data), nil
}

func unmarshalCounts(data string) (map[string]int, error) {
	counts := make(map[string]int)
	if data == "" || data == "{}" {
		return counts, nil
	}
	if err := json.Unmarshal([]byte(data), &counts); err != nil {
		return nil, fmt.Errorf("unmarshal counts: %w", err)
	}
	return counts, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
