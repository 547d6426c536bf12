package engine

import (
	"cmp"
	"encoding/binary"
	"strings"

	"github.com/google/uuid"
)

// CompareIDs orders alert ids; newer alerts compare greater.
// Params: two ids.
// Returns: -1, 0, or 1. When both parse as UUIDs the high 64 bits are compared
// as signed integers, then the low 64 bits; otherwise plain string order.
func CompareIDs(a, b string) int {
	left, leftErr := uuid.Parse(strings.TrimSpace(a))
	right, rightErr := uuid.Parse(strings.TrimSpace(b))
	if leftErr == nil && rightErr == nil {
		if c := cmp.Compare(signedHalf(left[0:8]), signedHalf(right[0:8])); c != 0 {
			return c
		}
		return cmp.Compare(signedHalf(left[8:16]), signedHalf(right[8:16]))
	}
	return strings.Compare(a, b)
}

func signedHalf(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}
