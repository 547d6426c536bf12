// Package device provides stable per-install device identifier.
package device

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// SlotName is store slot holding generated device id.
const SlotName = "device_id"

// Slot is nullable persisted value.
type Slot interface {
	Get(ctx context.Context) (string, bool, error)
	Set(ctx context.Context, value string) error
}

// Resolve returns configured id, else persisted id, else generates and persists new UUID.
// Params: context, configured id (may be empty), and slot for generated ids.
// Returns: device id or store error.
func Resolve(ctx context.Context, configured string, slot Slot) (string, error) {
	if id := strings.TrimSpace(configured); id != "" {
		return id, nil
	}
	stored, ok, err := slot.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("read device id: %w", err)
	}
	if ok {
		return stored, nil
	}
	generated := uuid.NewString()
	if err := slot.Set(ctx, generated); err != nil {
		return "", fmt.Errorf("persist device id: %w", err)
	}
	return generated, nil
}
