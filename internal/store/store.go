package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNotFound indicates absent slot value.
var ErrNotFound = errors.New("not found")

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_\-=]+`)

// Backend persists opaque string values by key.
// Params: get/put/delete operations; implementations must be safe for concurrent use.
// Returns: backend persistence behavior.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Slot is one nullable value bound to a fixed backend key.
// Params: backend and key.
// Returns: get/set view used as identifier store.
type Slot struct {
	backend Backend
	key     string
}

// NewSlot binds key to backend.
// Params: backend and already built key.
// Returns: slot view.
func NewSlot(backend Backend, key string) *Slot {
	return &Slot{backend: backend, key: key}
}

// Key returns backend key of slot.
// Params: none.
// Returns: key string.
func (s *Slot) Key() string {
	return s.key
}

// Get reads slot value.
// Params: context.
// Returns: value, presence flag, and backend error (absent is not an error).
func (s *Slot) Get(ctx context.Context) (string, bool, error) {
	value, err := s.backend.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read slot %q: %w", s.key, err)
	}
	if strings.TrimSpace(value) == "" {
		return "", false, nil
	}
	return value, true, nil
}

// Set overwrites slot value.
// Params: context and value.
// Returns: backend write error.
func (s *Slot) Set(ctx context.Context, value string) error {
	if err := s.backend.Put(ctx, s.key, value); err != nil {
		return fmt.Errorf("write slot %q: %w", s.key, err)
	}
	return nil
}

// Reset removes slot value.
// Params: context.
// Returns: backend delete error.
func (s *Slot) Reset(ctx context.Context) error {
	if err := s.backend.Delete(ctx, s.key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("reset slot %q: %w", s.key, err)
	}
	return nil
}

// SlotKey builds installation-scoped key safe for every backend (NATS KV included).
// Params: app id, optional device id, and slot name.
// Returns: dot-separated sanitized key.
func SlotKey(appID, deviceID, name string) string {
	parts := []string{"launchalert", sanitize(appID)}
	if strings.TrimSpace(deviceID) != "" {
		parts = append(parts, sanitize(deviceID))
	}
	parts = append(parts, sanitize(name))
	return strings.Join(parts, ".")
}

func sanitize(part string) string {
	cleaned := unsafeKeyChars.ReplaceAllString(strings.TrimSpace(part), "_")
	if cleaned == "" {
		return "_"
	}
	return cleaned
}
