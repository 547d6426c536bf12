package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"launchalert/internal/config"

	"github.com/nats-io/nats.go"
)

// NATSBackend persists slot values in JetStream KV bucket.
// Params: NATS connection and KV bucket handle.
// Returns: KV-backed backend shared by fleet-managed installs.
type NATSBackend struct {
	nc *nats.Conn
	kv nats.KeyValue
}

// NewNATSBackend opens (or creates) KV bucket and returns backend.
// Params: NATS store settings from config.
// Returns: initialized backend or setup error.
func NewNATSBackend(settings config.NATSStoreConfig) (*NATSBackend, error) {
	nc, err := nats.Connect(strings.Join(settings.URL, ","))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	kv, err := js.KeyValue(settings.Bucket)
	if err != nil {
		if !settings.AllowCreateBucket {
			nc.Close()
			return nil, fmt.Errorf("open slot bucket %q: %w", settings.Bucket, err)
		}
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:  settings.Bucket,
			History: 1,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("create slot bucket %q: %w", settings.Bucket, err)
		}
	}

	return &NATSBackend{nc: nc, kv: kv}, nil
}

// Get reads latest slot value.
// Params: key.
// Returns: value or ErrNotFound.
func (b *NATSBackend) Get(_ context.Context, key string) (string, error) {
	entry, err := b.kv.Get(key)
	if err != nil {
		if errors.Is(err, nats.ErrKeyNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get slot: %w", err)
	}
	return string(entry.Value()), nil
}

// Put writes slot value unconditionally.
// Params: key and value.
// Returns: publish error.
func (b *NATSBackend) Put(_ context.Context, key, value string) error {
	if _, err := b.kv.PutString(key, value); err != nil {
		return fmt.Errorf("put slot: %w", err)
	}
	return nil
}

// Delete places delete marker for key.
// Params: key.
// Returns: delete error.
func (b *NATSBackend) Delete(_ context.Context, key string) error {
	if err := b.kv.Delete(key); err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("delete slot: %w", err)
	}
	return nil
}

// Close closes underlying NATS connection.
// Params: none.
// Returns: nil after connection close.
func (b *NATSBackend) Close() error {
	b.nc.Close()
	return nil
}
