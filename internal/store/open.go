package store

import (
	"fmt"

	"launchalert/internal/config"
)

// Open builds backend selected by store config.
// Params: validated store section.
// Returns: ready backend or setup error.
func Open(cfg config.StoreConfig) (Backend, error) {
	switch config.NormalizeStoreBackend(cfg.Backend) {
	case config.StoreBackendMemory:
		return NewMemoryBackend(), nil
	case config.StoreBackendSQLite, "":
		return NewSQLiteBackend(cfg.Path)
	case config.StoreBackendNATS:
		return NewNATSBackend(cfg.NATS)
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Backend)
	}
}
