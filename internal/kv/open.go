package kv

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// Open returns the channel for backend rooted at path. An empty path falls
// back to a backend-specific location inside dataDir.
func Open(backend, path, dataDir string, logger zerolog.Logger) (Channel, error) {
	switch backend {
	case BackendSQLite, "":
		if path == "" {
			path = filepath.Join(dataDir, "protocol.db")
		}
		return NewSQLite(path)
	case BackendBadger:
		if path == "" {
			path = filepath.Join(dataDir, "badger")
		}
		return NewBadger(BadgerConfig{Path: path, SyncWrites: true, Logger: &logger})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
