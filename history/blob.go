package history

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// BlobStore is the minimal key-value capability the history needs.
type BlobStore interface {
	// Get reports ok=false when key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Backend is a BlobStore that holds resources.
type Backend interface {
	BlobStore
	Close() error
}

type Config struct {
	// Driver is one of "memory", "file" or "sqlite".
	Driver      string
	Path        string
	BusyTimeout time.Duration
}

func Open(cfg Config, log zerolog.Logger) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "memory":
		return NewMemoryBlobStore(), nil
	case "file":
		return OpenFileBlobStore(cfg.Path)
	case "sqlite", "sqlite3":
		return OpenSQLiteBlobStore(cfg.Path, cfg.BusyTimeout, log)
	default:
		return nil, errors.Errorf("unknown history driver: %s", cfg.Driver)
	}
}
