package storage

import (
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	StoreKindMemory = "memory"
	StoreKindSQLite = "sqlite"

	// StoreKindEnv selects the backend when no kind is given explicitly.
	StoreKindEnv = "NEURALMESH_STORE"
)

func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", StoreKindMemory:
		return NewMemoryStore(), nil
	case StoreKindSQLite:
		return NewSQLiteStore(sqlitePath), nil
	default:
		return nil, errors.Errorf("unsupported store backend: %s", kind)
	}
}

// DefaultStoreKind returns the backend named by NEURALMESH_STORE, or memory.
func DefaultStoreKind() string {
	if kind := strings.TrimSpace(os.Getenv(StoreKindEnv)); kind != "" {
		return strings.ToLower(kind)
	}
	return StoreKindMemory
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}

// NewID returns a fresh identifier for snapshots and runs.
func NewID() string {
	return uuid.NewString()
}
