package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key is missing from storage.
var ErrNotFound = errors.New("storage: key not found")

// KVStore is the persistence port used by the usage recorder.
// Values are opaque byte slices; each Put replaces the whole value in a single write,
// so a concurrent Get observes either the previous or the new value, never a mix.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// Backend types accepted by storage.type.
const (
	TypeBolt   = "bolt"
	TypeRedis  = "redis"
	TypeSQLite = "sqlite"
	TypeMemory = "memory"
)

// Types lists every supported backend type.
func Types() []string {
	return []string{TypeBolt, TypeRedis, TypeSQLite, TypeMemory}
}

// IsValidType reports whether t names a supported backend.
func IsValidType(t string) bool {
	for _, known := range Types() {
		if t == known {
			return true
		}
	}
	return false
}
