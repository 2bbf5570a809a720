package port

import "context"

// KeyValueStore persists small opaque documents under well-known keys.
// Get returns repository.ErrNotFound when the key has never been written or was deleted.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
