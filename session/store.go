package session

import "context"

// KVStore is the replaceable storage behind sessions. Values are plain
// structured data; implementations must be safe for concurrent use so a
// single-process map and a networked cache stay interchangeable.
type KVStore interface {
	Get(ctx context.Context, key string, out any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

type StorageError struct {
	Message string
}

func (e StorageError) Error() string {
	return e.Message
}
