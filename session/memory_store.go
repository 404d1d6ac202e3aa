package session

import (
	"context"
	"encoding/json"

	c "github.com/patrickmn/go-cache"
)

// memoryKVStore keeps sessions in process memory. Values are stored as
// their JSON encoding so the round-trip behavior matches the redis store
// exactly.
type memoryKVStore struct {
	cache *c.Cache
}

func NewMemoryKVStore() KVStore {
	return &memoryKVStore{
		cache: c.New(c.NoExpiration, 0),
	}
}

func (s *memoryKVStore) Get(ctx context.Context, key string, out any) (bool, error) {
	value, found := s.cache.Get(key)
	if !found {
		return false, nil
	}
	if err := json.Unmarshal(value.([]byte), out); err != nil {
		return false, StorageError{Message: err.Error()}
	}
	return true, nil
}

func (s *memoryKVStore) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return StorageError{Message: err.Error()}
	}
	s.cache.Set(key, data, c.NoExpiration)
	return nil
}
