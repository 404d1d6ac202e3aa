package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	rd "github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addrs     []string
	Namespace string
	Password  string
	PoolSize  int
}

// redisKVStore routes each key to one redis endpoint through the
// consistent-hash ring, so a multi-endpoint deployment spreads sessions
// without any coordination.
type redisKVStore struct {
	ring      *Ring
	clients   map[string]*rd.Client
	namespace string
}

func NewRedisKVStore(conf RedisConfig) KVStore {
	clients := make(map[string]*rd.Client, len(conf.Addrs))
	for _, addr := range conf.Addrs {
		clients[addr] = rd.NewClient(&rd.Options{
			Addr:     addr,
			Password: conf.Password,
			PoolSize: conf.PoolSize,
		})
	}
	return &redisKVStore{
		ring:      NewRing(conf.Addrs),
		clients:   clients,
		namespace: conf.Namespace,
	}
}

func (s *redisKVStore) Get(ctx context.Context, key string, out any) (bool, error) {
	namespacedKey := s.getNamespaceKey(key)
	data, err := s.clientFor(namespacedKey).Get(ctx, namespacedKey).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return false, nil
		}
		return false, StorageError{Message: err.Error()}
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return false, StorageError{Message: err.Error()}
	}
	return true, nil
}

func (s *redisKVStore) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return StorageError{Message: err.Error()}
	}
	namespacedKey := s.getNamespaceKey(key)
	if err := s.clientFor(namespacedKey).Set(ctx, namespacedKey, data, 0).Err(); err != nil {
		return StorageError{Message: err.Error()}
	}
	return nil
}

func (s *redisKVStore) clientFor(key string) *rd.Client {
	return s.clients[s.ring.Locate(key)]
}

func (s *redisKVStore) getNamespaceKey(args ...string) string {
	return fmt.Sprintf("%s:%s", s.namespace, strings.Join(args, ":"))
}
