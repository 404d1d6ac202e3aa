package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nishant-bin/neuranet/flow"
	rd "github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr      string
	Namespace string
	Password  string
}

type redisStorage struct {
	client    *rd.Client
	namespace string
}

func NewRedisStorage(conf RedisConfig) Storage {
	return &redisStorage{
		client: rd.NewClient(&rd.Options{
			Addr:     conf.Addr,
			Password: conf.Password,
		}),
		namespace: conf.Namespace,
	}
}

func (s *redisStorage) GetFlowDefinition(ctx context.Context, identity string, org string, applicationId string, flowName string) (*flow.Definition, error) {
	data, err := s.client.HGet(ctx, s.hashKey(identity, org, applicationId), flowName).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, NotFoundError{FlowName: flowName}
		}
		return nil, err
	}
	var def flow.Definition
	if err := json.Unmarshal([]byte(data), &def); err != nil {
		return nil, fmt.Errorf("error parsing stored flow definition %w", err)
	}
	return &def, nil
}

func (s *redisStorage) SaveFlowDefinition(ctx context.Context, identity string, org string, applicationId string, def flow.Definition) error {
	data, err := json.Marshal(def)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.hashKey(identity, org, applicationId), def.Name, string(data)).Err()
}

func (s *redisStorage) DeleteFlowDefinition(ctx context.Context, identity string, org string, applicationId string, flowName string) error {
	return s.client.HDel(ctx, s.hashKey(identity, org, applicationId), flowName).Err()
}

func (s *redisStorage) hashKey(identity string, org string, applicationId string) string {
	return fmt.Sprintf("%s:FLOWDEF:%s", s.namespace, definitionKey(identity, org, applicationId))
}
