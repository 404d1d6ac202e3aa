package metadata

import (
	"context"
	"sync"

	"github.com/nishant-bin/neuranet/flow"
)

type memoryStorage struct {
	mu    sync.RWMutex
	flows map[string]map[string]flow.Definition
}

func NewMemoryStorage() Storage {
	return &memoryStorage{
		flows: make(map[string]map[string]flow.Definition),
	}
}

func (s *memoryStorage) GetFlowDefinition(ctx context.Context, identity string, org string, applicationId string, flowName string) (*flow.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	defs, ok := s.flows[definitionKey(identity, org, applicationId)]
	if !ok {
		return nil, NotFoundError{FlowName: flowName}
	}
	def, ok := defs[flowName]
	if !ok {
		return nil, NotFoundError{FlowName: flowName}
	}
	return &def, nil
}

func (s *memoryStorage) SaveFlowDefinition(ctx context.Context, identity string, org string, applicationId string, def flow.Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := definitionKey(identity, org, applicationId)
	if s.flows[key] == nil {
		s.flows[key] = make(map[string]flow.Definition)
	}
	s.flows[key][def.Name] = def
	return nil
}

func (s *memoryStorage) DeleteFlowDefinition(ctx context.Context, identity string, org string, applicationId string, flowName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flows[definitionKey(identity, org, applicationId)], flowName)
	return nil
}
