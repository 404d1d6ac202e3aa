package metadata

import (
	"context"
	"fmt"
	"time"

	"github.com/nishant-bin/neuranet/flow"
	c "github.com/patrickmn/go-cache"
)

// Service loads and compiles flow definitions, caching the compiled form.
// The cache is shared read-only across concurrent requests and only ever
// invalidated wholesale.
type Service interface {
	GetFlow(ctx context.Context, identity string, org string, applicationId string, flowName string) (*flow.Flow, error)
	SaveFlow(ctx context.Context, identity string, org string, applicationId string, def flow.Definition) error
	Invalidate()
	GetStorage() Storage
}

type ServiceImpl struct {
	storage Storage
	cache   *c.Cache
}

func NewService(storage Storage) Service {
	return &ServiceImpl{
		storage: storage,
		cache:   c.New(10*time.Minute, 10*time.Minute),
	}
}

func (s *ServiceImpl) GetFlow(ctx context.Context, identity string, org string, applicationId string, flowName string) (*flow.Flow, error) {
	cacheKey := fmt.Sprintf("%s:%s", definitionKey(identity, org, applicationId), flowName)
	if cached, found := s.cache.Get(cacheKey); found {
		return cached.(*flow.Flow), nil
	}
	def, err := s.storage.GetFlowDefinition(ctx, identity, org, applicationId, flowName)
	if err != nil {
		return nil, err
	}
	compiled, err := flow.Compile(def)
	if err != nil {
		return nil, fmt.Errorf("error compiling flow %s %w", flowName, err)
	}
	s.cache.Set(cacheKey, compiled, c.DefaultExpiration)
	return compiled, nil
}

// SaveFlow validates by compiling before it persists, so a broken
// definition never reaches storage.
func (s *ServiceImpl) SaveFlow(ctx context.Context, identity string, org string, applicationId string, def flow.Definition) error {
	if _, err := flow.Compile(&def); err != nil {
		return err
	}
	if err := s.storage.SaveFlowDefinition(ctx, identity, org, applicationId, def); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}

func (s *ServiceImpl) Invalidate() {
	s.cache.Flush()
}

func (s *ServiceImpl) GetStorage() Storage {
	return s.storage
}
