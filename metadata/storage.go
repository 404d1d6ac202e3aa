package metadata

import (
	"context"
	"fmt"

	"github.com/nishant-bin/neuranet/flow"
)

// Storage persists flow definitions per (identity, org, application).
// Definitions change only on application redeployment, never at request
// time.
type Storage interface {
	GetFlowDefinition(ctx context.Context, identity string, org string, applicationId string, flowName string) (*flow.Definition, error)
	SaveFlowDefinition(ctx context.Context, identity string, org string, applicationId string, def flow.Definition) error
	DeleteFlowDefinition(ctx context.Context, identity string, org string, applicationId string, flowName string) error
}

type NotFoundError struct {
	FlowName string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("flow definition %s not found", e.FlowName)
}

func definitionKey(identity string, org string, applicationId string) string {
	return fmt.Sprintf("%s:%s:%s", identity, org, applicationId)
}
