package input

import (
	"context"

	"research-agent/internal/domain/entity"
)

type ExecuteResult struct {
	Record       *entity.ResearchRecord
	Payload      string
	Fidelity     string
	Confirmation string
	Diagnostics  []string
}

type ResearchExecutor interface {
	Execute(ctx context.Context, query string) (*ExecuteResult, error)
}
