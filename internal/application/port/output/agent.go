package output

import (
	"context"

	"research-agent/internal/domain/entity"
)

// AgentPort runs a tool-calling agent for a single query. An agent that stops
// early may return a result without Output together with the error.
type AgentPort interface {
	Invoke(ctx context.Context, query string) (*entity.AgentResult, error)
}
