package output

import (
	"context"

	"research-agent/internal/domain/entity"
)

type ReporterPort interface {
	ReadQuery(ctx context.Context, prompt string) (string, error)

	ShowToolStart(ctx context.Context, toolName, arguments string)
	ShowToolResult(ctx context.Context, toolName, result string, isError bool)
	ShowDiagnostic(ctx context.Context, message string, args ...any)
	ShowRecord(ctx context.Context, record *entity.ResearchRecord)
	ShowPayload(ctx context.Context, payload string)
	ShowSaved(ctx context.Context, confirmation string)
	ShowError(ctx context.Context, message string, err error)
}
