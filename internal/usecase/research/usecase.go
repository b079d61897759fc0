package research

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"research-agent/internal/application/port/input"
	"research-agent/internal/application/port/output"
	"research-agent/internal/usecase/normalizer"
)

var _ input.ResearchExecutor = (*UseCase)(nil)

var ErrEmptyQuery = errors.New("research query is empty")

// UseCase is the whole research flow for one query: run the agent, normalize
// its answer, persist it and show the outcome.
type UseCase struct {
	agent      output.AgentPort
	normalizer *normalizer.Normalizer
	reporter   output.ReporterPort
	logger     output.LoggerPort
}

func New(
	agent output.AgentPort,
	normalizer *normalizer.Normalizer,
	reporter output.ReporterPort,
	logger output.LoggerPort,
) *UseCase {
	return &UseCase{
		agent:      agent,
		normalizer: normalizer,
		reporter:   reporter,
		logger:     logger,
	}
}

func (uc *UseCase) Execute(ctx context.Context, query string) (*input.ExecuteResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	uc.logger.Info("Research started", "query", query)

	result, err := uc.agent.Invoke(ctx, query)
	var agentErr error
	if err != nil {
		uc.logger.Error("Agent invocation failed", "error", err, "partial", result != nil)
		agentErr = fmt.Errorf("agent invocation failed: %w", err)
		if result == nil {
			return nil, agentErr
		}
		uc.reporter.ShowDiagnostic(ctx, "Agent stopped early: %v", err)
	}
	uc.logger.Debug("Agent result", "result", result.String())

	normalized, confirmation, saveErr := uc.normalizer.Process(result)

	execResult := &input.ExecuteResult{
		Record:       normalized.Record,
		Payload:      normalized.Serialize(),
		Fidelity:     string(normalized.Fidelity),
		Confirmation: confirmation,
	}
	for _, d := range normalized.Diagnostics {
		execResult.Diagnostics = append(execResult.Diagnostics, d.String())
		uc.logger.Warn("Response degraded", "stage", d.Stage, "error", d.Err, "outputType", d.OutputType)
		uc.reportDiagnostic(ctx, d)
	}

	if normalized.Record != nil {
		uc.reporter.ShowRecord(ctx, normalized.Record)
	} else {
		uc.reporter.ShowPayload(ctx, execResult.Payload)
	}

	if agentErr != nil {
		execResult.Diagnostics = append(execResult.Diagnostics, agentErr.Error())
	}

	if saveErr != nil {
		return execResult, errors.Join(agentErr, saveErr)
	}

	uc.reporter.ShowSaved(ctx, confirmation)
	uc.logger.Info("Research finished", "fidelity", execResult.Fidelity, "diagnostics", len(execResult.Diagnostics))
	return execResult, agentErr
}

func (uc *UseCase) reportDiagnostic(ctx context.Context, d normalizer.Diagnostic) {
	uc.reporter.ShowDiagnostic(ctx, "Error parsing response (%s): %v", d.Stage, d.Err)
	uc.reporter.ShowDiagnostic(ctx, "Raw Response Type: %s", d.OutputType)
	uc.reporter.ShowDiagnostic(ctx, "Raw Response Content: %s", d.Content)
}
