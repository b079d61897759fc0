package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"research-agent/internal/application/port/output"
	"research-agent/internal/domain/entity"
)

var _ output.AgentPort = (*UseCase)(nil)

const (
	DefaultMaxIterations = 10
	maxObservationLen    = 20000
)

var ErrMaxIterations = errors.New("agent stopped: max iterations exceeded")

// UseCase is a tool-calling loop over a chat model. It keeps asking the model
// until it answers without requesting tools.
type UseCase struct {
	llm           output.LLMPort
	tools         output.ToolRegistry
	reporter      output.ReporterPort
	logger        output.LoggerPort
	systemPrompt  string
	maxIterations int
}

type Config struct {
	SystemPrompt  string
	MaxIterations int
}

func New(
	llm output.LLMPort,
	tools output.ToolRegistry,
	reporter output.ReporterPort,
	logger output.LoggerPort,
	cfg Config,
) *UseCase {
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &UseCase{
		llm:           llm,
		tools:         tools,
		reporter:      reporter,
		logger:        logger,
		systemPrompt:  cfg.SystemPrompt,
		maxIterations: maxIterations,
	}
}

func (uc *UseCase) Invoke(ctx context.Context, query string) (*entity.AgentResult, error) {
	messages := []entity.Message{
		{Role: entity.RoleSystem, Content: uc.systemPrompt},
		{Role: entity.RoleUser, Content: query},
	}

	toolDefs := uc.tools.Definitions()
	var steps []entity.AgentStep

	for iteration := 1; iteration <= uc.maxIterations; iteration++ {
		uc.logger.Debug("Starting iteration", "iteration", iteration)

		resp, err := uc.llm.Chat(ctx, output.ChatRequest{
			Messages:    messages,
			Tools:       toolDefs,
			Temperature: 0.0,
		})
		if err != nil {
			return partialResult(steps), fmt.Errorf("llm request failed: %w", err)
		}

		messages = append(messages, resp.Message)

		if len(resp.Message.ToolCalls) == 0 {
			uc.logger.Info("Agent finished", "iterations", iteration, "steps", len(steps))
			return &entity.AgentResult{
				Output:            finalOutput(resp.Message),
				IntermediateSteps: steps,
			}, nil
		}

		for _, tc := range resp.Message.ToolCalls {
			observation := uc.executeTool(ctx, tc)
			steps = append(steps, entity.AgentStep{
				Tool:        tc.Name,
				ToolInput:   tc.Arguments,
				Observation: observation,
			})

			messages = append(messages, entity.Message{
				Role:       entity.RoleTool,
				ToolCallID: tc.ID,
				Name:       tc.Name,
				Content:    observation,
			})
		}
	}

	uc.logger.Warn("Agent hit iteration limit", "maxIterations", uc.maxIterations, "steps", len(steps))
	return &entity.AgentResult{IntermediateSteps: steps}, fmt.Errorf("%w (%d)", ErrMaxIterations, uc.maxIterations)
}

// partialResult keeps the steps taken before a failed model call, if any.
func partialResult(steps []entity.AgentStep) *entity.AgentResult {
	if len(steps) == 0 {
		return nil
	}
	return &entity.AgentResult{IntermediateSteps: steps}
}

func (uc *UseCase) executeTool(ctx context.Context, tc entity.ToolCall) string {
	if uc.reporter != nil {
		uc.reporter.ShowToolStart(ctx, tc.Name, tc.Arguments)
	}

	result, failed := uc.runTool(ctx, tc)

	if uc.reporter != nil {
		uc.reporter.ShowToolResult(ctx, tc.Name, result, failed)
	}
	return result
}

func (uc *UseCase) runTool(ctx context.Context, tc entity.ToolCall) (string, bool) {
	tool, ok := uc.tools.Get(tc.Name)
	if !ok {
		uc.logger.Warn("Unknown tool called", "name", tc.Name)
		return fmt.Sprintf("Error: unknown tool '%s'", tc.Name), true
	}

	uc.logger.Info("Executing tool", "name", tc.Name, "args", tc.Arguments)

	result, err := tool.Execute(ctx, tc.Arguments)
	if err != nil {
		uc.logger.Error("Tool execution failed", "name", tc.Name, "error", err)
		return "Error: " + err.Error(), true
	}

	if len(result) > maxObservationLen {
		cut := maxObservationLen
		for cut > 0 && !utf8.RuneStart(result[cut]) {
			cut--
		}
		result = result[:cut] + "\n... (truncated)"
	}

	uc.logger.Debug("Tool completed", "name", tc.Name, "resultLen", len(result))
	return result, false
}

// finalOutput keeps the model's text blocks when it produced any, so the
// output has the same shape as a content-block reply.
func finalOutput(msg entity.Message) any {
	var text []string
	for _, block := range msg.ContentBlocks {
		if block.Type == entity.ContentTypeText && block.Text != "" {
			text = append(text, block.Text)
		}
	}
	if len(text) == 0 {
		return msg.Content
	}
	return []entity.ContentBlock{{
		Type: entity.ContentTypeText,
		Text: strings.Join(text, ""),
	}}
}
