package langchain

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"research-agent/internal/application/port/output"
	"research-agent/internal/domain/entity"

	"github.com/tmc/langchaingo/agents"
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/tools"
)

var _ output.AgentPort = (*Agent)(nil)

const (
	DefaultOllamaModel   = "llama3.2"
	DefaultMaxIterations = 10

	inputKey = "input"
	// keys of the executor's return map
	outputKey = "output"
	stepsKey  = "intermediateSteps"
)

type Config struct {
	// PromptPrefix is a langchaingo Go template and must reference
	// {{.tool_descriptions}}.
	PromptPrefix  string
	MaxIterations int
}

type OllamaConfig struct {
	Model     string
	ServerURL string
}

// Agent runs a text-based (ReAct style) langchaingo agent. It is the backend
// for models that cannot do native tool calling.
type Agent struct {
	executor *agents.Executor
	logger   output.LoggerPort
}

func NewOllamaAgent(ollamaCfg OllamaConfig, cfg Config, agentTools []tools.Tool, logger output.LoggerPort) (*Agent, error) {
	model := ollamaCfg.Model
	if model == "" {
		model = DefaultOllamaModel
	}

	opts := []ollama.Option{ollama.WithModel(model)}
	if ollamaCfg.ServerURL != "" {
		// ollama.WithServerURL exits the process on a bad URL.
		if _, err := url.Parse(ollamaCfg.ServerURL); err != nil {
			return nil, fmt.Errorf("invalid ollama server url: %w", err)
		}
		opts = append(opts, ollama.WithServerURL(ollamaCfg.ServerURL))
	}

	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}

	logger.Info("Using ollama backend", "model", model, "serverURL", ollamaCfg.ServerURL)
	return NewAgent(llm, cfg, agentTools, logger), nil
}

func NewAgent(llm llms.Model, cfg Config, agentTools []tools.Tool, logger output.LoggerPort) *Agent {
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	var agentOpts []agents.Option
	if cfg.PromptPrefix != "" {
		agentOpts = append(agentOpts, agents.WithPromptPrefix(cfg.PromptPrefix))
	}

	agent := agents.NewOneShotAgent(llm, agentTools, agentOpts...)
	executor := agents.NewExecutor(agent,
		agents.WithMaxIterations(maxIterations),
		agents.WithReturnIntermediateSteps(),
		agents.WithParserErrorHandler(agents.NewParserErrorHandler(func(msg string) string {
			logger.Warn("Agent produced unparsable output", "error", msg)
			return "Invalid format. Reply with an Action and Action Input, or with a Final Answer."
		})),
	)

	return &Agent{executor: executor, logger: logger}
}

func (a *Agent) Invoke(ctx context.Context, query string) (*entity.AgentResult, error) {
	values, err := chains.Call(ctx, a.executor, map[string]any{inputKey: query})
	if err != nil {
		if !errors.Is(err, agents.ErrNotFinished) {
			return nil, fmt.Errorf("agent run failed: %w", err)
		}
		a.logger.Warn("Agent stopped before a final answer", "maxIterations", a.executor.MaxIterations)
	}

	result := ResultFromValues(values)
	a.logger.Info("Agent finished", "steps", len(result.IntermediateSteps), "hasOutput", result.Output != nil)
	return result, nil
}

// ResultFromValues converts an executor return map. A missing "output" key
// stays a nil Output. Steps without a tool (parser retries) are dropped.
func ResultFromValues(values map[string]any) *entity.AgentResult {
	result := &entity.AgentResult{}
	if values == nil {
		return result
	}

	if out, ok := values[outputKey]; ok {
		result.Output = out
	}

	steps, _ := values[stepsKey].([]schema.AgentStep)
	for _, step := range steps {
		if step.Action.Tool == "" {
			continue
		}
		result.IntermediateSteps = append(result.IntermediateSteps, entity.AgentStep{
			Tool:        step.Action.Tool,
			ToolInput:   step.Action.ToolInput,
			Observation: step.Observation,
		})
	}
	return result
}
