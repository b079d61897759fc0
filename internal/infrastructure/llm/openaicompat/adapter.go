package openaicompat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"research-agent/internal/application/port/output"
	"research-agent/internal/domain/entity"

	"github.com/sashabaranov/go-openai"
)

var _ output.LLMPort = (*Adapter)(nil)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
)

var ErrNoChoices = errors.New("no choices in response")

// Adapter talks to any OpenAI-compatible chat completions endpoint: OpenAI
// itself, OpenRouter, or a local Ollama server.
type Adapter struct {
	client *openai.Client
	model  string
	logger output.LoggerPort
}

type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Logger     output.LoggerPort
}

type loggingTransport struct {
	base   http.RoundTripper
	logger output.LoggerPort
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var size int
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		size = len(body)
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.logger.Warn("LLM request failed", "url", req.URL.String(), "error", err)
		return nil, err
	}

	t.logger.Debug("LLM request",
		"method", req.Method,
		"url", req.URL.String(),
		"requestBytes", size,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return resp, nil
}

func NewAdapter(cfg Config) *Adapter {
	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = DefaultBaseURL
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	base := http.DefaultTransport
	if cfg.HTTPClient != nil {
		if cfg.HTTPClient.Transport != nil {
			base = cfg.HTTPClient.Transport
		}
		config.HTTPClient = cfg.HTTPClient
	}
	if cfg.Logger != nil {
		client := &http.Client{Transport: &loggingTransport{base: base, logger: cfg.Logger}}
		if cfg.HTTPClient != nil {
			client.Timeout = cfg.HTTPClient.Timeout
		}
		config.HTTPClient = client
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Adapter{
		client: openai.NewClientWithConfig(config),
		model:  model,
		logger: cfg.Logger,
	}
}

func (a *Adapter) Chat(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	request := openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    convertMessages(req.Messages),
		Temperature: req.Temperature,
	}
	if len(req.Tools) > 0 {
		request.Tools = convertTools(req.Tools)
		request.ToolChoice = "auto"
	}

	resp, err := a.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}

	if a.logger != nil {
		a.logger.Debug("Chat completion",
			"model", resp.Model,
			"finishReason", resp.Choices[0].FinishReason,
			"promptTokens", resp.Usage.PromptTokens,
			"completionTokens", resp.Usage.CompletionTokens,
		)
	}

	return &output.ChatResponse{
		Message: convertResponseMessage(resp.Choices[0].Message),
	}, nil
}

func convertMessages(messages []entity.Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		oaiMsg := openai.ChatCompletionMessage{
			Role:       string(msg.Role),
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
			Name:       msg.Name,
		}

		// Reasoning is never replayed; only visible text goes back to the model.
		if len(msg.ContentBlocks) > 0 {
			var text string
			for _, block := range msg.ContentBlocks {
				if block.Type == entity.ContentTypeText {
					text += block.Text
				}
			}
			if text != "" {
				oaiMsg.Content = text
			}
		}

		for _, tc := range msg.ToolCalls {
			oaiMsg.ToolCalls = append(oaiMsg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}

		result = append(result, oaiMsg)
	}
	return result
}

func convertTools(tools []entity.ToolDefinition) []openai.Tool {
	result := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		result = append(result, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return result
}

func convertResponseMessage(msg openai.ChatCompletionMessage) entity.Message {
	result := entity.Message{
		Role:    entity.MessageRole(msg.Role),
		Content: msg.Content,
	}

	if msg.ReasoningContent != "" {
		result.ContentBlocks = append(result.ContentBlocks, entity.ContentBlock{
			Type:     entity.ContentTypeThinking,
			Thinking: msg.ReasoningContent,
		})
	}
	if msg.Content != "" {
		result.ContentBlocks = append(result.ContentBlocks, entity.ContentBlock{
			Type: entity.ContentTypeText,
			Text: msg.Content,
		})
	}

	for _, tc := range msg.ToolCalls {
		toolCall := entity.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		}
		result.ToolCalls = append(result.ToolCalls, toolCall)
		result.ContentBlocks = append(result.ContentBlocks, entity.ContentBlock{
			Type:    entity.ContentTypeToolUse,
			ToolUse: &toolCall,
		})
	}

	return result
}
