package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"research-agent/internal/application/port/output"
	"research-agent/internal/domain/entity"

	"github.com/tmc/langchaingo/tools"
)

var (
	_ output.ToolPort = (*SearchTool)(nil)
	_ output.ToolPort = (*WikipediaTool)(nil)
	_ output.ToolPort = (*SaveTool)(nil)
	_ output.ToolPort = (*FetchTool)(nil)

	_ tools.Tool = (*Adapter)(nil)
)

type SearchTool struct {
	search output.SearchPort
	logger output.LoggerPort
}

func NewSearchTool(search output.SearchPort, logger output.LoggerPort) *SearchTool {
	return &SearchTool{search: search, logger: logger}
}

func (t *SearchTool) Name() string { return entity.ToolSearch.String() }
func (t *SearchTool) Description() string {
	return "Search the web for information"
}
func (t *SearchTool) Parameters() map[string]interface{} {
	return stringParameter("query", "Search query")
}

func (t *SearchTool) Execute(ctx context.Context, args string) (string, error) {
	query, err := argument(args, "query")
	if err != nil {
		return "", err
	}
	return t.search.Search(ctx, query)
}

type WikipediaTool struct {
	wiki   output.SearchPort
	logger output.LoggerPort
}

func NewWikipediaTool(wiki output.SearchPort, logger output.LoggerPort) *WikipediaTool {
	return &WikipediaTool{wiki: wiki, logger: logger}
}

func (t *WikipediaTool) Name() string { return entity.ToolWikipedia.String() }
func (t *WikipediaTool) Description() string {
	return "Search Wikipedia for information about a topic"
}
func (t *WikipediaTool) Parameters() map[string]interface{} {
	return stringParameter("query", "Topic to look up")
}

func (t *WikipediaTool) Execute(ctx context.Context, args string) (string, error) {
	query, err := argument(args, "query")
	if err != nil {
		return "", err
	}
	return t.wiki.Search(ctx, query)
}

// SaveTool lets the agent append arbitrary data to the research output file.
type SaveTool struct {
	saver  output.SaverPort
	logger output.LoggerPort
}

func NewSaveTool(saver output.SaverPort, logger output.LoggerPort) *SaveTool {
	return &SaveTool{saver: saver, logger: logger}
}

func (t *SaveTool) Name() string { return entity.ToolSaveToFile.String() }
func (t *SaveTool) Description() string {
	return "Saves the research output to a text file with a timestamp. Pass the complete research response JSON to this tool to save all information."
}
func (t *SaveTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"data": map[string]interface{}{
				"description": "Research data to save: text or a JSON object",
			},
		},
		"required": []string{"data"},
	}
}

func (t *SaveTool) Execute(ctx context.Context, args string) (string, error) {
	var payload any = args

	trimmed := strings.TrimSpace(args)
	if strings.HasPrefix(trimmed, "{") {
		var input map[string]json.RawMessage
		if err := json.Unmarshal([]byte(trimmed), &input); err == nil {
			if raw, ok := input["data"]; ok {
				payload = decodeData(raw)
			} else {
				payload = decodeData(json.RawMessage(trimmed))
			}
		}
	}

	confirmation, err := t.saver.Save(payload)
	if err != nil {
		return "", err
	}
	t.logger.Info("Agent saved research data", "location", t.saver.Location())
	return confirmation, nil
}

type FetchTool struct {
	fetcher output.FetcherPort
	logger  output.LoggerPort
}

func NewFetchTool(fetcher output.FetcherPort, logger output.LoggerPort) *FetchTool {
	return &FetchTool{fetcher: fetcher, logger: logger}
}

func (t *FetchTool) Name() string { return entity.ToolFetchURL.String() }
func (t *FetchTool) Description() string {
	return "Download a web page and return its readable text. Input is an http or https URL."
}
func (t *FetchTool) Parameters() map[string]interface{} {
	return stringParameter("url", "URL to fetch")
}

func (t *FetchTool) Execute(ctx context.Context, args string) (string, error) {
	url, err := argument(args, "url")
	if err != nil {
		return "", err
	}
	return t.fetcher.Fetch(ctx, url)
}

// Adapter exposes a ToolPort as a langchaingo tool. Errors are folded into the
// observation so a failing tool never stops the agent.
type Adapter struct {
	tool     output.ToolPort
	reporter output.ReporterPort
}

func NewAdapter(tool output.ToolPort, reporter output.ReporterPort) *Adapter {
	return &Adapter{tool: tool, reporter: reporter}
}

func (a *Adapter) Name() string        { return a.tool.Name() }
func (a *Adapter) Description() string { return a.tool.Description() }

func (a *Adapter) Call(ctx context.Context, input string) (string, error) {
	if a.reporter != nil {
		a.reporter.ShowToolStart(ctx, a.tool.Name(), input)
	}

	result, err := a.tool.Execute(ctx, input)
	if err != nil {
		result = fmt.Sprintf("Error: %v", err)
	}

	if a.reporter != nil {
		a.reporter.ShowToolResult(ctx, a.tool.Name(), result, err != nil)
	}
	return result, nil
}

// Adapt wraps every tool for a langchaingo agent.
func Adapt(ports []output.ToolPort, reporter output.ReporterPort) []tools.Tool {
	adapted := make([]tools.Tool, 0, len(ports))
	for _, p := range ports {
		adapted = append(adapted, NewAdapter(p, reporter))
	}
	return adapted
}

func stringParameter(name, description string) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			name: map[string]interface{}{
				"type":        "string",
				"description": description,
			},
		},
		"required": []string{name},
	}
}

// argument accepts either a JSON object carrying key or a bare string, the
// latter being what text-based agents send.
func argument(args, key string) (string, error) {
	trimmed := strings.TrimSpace(args)
	if strings.HasPrefix(trimmed, "{") {
		var input map[string]any
		if err := json.Unmarshal([]byte(trimmed), &input); err == nil {
			value, ok := input[key]
			if !ok {
				return "", fmt.Errorf("missing %q argument", key)
			}
			s, ok := value.(string)
			if !ok {
				return "", fmt.Errorf("argument %q must be a string", key)
			}
			trimmed = strings.TrimSpace(s)
		}
	}

	trimmed = strings.Trim(trimmed, "\"'`")
	if trimmed == "" {
		return "", fmt.Errorf("empty %q argument", key)
	}
	return trimmed, nil
}

func decodeData(raw json.RawMessage) any {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return string(raw)
	}
	return value
}
