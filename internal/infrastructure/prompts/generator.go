package prompts

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"research-agent/internal/application/port/output"
)

type ToolInfo struct {
	Name        string
	Description string
}

type SystemPromptData struct {
	Tools              []ToolInfo
	FormatInstructions string
}

func GenerateSystemPrompt(baseTemplate string, registry output.ToolRegistry, formatInstructions string) (string, error) {
	tools := registry.All()
	toolInfos := make([]ToolInfo, 0, len(tools))

	for _, tool := range tools {
		toolInfos = append(toolInfos, ToolInfo{
			Name:        tool.Name(),
			Description: tool.Description(),
		})
	}

	sort.Slice(toolInfos, func(i, j int) bool {
		return toolInfos[i].Name < toolInfos[j].Name
	})

	data := SystemPromptData{
		Tools:              toolInfos,
		FormatInstructions: formatInstructions,
	}

	tmpl, err := template.New("system").Parse(baseTemplate)
	if err != nil {
		return "", fmt.Errorf("parse system prompt: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render system prompt: %w", err)
	}

	return strings.TrimSpace(buf.String()), nil
}

// MRKLPrefix turns a rendered system prompt into a prompt prefix for a
// langchaingo one-shot agent. The result is itself a Go template, so any
// template delimiters already in the prompt are escaped.
func MRKLPrefix(systemPrompt string) string {
	escaped := strings.NewReplacer(
		"{{", `{{"{{"}}`,
		"}}", `{{"}}"}}`,
	).Replace(systemPrompt)
	return escaped + mrklToolsSection
}
