package prompts

import (
	"context"
	"strings"
	"testing"
	"text/template"

	"research-agent/internal/application/service"
)

type mockTool struct {
	name        string
	description string
}

func (m *mockTool) Name() string                       { return m.name }
func (m *mockTool) Description() string                { return m.description }
func (m *mockTool) Parameters() map[string]interface{} { return nil }
func (m *mockTool) Execute(ctx context.Context, args string) (string, error) {
	return "", nil
}

func TestGenerateSystemPrompt(t *testing.T) {
	registry := service.NewToolRegistry()
	registry.Register(&mockTool{name: "wikipedia", description: "Search Wikipedia for information about a topic"})
	registry.Register(&mockTool{name: "search", description: "Search the web for information"})

	prompt, err := GenerateSystemPrompt(SystemPromptTemplate, registry, "Your output should be in JSON")
	if err != nil {
		t.Fatalf("GenerateSystemPrompt failed: %v", err)
	}

	searchIdx := strings.Index(prompt, "- search: Search the web for information")
	wikiIdx := strings.Index(prompt, "- wikipedia: Search Wikipedia for information about a topic")
	if searchIdx == -1 || wikiIdx == -1 {
		t.Fatalf("prompt should list both tools, got:\n%s", prompt)
	}
	if searchIdx > wikiIdx {
		t.Error("tools should be sorted by name")
	}

	for _, want := range []string{`"topic"`, `"summary"`, `"sources"`, `"tools_used"`, "NO NESTED OBJECTS"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt should contain %q", want)
		}
	}

	if !strings.HasSuffix(prompt, "Your output should be in JSON") {
		t.Error("format instructions should close the prompt")
	}
}

func TestGenerateSystemPrompt_NoFormatInstructions(t *testing.T) {
	prompt, err := GenerateSystemPrompt(SystemPromptTemplate, service.NewToolRegistry(), "")
	if err != nil {
		t.Fatalf("GenerateSystemPrompt failed: %v", err)
	}

	if !strings.HasSuffix(prompt, "list of string names of the tools you used.") {
		t.Errorf("unexpected prompt ending:\n%s", prompt)
	}
}

func TestGenerateSystemPrompt_InvalidTemplate(t *testing.T) {
	_, err := GenerateSystemPrompt("{{.Missing", service.NewToolRegistry(), "")
	if err == nil {
		t.Error("expected error for invalid template")
	}
}

func TestMRKLPrefix(t *testing.T) {
	prefix := MRKLPrefix("Use {{braces}} carefully.")

	tmpl, err := template.New("prefix").Parse(prefix)
	if err != nil {
		t.Fatalf("prefix should be a valid template: %v", err)
	}

	var buf strings.Builder
	err = tmpl.Execute(&buf, map[string]any{"tool_descriptions": "- search: Search the web\n"})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	got := buf.String()
	if !strings.HasPrefix(got, "Use {{braces}} carefully.") {
		t.Errorf("literal braces should survive, got:\n%s", got)
	}
	if !strings.Contains(got, "You have access to the following tools:\n\n- search: Search the web") {
		t.Errorf("tool descriptions missing, got:\n%s", got)
	}
}
