package userinteraction

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"research-agent/internal/application/port/output"
	"research-agent/internal/domain/entity"

	"github.com/fatih/color"
)

var _ output.ReporterPort = (*ConsoleReporter)(nil)

var ErrNoInput = errors.New("no input provided")

type ConsoleReporter struct {
	reader *bufio.Reader
	out    io.Writer
}

func NewConsoleReporter() *ConsoleReporter {
	return NewConsoleReporterWithIO(os.Stdin, color.Output)
}

func NewConsoleReporterWithIO(in io.Reader, out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

func (c *ConsoleReporter) ReadQuery(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)

	line, err := c.reader.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read user input: %w", err)
		}
		if strings.TrimSpace(line) == "" {
			return "", ErrNoInput
		}
	}

	return strings.TrimSpace(line), nil
}

func (c *ConsoleReporter) ShowToolStart(ctx context.Context, toolName, arguments string) {
	icon, name := toolDisplay(toolName)

	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Fprintf(c.out, "\n%s %s\n", icon, name)

	if summary := formatToolArguments(arguments); summary != "" {
		dim := color.New(color.Faint)
		dim.Fprintf(c.out, "   %s\n", summary)
	}
}

func (c *ConsoleReporter) ShowToolResult(ctx context.Context, toolName, result string, isError bool) {
	if isError {
		red := color.New(color.FgRed)
		red.Fprint(c.out, "✗ Error: ")

		dim := color.New(color.Faint)
		dim.Fprintln(c.out, truncate(result, 300))
		return
	}

	green := color.New(color.FgGreen)
	green.Fprintf(c.out, "✓ %s\n", formatToolResult(toolName, result))
}

func (c *ConsoleReporter) ShowDiagnostic(ctx context.Context, message string, args ...any) {
	red := color.New(color.FgRed)
	red.Fprintf(c.out, message+"\n", args...)
}

func (c *ConsoleReporter) ShowRecord(ctx context.Context, record *entity.ResearchRecord) {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		c.ShowError(ctx, "Failed to display research record", err)
		return
	}

	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprintf(c.out, "\n%s\n", record.Topic)
	fmt.Fprintln(c.out, string(data))
}

func (c *ConsoleReporter) ShowPayload(ctx context.Context, payload string) {
	fmt.Fprintln(c.out, payload)
}

func (c *ConsoleReporter) ShowSaved(ctx context.Context, confirmation string) {
	green := color.New(color.FgGreen)
	green.Fprintln(c.out, confirmation)
}

func (c *ConsoleReporter) ShowError(ctx context.Context, message string, err error) {
	red := color.New(color.FgRed, color.Bold)
	red.Fprintf(c.out, "%s: %v\n", message, err)
}

func toolDisplay(toolName string) (string, string) {
	displays := map[string][2]string{
		entity.ToolSearch.String():     {"🔎", "Web search"},
		entity.ToolWikipedia.String():  {"📚", "Wikipedia"},
		entity.ToolSaveToFile.String(): {"💾", "Save to file"},
		entity.ToolFetchURL.String():   {"🌐", "Fetch page"},
	}

	if display, ok := displays[toolName]; ok {
		return display[0], display[1]
	}
	return "🔧", toolName
}

func formatToolArguments(arguments string) string {
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return truncate(strings.TrimSpace(arguments), 80)
	}

	if query, ok := args["query"].(string); ok {
		return fmt.Sprintf("Query: %s", truncate(query, 80))
	}
	if url, ok := args["url"].(string); ok {
		return fmt.Sprintf("URL: %s", url)
	}
	if _, ok := args["data"]; ok {
		return "Saving research data"
	}
	return ""
}

func formatToolResult(toolName, result string) string {
	switch toolName {
	case entity.ToolSearch.String():
		if n := strings.Count(result, "Title: "); n > 0 {
			return fmt.Sprintf("%d result(s)", n)
		}
	case entity.ToolSaveToFile.String():
		return result
	case entity.ToolFetchURL.String():
		if first, _, ok := strings.Cut(result, "\n"); ok {
			return truncate(first, 100)
		}
	}

	return truncate(strings.ReplaceAll(result, "\n", " "), 100)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
