package normalizer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"research-agent/internal/domain/entity"
)

const (
	fenceOpen  = "```json"
	fenceClose = "```"
)

// ExtractObject returns the text between the first '{' and the last '}'.
func ExtractObject(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", ErrNoJSONObject
	}
	return text[start : end+1], nil
}

// fence wraps text in a ```json block unless it already is one. A bare ```
// fence is rewritten to ```json.
func fence(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, fenceOpen) && strings.HasSuffix(trimmed, fenceClose) &&
		len(trimmed) >= len(fenceOpen)+len(fenceClose) {
		return trimmed
	}
	if strings.HasPrefix(trimmed, fenceClose) && strings.HasSuffix(trimmed, fenceClose) &&
		len(trimmed) >= 2*len(fenceClose) {
		inner := strings.TrimPrefix(trimmed, fenceClose)
		inner = strings.TrimSuffix(inner, fenceClose)
		return fenceOpen + "\n" + strings.TrimSpace(inner) + "\n" + fenceClose
	}
	return fenceOpen + "\n" + trimmed + "\n" + fenceClose
}

// ObservedTools returns the distinct tool names in first-seen order.
func ObservedTools(steps []entity.AgentStep) []string {
	seen := make(map[string]struct{}, len(steps))
	var names []string
	for _, step := range steps {
		name := strings.TrimSpace(step.Tool)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

func pretty(value any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return fmt.Sprint(value)
	}
	return strings.TrimRight(buf.String(), "\n")
}

// reindent pretty-prints text that is valid JSON and leaves anything else
// untouched.
func reindent(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || !json.Valid([]byte(trimmed)) {
		return text
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(trimmed), "", "  "); err != nil {
		return text
	}
	return buf.String()
}
