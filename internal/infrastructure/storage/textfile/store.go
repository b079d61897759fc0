package textfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"research-agent/internal/application/port/output"
	"research-agent/internal/domain/entity"

	"github.com/mitchellh/go-wordwrap"
)

var _ output.SaverPort = (*Store)(nil)

const (
	DefaultFilename = "research_output.txt"
	DefaultWidth    = 80

	entryHeader     = "--- Research Output ---"
	timestampLayout = "2006-01-02 15:04:05"
	indent          = "  "
	bullet          = "  - "
)

type Config struct {
	Path  string
	Wrap  bool
	Width int
}

// Store appends research entries to a single text file. The file is opened,
// written and closed on every Save.
type Store struct {
	path   string
	wrap   bool
	width  int
	now    func() time.Time
	logger output.LoggerPort
}

func NewStore(cfg Config, logger output.LoggerPort) *Store {
	path := cfg.Path
	if path == "" {
		path = DefaultFilename
	}
	width := cfg.Width
	if width <= len(bullet) {
		width = DefaultWidth
	}
	return &Store{
		path:   path,
		wrap:   cfg.Wrap,
		width:  width,
		now:    time.Now,
		logger: logger,
	}
}

func (s *Store) Location() string {
	return s.path
}

func (s *Store) Save(payload any) (string, error) {
	entry := FormatEntry(s.now(), s.render(payload))

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(entry); err != nil {
		return "", fmt.Errorf("write %s: %w", s.path, err)
	}

	s.logger.Debug("Research entry appended", "path", s.path, "bytes", len(entry), "wrapped", s.wrap)
	return fmt.Sprintf("Data successfully saved to %s", s.path), nil
}

func FormatEntry(ts time.Time, body string) string {
	return fmt.Sprintf("%s\nTimestamp: %s\n\n%s\n\n", entryHeader, ts.Format(timestampLayout), body)
}

func (s *Store) render(payload any) string {
	if text, ok := payload.(string); ok {
		return text
	}
	if s.wrap {
		if fields, ok := toFields(payload); ok {
			return s.renderWrapped(fields)
		}
	}
	return marshalPayload(payload)
}

func (s *Store) renderWrapped(fields map[string]any) string {
	var b strings.Builder
	for i, key := range orderedKeys(fields) {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(key)
		b.WriteString(":\n")

		switch value := fields[key].(type) {
		case string:
			writeWrapped(&b, value, indent, indent, s.width)
		case []any:
			if len(value) == 0 {
				b.WriteString(indent + "[]\n")
			}
			for _, item := range value {
				writeWrapped(&b, scalar(item), bullet, strings.Repeat(" ", len(bullet)), s.width)
			}
		default:
			writeWrapped(&b, scalar(value), indent, indent, s.width)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// writeWrapped wraps text so that every line, prefix included, fits in width.
// Words longer than a line are split.
func writeWrapped(b *strings.Builder, text, first, rest string, width int) {
	limit := width - len(first)
	if limit < 1 {
		limit = 1
	}
	var lines []string
	for _, line := range strings.Split(wordwrap.WrapString(strings.TrimSpace(text), uint(limit)), "\n") {
		lines = append(lines, hardBreak(strings.TrimRight(line, " "), limit)...)
	}
	for i, line := range lines {
		if i == 0 {
			b.WriteString(first)
		} else {
			b.WriteString(rest)
		}
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteString("\n")
	}
}

// hardBreak cuts line into chunks of at most limit runes.
func hardBreak(line string, limit int) []string {
	runes := []rune(line)
	if len(runes) <= limit {
		return []string{line}
	}
	var chunks []string
	for len(runes) > limit {
		chunks = append(chunks, string(runes[:limit]))
		runes = runes[limit:]
	}
	return append(chunks, string(runes))
}

// toFields turns a record or JSON object into a generic map. Anything that
// does not marshal to a JSON object is rejected.
func toFields(payload any) (map[string]any, bool) {
	if fields, ok := payload.(map[string]any); ok {
		return fields, true
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, false
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

// orderedKeys puts record fields first, in record order, then the rest sorted.
func orderedKeys(fields map[string]any) []string {
	keys := make([]string, 0, len(fields))
	known := make(map[string]bool, len(entity.RecordFields))
	for _, key := range entity.RecordFields {
		known[key] = true
		if _, ok := fields[key]; ok {
			keys = append(keys, key)
		}
	}
	var extra []string
	for key := range fields {
		if !known[key] {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

func scalar(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(data)
}

func marshalPayload(payload any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Sprint(payload)
	}
	return strings.TrimRight(buf.String(), "\n")
}
