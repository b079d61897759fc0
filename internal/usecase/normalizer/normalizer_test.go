package normalizer

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"research-agent/internal/application/port/output"
	"research-agent/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...any)                       {}
func (nopLogger) Info(msg string, args ...any)                        {}
func (nopLogger) Warn(msg string, args ...any)                        {}
func (nopLogger) Error(msg string, args ...any)                       {}
func (l nopLogger) WithField(key string, value any) output.LoggerPort { return l }
func (l nopLogger) WithFields(fields map[string]any) output.LoggerPort {
	return l
}
func (nopLogger) Close() error { return nil }

type recordingSaver struct {
	payloads []any
	err      error
	panics   bool
}

func (s *recordingSaver) Save(payload any) (string, error) {
	if s.panics {
		panic("disk on fire")
	}
	if s.err != nil {
		return "", s.err
	}
	s.payloads = append(s.payloads, payload)
	return "Data successfully saved to test.txt", nil
}

func (s *recordingSaver) Location() string { return "test.txt" }

const recordJSON = `{"topic":"Go","summary":"A language.","sources":["https://go.dev"],"tools_used":["search"]}`

func newTestNormalizer(t *testing.T, saver *recordingSaver) *Normalizer {
	t.Helper()
	n, err := New(saver, nopLogger{})
	require.NoError(t, err)
	return n
}

func hasDiagnostic(res *Result, target error) bool {
	for _, d := range res.Diagnostics {
		if errors.Is(d.Err, target) {
			return true
		}
	}
	return false
}

func TestNormalize_StringRoundTrip(t *testing.T) {
	n := newTestNormalizer(t, &recordingSaver{})

	res := n.Normalize(&entity.AgentResult{Output: recordJSON})

	require.Equal(t, FidelityStructured, res.Fidelity)
	assert.Equal(t, &entity.ResearchRecord{
		Topic:     "Go",
		Summary:   "A language.",
		Sources:   []string{"https://go.dev"},
		ToolsUsed: []string{"search"},
	}, res.Record)
	assert.Empty(t, res.Diagnostics)
}

func TestNormalize_ContentBlocksMatchStringCase(t *testing.T) {
	n := newTestNormalizer(t, &recordingSaver{})

	fromString := n.Normalize(&entity.AgentResult{Output: recordJSON})
	fromBlocks := n.Normalize(&entity.AgentResult{
		Output: []any{map[string]any{"type": "text", "text": recordJSON}},
	})
	fromTyped := n.Normalize(&entity.AgentResult{
		Output: []entity.ContentBlock{{Type: entity.ContentTypeText, Text: recordJSON}},
	})

	require.Equal(t, FidelityStructured, fromBlocks.Fidelity)
	assert.Equal(t, fromString.Record, fromBlocks.Record)
	assert.Equal(t, fromString.Record, fromTyped.Record)
	assert.Empty(t, fromBlocks.Diagnostics)
}

func TestNormalize_FencedContentBlock(t *testing.T) {
	n := newTestNormalizer(t, &recordingSaver{})

	res := n.Normalize(&entity.AgentResult{
		Output: []map[string]any{{"text": "```json\n" + recordJSON + "\n```"}},
	})

	require.Equal(t, FidelityStructured, res.Fidelity)
	assert.Equal(t, "Go", res.Record.Topic)
}

func TestNormalize_ObservedToolsOverrideReported(t *testing.T) {
	n := newTestNormalizer(t, &recordingSaver{})

	res := n.Normalize(&entity.AgentResult{
		Output: recordJSON,
		IntermediateSteps: []entity.AgentStep{
			{Tool: "search"},
			{Tool: "search"},
			{Tool: "wikipedia"},
		},
	})

	require.Equal(t, FidelityStructured, res.Fidelity)
	assert.Equal(t, []string{"search", "wikipedia"}, res.ObservedTools)
	assert.Equal(t, []string{"search", "wikipedia"}, res.Record.ToolsUsed)
}

func TestNormalize_ReportedToolsKeptWithoutSteps(t *testing.T) {
	n := newTestNormalizer(t, &recordingSaver{})

	res := n.Normalize(&entity.AgentResult{
		Output:            recordJSON,
		IntermediateSteps: []entity.AgentStep{{Tool: ""}},
	})

	assert.Equal(t, []string{"search"}, res.Record.ToolsUsed)
	assert.Empty(t, res.ObservedTools)
}

func TestNormalize_ExtractsEmbeddedObject(t *testing.T) {
	n := newTestNormalizer(t, &recordingSaver{})

	res := n.Normalize(&entity.AgentResult{
		Output: `blah {"topic":"x","summary":"y","sources":[],"tools_used":[]} blah`,
	})

	require.Equal(t, FidelityStructured, res.Fidelity)
	assert.Equal(t, &entity.ResearchRecord{
		Topic:     "x",
		Summary:   "y",
		Sources:   []string{},
		ToolsUsed: []string{},
	}, res.Record)
	assert.True(t, hasDiagnostic(res, ErrDecode))
}

func TestNormalize_ExtractsFromMalformedBlock(t *testing.T) {
	n := newTestNormalizer(t, &recordingSaver{})

	res := n.Normalize(&entity.AgentResult{
		Output: []any{map[string]any{"text": "Here you go: " + recordJSON + " Hope it helps"}},
	})

	require.Equal(t, FidelityStructured, res.Fidelity)
	assert.Equal(t, "Go", res.Record.Topic)
	require.NotEmpty(t, res.Diagnostics)
	assert.Equal(t, stageBlocks, res.Diagnostics[0].Stage)
}

func TestNormalize_PartialObject(t *testing.T) {
	n := newTestNormalizer(t, &recordingSaver{})

	res := n.Normalize(&entity.AgentResult{
		Output: `Result: {"topic":"x","notes":"no summary here"}`,
	})

	require.Equal(t, FidelityPartial, res.Fidelity)
	assert.Equal(t, map[string]any{"topic": "x", "notes": "no summary here"}, res.Partial)
	assert.True(t, hasDiagnostic(res, entity.ErrMissingFields))
}

func TestNormalize_NestedSourcesArePartial(t *testing.T) {
	n := newTestNormalizer(t, &recordingSaver{})

	res := n.Normalize(&entity.AgentResult{
		Output: `{"topic":"Go","summary":"s","sources":[{"u":1}],"tools_used":[]}`,
	})

	require.Equal(t, FidelityPartial, res.Fidelity)
	assert.Nil(t, res.Record)
	assert.Equal(t, []any{map[string]any{"u": float64(1)}}, res.Partial["sources"])
	assert.True(t, hasDiagnostic(res, ErrDecode))
}

func TestNormalize_NullFieldIsMissing(t *testing.T) {
	n := newTestNormalizer(t, &recordingSaver{})

	res := n.Normalize(&entity.AgentResult{
		Output: `{"topic":null,"summary":"s","sources":[],"tools_used":[]}`,
	})

	assert.Equal(t, FidelityPartial, res.Fidelity)
	assert.True(t, hasDiagnostic(res, entity.ErrMissingFields))
}

func TestNormalize_MissingFieldsInStrictString(t *testing.T) {
	n := newTestNormalizer(t, &recordingSaver{})

	res := n.Normalize(&entity.AgentResult{Output: `{"topic":"x","summary":"y"}`})

	assert.Equal(t, FidelityPartial, res.Fidelity)
	assert.True(t, hasDiagnostic(res, entity.ErrMissingFields))
	assert.False(t, hasDiagnostic(res, ErrDecode))
}

func TestNormalize_NoJSONFallsBackToRaw(t *testing.T) {
	n := newTestNormalizer(t, &recordingSaver{})

	res := n.Normalize(&entity.AgentResult{Output: "I could not find anything."})

	require.Equal(t, FidelityRaw, res.Fidelity)
	assert.Equal(t, "I could not find anything.", res.Payload())
	assert.True(t, hasDiagnostic(res, ErrDecode))
	assert.True(t, hasDiagnostic(res, ErrNoJSONObject), "final fallback failure must be reported")
}

func TestNormalize_BlockWithoutText(t *testing.T) {
	n := newTestNormalizer(t, &recordingSaver{})

	res := n.Normalize(&entity.AgentResult{
		Output: []any{map[string]any{"type": "image"}},
	})

	require.Equal(t, FidelityRaw, res.Fidelity)
	assert.Equal(t, `[{"type":"image"}]`, res.Raw)
	assert.True(t, hasDiagnostic(res, ErrMissingText))
}

func TestNormalize_EmptySequence(t *testing.T) {
	n := newTestNormalizer(t, &recordingSaver{})

	res := n.Normalize(&entity.AgentResult{Output: []any{}})

	assert.Equal(t, FidelityRaw, res.Fidelity)
	assert.True(t, hasDiagnostic(res, ErrEmptyOutput))
}

func TestNormalize_UnexpectedShape(t *testing.T) {
	n := newTestNormalizer(t, &recordingSaver{})

	res := n.Normalize(&entity.AgentResult{Output: 42})

	assert.Equal(t, FidelityRaw, res.Fidelity)
	assert.Equal(t, "42", res.Raw)
	require.True(t, hasDiagnostic(res, ErrUnexpectedShape))
	assert.Equal(t, "int", res.Diagnostics[0].OutputType)
}

func TestProcess_AbsentOutputPersistsRawResponse(t *testing.T) {
	saver := &recordingSaver{}
	n := newTestNormalizer(t, saver)
	result := &entity.AgentResult{
		IntermediateSteps: []entity.AgentStep{{Tool: "search", ToolInput: "golang"}},
	}

	res, confirmation, err := n.Process(result)

	require.NoError(t, err)
	assert.Equal(t, "Data successfully saved to test.txt", confirmation)
	assert.Equal(t, FidelityRaw, res.Fidelity)
	require.Len(t, saver.payloads, 1)
	assert.Equal(t, result.String(), saver.payloads[0])
	assert.True(t, hasDiagnostic(res, ErrUnexpectedShape))
}

func TestProcess_SavesStructuredRecord(t *testing.T) {
	saver := &recordingSaver{}
	n := newTestNormalizer(t, saver)

	_, _, err := n.Process(&entity.AgentResult{Output: recordJSON})

	require.NoError(t, err)
	require.Len(t, saver.payloads, 1)
	record, ok := saver.payloads[0].(*entity.ResearchRecord)
	require.True(t, ok)
	assert.Equal(t, "Go", record.Topic)
}

func TestProcess_SaveFailureIsReturned(t *testing.T) {
	n := newTestNormalizer(t, &recordingSaver{err: errors.New("read-only file system")})

	res, confirmation, err := n.Process(&entity.AgentResult{Output: recordJSON})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only file system")
	assert.Empty(t, confirmation)
	assert.Equal(t, FidelityStructured, res.Fidelity)
}

func TestProcess_SaverPanicIsReturned(t *testing.T) {
	n := newTestNormalizer(t, &recordingSaver{panics: true})

	_, _, err := n.Process(&entity.AgentResult{Output: "plain"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPanic))
}

func TestResult_Serialize(t *testing.T) {
	n := newTestNormalizer(t, &recordingSaver{})

	structured := n.Normalize(&entity.AgentResult{Output: recordJSON}).Serialize()
	assert.True(t, strings.HasPrefix(structured, "{\n  \"topic\": \"Go\""))

	raw := n.Normalize(&entity.AgentResult{Output: 42}).Serialize()
	assert.Equal(t, "42", raw)

	text := n.Normalize(&entity.AgentResult{Output: "just words"}).Serialize()
	assert.Equal(t, "just words", text)
}

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "embedded", input: `a {"x":1} b`, want: `{"x":1}`},
		{name: "nested", input: `{"a":{"b":1}} tail`, want: `{"a":{"b":1}}`},
		{name: "no braces", input: "nothing", wantErr: ErrNoJSONObject},
		{name: "reversed", input: "} then {", wantErr: ErrNoJSONObject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractObject(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFence(t *testing.T) {
	assert.Equal(t, "```json\n{}\n```", fence("{}"))
	assert.Equal(t, "```json\n{}\n```", fence("```\n{}\n```"))
	assert.Equal(t, "```json {} ```", fence("  ```json {} ```  "))
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "ab...", truncate("abcdef", 2))

	got := truncate("aé", 2)
	assert.Equal(t, "a...", got)
	assert.True(t, utf8.ValidString(got))

	long := strings.Repeat("ж", maxContentLen)
	got = truncate(long, maxContentLen+1)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), maxContentLen+1+len("..."))
}
