package normalizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"research-agent/internal/application/port/output"
	"research-agent/internal/domain/entity"

	"github.com/tmc/langchaingo/outputparser"
)

const (
	stageStrict   = "strict parse"
	stageBlocks   = "content block parse"
	stageShape    = "shape check"
	stageExtract  = "JSON extraction"
	stageSave     = "save"
	maxContentLen = 500
)

type Fidelity string

const (
	FidelityStructured Fidelity = "structured"
	FidelityPartial    Fidelity = "partial"
	FidelityRaw        Fidelity = "raw"
)

// Result is the outcome of normalizing one agent response. Exactly one of
// Record, Partial and Raw is the effective payload, chosen by Fidelity.
type Result struct {
	Fidelity      Fidelity
	Record        *entity.ResearchRecord
	Partial       map[string]any
	Raw           string
	ObservedTools []string
	Diagnostics   []Diagnostic
}

// Payload returns the value handed to the save collaborator. Raw text is
// passed through untouched.
func (r *Result) Payload() any {
	switch r.Fidelity {
	case FidelityStructured:
		return r.Record
	case FidelityPartial:
		return r.Partial
	default:
		return r.Raw
	}
}

// Serialize renders the payload as indented JSON, or the raw text when it
// is not JSON.
func (r *Result) Serialize() string {
	switch r.Fidelity {
	case FidelityStructured:
		return pretty(r.Record)
	case FidelityPartial:
		return pretty(r.Partial)
	default:
		return reindent(r.Raw)
	}
}

type Normalizer struct {
	parser outputparser.Defined[entity.ResearchRecord]
	saver  output.SaverPort
	logger output.LoggerPort
}

func New(saver output.SaverPort, logger output.LoggerPort) (*Normalizer, error) {
	parser, err := outputparser.NewDefined(entity.ResearchRecord{})
	if err != nil {
		return nil, fmt.Errorf("create output parser: %w", err)
	}
	return &Normalizer{
		parser: parser,
		saver:  saver,
		logger: logger,
	}, nil
}

// FormatInstructions is the schema description given to the model.
func (n *Normalizer) FormatInstructions() string {
	return n.parser.GetFormatInstructions()
}

// Process normalizes the agent result and persists whatever payload
// survived. Only a persistence failure is returned as an error.
func (n *Normalizer) Process(result *entity.AgentResult) (*Result, string, error) {
	res := n.Normalize(result)

	confirmation, err := n.Persist(res)
	if err != nil {
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Stage:      stageSave,
			Err:        err,
			OutputType: fmt.Sprintf("%T", res.Payload()),
			Content:    truncate(res.Serialize(), maxContentLen),
		})
		return res, "", err
	}
	return res, confirmation, nil
}

// Normalize never fails: every error degrades to a lower-fidelity result
// and is recorded as a diagnostic.
func (n *Normalizer) Normalize(result *entity.AgentResult) (res *Result) {
	res = &Result{Fidelity: FidelityRaw}
	if result == nil {
		res.Raw = "<nil>"
		res.diagnose(stageShape, ErrUnexpectedShape, nil)
		return res
	}
	res.Raw = rawText(result)

	defer func() {
		if r := recover(); r != nil {
			res.Fidelity = FidelityRaw
			res.Record, res.Partial = nil, nil
			res.diagnose(stageShape, fmt.Errorf("%w: %v", ErrPanic, r), result.Output)
		}
	}()

	n.parse(res, result.Output)

	res.ObservedTools = ObservedTools(result.IntermediateSteps)
	if len(res.ObservedTools) > 0 && res.Record != nil {
		res.Record.ToolsUsed = append([]string(nil), res.ObservedTools...)
	}

	n.logger.Debug("Response normalized",
		"fidelity", string(res.Fidelity),
		"diagnostics", len(res.Diagnostics),
		"observedTools", res.ObservedTools)
	return res
}

// Persist appends the payload through the save collaborator.
func (n *Normalizer) Persist(res *Result) (confirmation string, err error) {
	if n.saver == nil {
		return "", fmt.Errorf("no save collaborator configured")
	}
	err = guard(func() error {
		var saveErr error
		confirmation, saveErr = n.saver.Save(res.Payload())
		return saveErr
	})
	if err != nil {
		n.logger.Error("Failed to persist research output", "error", err, "fidelity", string(res.Fidelity))
		return "", fmt.Errorf("save research output: %w", err)
	}
	n.logger.Info("Research output persisted", "location", n.saver.Location(), "fidelity", string(res.Fidelity))
	return confirmation, nil
}

func (n *Normalizer) parse(res *Result, out any) {
	switch value := out.(type) {
	case string:
		err := guard(func() error {
			record, err := parseStrict(value)
			if err != nil {
				return err
			}
			res.setRecord(record)
			return nil
		})
		if err != nil {
			res.diagnose(stageStrict, err, out)
			n.extract(res, value, out)
		}

	case nil:
		res.diagnose(stageShape, ErrUnexpectedShape, out)

	default:
		blocks, ok := asBlocks(value)
		if !ok {
			res.diagnose(stageShape, ErrUnexpectedShape, out)
			return
		}
		if len(blocks) == 0 {
			res.diagnose(stageShape, ErrEmptyOutput, out)
			return
		}

		text, ok := blocks[0]["text"].(string)
		if !ok {
			res.diagnose(stageBlocks, ErrMissingText, out)
			return
		}

		err := guard(func() error {
			record, err := n.parseSchema(text)
			if err != nil {
				return err
			}
			res.setRecord(record)
			return nil
		})
		if err != nil {
			res.diagnose(stageBlocks, err, out)
			n.extract(res, text, out)
		}
	}
}

// extract is the last structured tier: the span between the first '{' and
// the last '}' of text.
func (n *Normalizer) extract(res *Result, text string, out any) {
	err := guard(func() error {
		span, err := ExtractObject(text)
		if err != nil {
			return err
		}

		record, recordErr := decodeRecord([]byte(span))
		if recordErr == nil {
			res.setRecord(record)
			return nil
		}

		var partial map[string]any
		if err := json.Unmarshal([]byte(span), &partial); err != nil {
			return fmt.Errorf("%w: %w", ErrDecode, err)
		}
		res.diagnose(stageExtract, recordErr, span)
		res.Fidelity = FidelityPartial
		res.Partial = partial
		return nil
	})
	if err != nil {
		res.diagnose(stageExtract, err, out)
	}
}

func (n *Normalizer) parseSchema(text string) (*entity.ResearchRecord, error) {
	fenced := fence(text)
	record, err := n.parser.Parse(fenced)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	inner := fenced[len(fenceOpen) : len(fenced)-len(fenceClose)]
	if err := record.Validate([]byte(inner)); err != nil {
		return nil, err
	}
	return &record, nil
}

func parseStrict(text string) (*entity.ResearchRecord, error) {
	return decodeRecord([]byte(text))
}

// decodeRecord separates malformed JSON from well-formed JSON of the wrong
// shape so callers can tell the two apart with errors.Is.
func decodeRecord(data []byte) (*entity.ResearchRecord, error) {
	record, err := entity.DecodeResearchRecord(data)
	if err != nil {
		if errors.Is(err, entity.ErrMissingFields) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return record, nil
}

func (r *Result) setRecord(record *entity.ResearchRecord) {
	r.Fidelity = FidelityStructured
	r.Record = record
	r.Partial = nil
}

func (r *Result) diagnose(stage string, err error, value any) {
	r.Diagnostics = append(r.Diagnostics, Diagnostic{
		Stage:      stage,
		Err:        err,
		OutputType: fmt.Sprintf("%T", value),
		Content:    truncate(stringify(value), maxContentLen),
	})
}

// asBlocks accepts the list shapes an agent may return for content blocks.
func asBlocks(value any) ([]map[string]any, bool) {
	switch v := value.(type) {
	case []map[string]any:
		return v, true
	case []entity.ContentBlock:
		blocks := make([]map[string]any, 0, len(v))
		for _, b := range v {
			block := map[string]any{"type": string(b.Type)}
			if b.Type == entity.ContentTypeText {
				block["text"] = b.Text
			}
			blocks = append(blocks, block)
		}
		return blocks, true
	case []any:
		blocks := make([]map[string]any, 0, len(v))
		for _, item := range v {
			block, ok := item.(map[string]any)
			if !ok {
				block = map[string]any{}
			}
			blocks = append(blocks, block)
		}
		return blocks, true
	case []string:
		blocks := make([]map[string]any, 0, len(v))
		for _, s := range v {
			blocks = append(blocks, map[string]any{"text": s})
		}
		return blocks, true
	}
	return nil, false
}

func rawText(result *entity.AgentResult) string {
	if result.Output == nil {
		return result.String()
	}
	return stringify(result.Output)
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return "<nil>"
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(data)
}

// truncate cuts s to at most maxLen bytes without splitting a rune.
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
