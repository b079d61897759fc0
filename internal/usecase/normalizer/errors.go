package normalizer

import (
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedShape: output is neither a string nor a content-block list.
	ErrUnexpectedShape = errors.New("unexpected response format")
	ErrEmptyOutput     = errors.New("empty output sequence")
	ErrMissingText     = errors.New("content block has no text")
	ErrDecode          = errors.New("invalid JSON")
	ErrNoJSONObject    = errors.New("no JSON object found")
	ErrPanic           = errors.New("parser panicked")
)

// Diagnostic describes one degraded tier: what failed and on which value.
type Diagnostic struct {
	Stage      string
	Err        error
	OutputType string
	Content    string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %v (type %s): %s", d.Stage, d.Err, d.OutputType, d.Content)
}

// guard runs fn and turns a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn()
}
