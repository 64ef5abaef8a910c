package generation

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind labels the structured payload a request asks for.
type Kind string

const (
	KindQuestionSet    Kind = "question-set"
	KindAnalysisReport Kind = "analysis-report"
)

// Code classifies a generation failure.
type Code string

const (
	// CodeConfiguration means no request could be made: missing credentials,
	// no provider, or a provider that cannot take the document.
	CodeConfiguration Code = "configuration"

	// CodeServiceUnavailable covers transport errors, rate limits, outages
	// and truncated output. Callers may retry through WithRetry.
	CodeServiceUnavailable Code = "service_unavailable"

	// CodeMalformedOutput means the model answered but the candidate failed
	// schema validation.
	CodeMalformedOutput Code = "malformed_output"
)

// Sentinels for errors.Is matching against *Error.
var (
	ErrConfiguration      = errors.New("generation: configuration error")
	ErrServiceUnavailable = errors.New("generation: service unavailable")
	ErrMalformedOutput    = errors.New("generation: malformed output")
)

// Error is the typed failure returned by a Generator.
type Error struct {
	Kind Kind
	Code Code

	// Raw is the rejected candidate, set only for CodeMalformedOutput.
	Raw json.RawMessage

	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("generate %s: %s: %v", e.Kind, e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for e.Code.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrConfiguration:
		return e.Code == CodeConfiguration
	case ErrServiceUnavailable:
		return e.Code == CodeServiceUnavailable
	case ErrMalformedOutput:
		return e.Code == CodeMalformedOutput
	}
	return false
}

func configurationError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Code: CodeConfiguration, Err: err}
}
