package agent

import (
	"errors"
	"strings"

	"github.com/jonathan/cover-letter-agent/internal/llm"
)

// Kind classifies a failure so callers can tell terminal errors from retryable ones
// without matching on messages.
type Kind string

// Error kinds
const (
	KindInvalidInput    Kind = "invalid input"
	KindInputNull       Kind = "input is null"
	KindInputEmpty      Kind = "input is empty"
	KindOutputParse     Kind = "output parse error"
	KindUpstream        Kind = "upstream error"
	KindStrategy        Kind = "strategy error"
	KindMissingAnalysis Kind = "missing analysis"
	KindProcessing      Kind = "processing error"
)

// Error is the failure returned by agents and the components built on them.
type Error struct {
	Kind  Kind
	Agent string
	// Field names the offending input for the input kinds.
	Field string
	// Raw is the model output that failed to parse.
	Raw string
	Err error
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Agent != "" {
		sb.WriteString(e.Agent)
		sb.WriteString(": ")
	}
	sb.WriteString(string(e.Kind))
	if e.Field != "" {
		sb.WriteString(" (")
		sb.WriteString(e.Field)
		sb.WriteString(")")
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	errRequired = errors.New("value is required")
	errNull     = errors.New("value must not be null")
	errBlank    = errors.New("value must not be empty")
)

// InvalidInput reports a missing or blank required input.
func InvalidInput(agent, field string) *Error {
	return &Error{Kind: KindInvalidInput, Agent: agent, Field: field, Err: errRequired}
}

// InputNull reports an input that was not supplied at all.
func InputNull(agent, field string) *Error {
	return &Error{Kind: KindInputNull, Agent: agent, Field: field, Err: errNull}
}

// InputEmpty reports an input that is present but blank after trimming.
func InputEmpty(agent, field string) *Error {
	return &Error{Kind: KindInputEmpty, Agent: agent, Field: field, Err: errBlank}
}

// Wrap tags err with kind. A nil err yields nil.
func Wrap(kind Kind, agent string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Agent: agent, Err: err}
}

// KindOf returns the outermost Kind in err's chain, or "" when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether any error in err's chain has the given kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

// IsInputError reports whether err was caused by caller-supplied data.
func IsInputError(err error) bool {
	return IsKind(err, KindInvalidInput) || IsKind(err, KindInputNull) ||
		IsKind(err, KindInputEmpty) || IsKind(err, KindMissingAnalysis)
}

// IsRetryable reports whether a later attempt could succeed: an upstream failure
// whose cause is transient.
func IsRetryable(err error) bool {
	return IsKind(err, KindUpstream) && llm.IsTransient(err)
}
