package history

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedURL indicates a watch or channel URL that cannot be parsed
	// into the expected identifier.
	ErrMalformedURL = errors.New("malformed url")
	// ErrMissingField indicates a video record without one of its required fields.
	ErrMissingField = errors.New("missing field")
	// ErrInvariantViolation indicates a record that classification should have
	// excluded, such as a "Viewed " title on a video record.
	ErrInvariantViolation = errors.New("invariant violation")
)

// ParseError describes why a video record could not be parsed.
// It unwraps to one of the sentinel kinds above.
type ParseError struct {
	Kind   error
	Field  string
	Value  string
	Detail string
}

func (e *ParseError) Error() string {
	msg := e.Kind.Error()
	if e.Field != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Field)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Value != "" {
		msg += fmt.Sprintf(" (%s)", e.Value)
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Kind
}

func missingField(field string) error {
	return &ParseError{Kind: ErrMissingField, Field: field}
}

func malformedURL(field, value, detail string) error {
	return &ParseError{Kind: ErrMalformedURL, Field: field, Value: value, Detail: detail}
}
