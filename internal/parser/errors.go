package parser

import "fmt"

// Parse failure reasons. Structural failures only; a missing field is never
// a failure.
const (
	ReasonEmptyInput  = "empty_input"
	ReasonUndecodable = "undecodable"
)

// ParseError signals structurally unusable input. It is terminal and not
// retried: the pipeline rejects the document as unparseable.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse failed: %s", e.Reason)
}

// NewParseError creates a ParseError with the given reason.
func NewParseError(reason string) *ParseError {
	return &ParseError{Reason: reason}
}
