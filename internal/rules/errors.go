package rules

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrUnknownParam indicates a parameter the file type does not declare.
	ErrUnknownParam = errors.New("unknown parameter")

	// ErrUnknownType indicates a file type name absent from the database.
	ErrUnknownType = errors.New("unknown file type")

	// ErrInvalidDocument indicates a catalog or color file that failed
	// schema validation.
	ErrInvalidDocument = errors.New("invalid document")
)

// ParseError represents an error in a catalog, rule or color file.
type ParseError struct {
	Path    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}
