package core

import (
	"errors"
	"fmt"
)

// ErrOracleUnavailable is returned when the scoring oracle is missing at startup
var ErrOracleUnavailable = errors.New("scoring oracle is not available")

// ConnectionError represents a mail store connection or authentication failure.
// It is fatal to the stage that encountered it.
type ConnectionError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("mail store connection failed during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsConnectionError reports whether err is a mail store connection failure
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// ParseError represents a verdict file that matched no known schema.
// It is fatal for that load attempt only; callers degrade to an empty mapping.
type ParseError struct {
	Path string
	Err  error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse verdict file %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err is a verdict file parse failure
func IsParseError(err error) bool {
	var parseErr *ParseError
	return errors.As(err, &parseErr)
}

// UnknownLabelError represents a verdict whose label cannot be mapped to an action.
// It is a per-item failure; the batch continues.
type UnknownLabelError struct {
	UID   string
	Label Label
}

// Error implements the error interface
func (e *UnknownLabelError) Error() string {
	return fmt.Sprintf("no action mapping for label %q on message %s", e.Label, e.UID)
}

// IsUnknownLabel reports whether err is an unmapped label failure
func IsUnknownLabel(err error) bool {
	var labelErr *UnknownLabelError
	return errors.As(err, &labelErr)
}
