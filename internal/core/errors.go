package core

import (
	"errors"
	"fmt"

	"github.com/git-pkgs/tsmm/client"
)

// ErrNotFound is returned when a game or package is not known to a registry.
var ErrNotFound = client.ErrNotFound

// ErrInvalidFormat is wrapped by every FormatError.
var ErrInvalidFormat = errors.New("invalid format")

// HTTP error types are shared with the client package.
type (
	HTTPError      = client.HTTPError
	RateLimitError = client.RateLimitError
)

// FormatError is returned when text cannot be parsed into an identifier.
type FormatError struct {
	Input    string
	Expected string
	Err      error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid identifier %q, expected %s: %v", e.Input, e.Expected, e.Err)
	}
	return fmt.Sprintf("invalid identifier %q, expected %s", e.Input, e.Expected)
}

func (e *FormatError) Unwrap() error {
	return ErrInvalidFormat
}

// NotFoundError wraps ErrNotFound with additional context.
type NotFoundError struct {
	Registry string
	Game     string
	Package  string
}

func (e *NotFoundError) Error() string {
	if e.Package != "" {
		return fmt.Sprintf("%s: package %s not found for %s", e.Registry, e.Package, e.Game)
	}
	return fmt.Sprintf("%s: game %s not found", e.Registry, e.Game)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}
