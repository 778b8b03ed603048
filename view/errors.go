package view

import (
	"errors"
	"fmt"
)

// ErrAuthRequired is what the backend's 401 turns into. LoadAndRender handles
// it with a redirect and never returns it.
var ErrAuthRequired = errors.New("authentication required")

// ErrEmptyResource is returned before any request for an empty name.
var ErrEmptyResource = errors.New("resource name is empty")

// LoadError is a non-2xx, non-401 response.
type LoadError struct {
	Resource   string
	StatusCode int
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load table %s: %d", e.Resource, e.StatusCode)
}

// ParseError is a response body that is not json.
type ParseError struct {
	Resource string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse table %s: %v", e.Resource, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
