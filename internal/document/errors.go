package document

import "errors"

var (
	ErrElementNotFound  = errors.New("element not found")
	ErrDuplicateElement = errors.New("duplicate element id")
	ErrMalformedElement = errors.New("malformed element")
	ErrNotTextElement   = errors.New("element has no text content")
)
