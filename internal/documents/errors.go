package documents

import "errors"

var (
	// ErrInvalidInput covers malformed upload requests.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned for unknown document ids.
	ErrNotFound = errors.New("document not found")
	// ErrEmptyDocument is returned when a file yields no extractable text.
	ErrEmptyDocument = errors.New("document contains no extractable text")
)
