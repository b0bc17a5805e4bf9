package ingestion

import (
	"errors"
	"fmt"
)

// Batch-level errors. Returned wrapped; check with errors.Is.
var (
	// ErrMalformedMessage is returned when the payload is not valid JSON.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrBatchShape is returned when the payload is not an object or its
	// token batch is not an array.
	ErrBatchShape = errors.New("batch is not an array")
)

// Item-level errors. Wrapped in ItemError; never abort a batch.
var (
	// ErrItemDecode is returned when a record does not match the token schema.
	ErrItemDecode = errors.New("record does not match token schema")

	// ErrMissingField is returned when id, type or attributes is absent.
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidItem is returned when a decoded record fails range validation.
	ErrInvalidItem = errors.New("record failed validation")
)

// ItemError describes one skipped record of a batch.
type ItemError struct {
	Index int    // position in the batch array
	ID    string // record id, empty if it could not be read
	Err   error
}

func (e ItemError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("item %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("item %d (%s): %v", e.Index, e.ID, e.Err)
}

func (e ItemError) Unwrap() error {
	return e.Err
}

// reason maps an item error to a metrics label.
func (e ItemError) reason() string {
	switch {
	case errors.Is(e.Err, ErrMissingField):
		return "missing_field"
	case errors.Is(e.Err, ErrInvalidItem):
		return "validation"
	default:
		return "decode"
	}
}
