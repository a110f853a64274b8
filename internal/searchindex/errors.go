package searchindex

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is against the errors returned by Load.
var (
	// ErrMalformedIndex is returned when the top-level shape is wrong:
	// the payload is not an object or its "docs" member is missing or not
	// an array.
	ErrMalformedIndex = errors.New("malformed search index")

	// ErrMalformedRecord is returned when a single fragment is invalid.
	ErrMalformedRecord = errors.New("malformed search index record")
)

// MalformedIndexError describes a top-level shape violation.
type MalformedIndexError struct {
	Reason string
	Err    error
}

func (e *MalformedIndexError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrMalformedIndex, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrMalformedIndex, e.Reason)
}

func (e *MalformedIndexError) Unwrap() error { return e.Err }

func (e *MalformedIndexError) Is(target error) bool { return target == ErrMalformedIndex }

// MalformedRecordError identifies the fragment that failed validation.
type MalformedRecordError struct {
	// Index is the zero-based position of the record in "docs".
	Index int
	// Field is the offending member, empty when the record itself is not an object.
	Field  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: docs[%d].%s: %s", ErrMalformedRecord, e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: docs[%d]: %s", ErrMalformedRecord, e.Index, e.Reason)
}

func (e *MalformedRecordError) Is(target error) bool { return target == ErrMalformedRecord }
