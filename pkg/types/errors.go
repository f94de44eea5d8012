package types

import (
	"errors"
	"fmt"
)

var (
	ErrNilRecord      = errors.New("record is nil")
	ErrMalformedJSON  = errors.New("record is not a JSON object")
	ErrInvalidSection = errors.New("section is not a JSON object")
)

// ValidationError reports the first required field found missing in an
// ingestion record. Section is the zero-based position of the offending
// section, or -1 when the field belongs to the document itself.
type ValidationError struct {
	Field   string
	Section int
}

func (e *ValidationError) Error() string {
	if e.Section < 0 {
		return fmt.Sprintf("missing required field: %s", e.Field)
	}
	return fmt.Sprintf("missing required section field: %s in section %d", e.Field, e.Section)
}

func missingField(field string) *ValidationError {
	return &ValidationError{Field: field, Section: -1}
}

func missingSectionField(field string, section int) *ValidationError {
	return &ValidationError{Field: field, Section: section}
}
