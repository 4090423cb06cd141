package source

import (
	"errors"
	"fmt"
)

// ErrNoInputData means a required source file is missing or empty.
var ErrNoInputData = errors.New("no input data found")

// MalformedInputError reports source data that is present but unusable.
type MalformedInputError struct {
	Table  string
	Path   string
	Field  string
	Row    int64
	Reason string
}

func (e *MalformedInputError) Error() string {
	msg := fmt.Sprintf("malformed input in %s (%s)", e.Table, e.Path)
	if e.Field != "" {
		msg += ": field " + e.Field
	}
	if e.Row > 0 {
		msg += fmt.Sprintf(" at row %d", e.Row)
	}
	return msg + ": " + e.Reason
}
