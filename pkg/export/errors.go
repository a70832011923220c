package export

import "fmt"

// Error is a failure while writing a report in some format.
type Error struct {
	Format  string // Export format ("json", "csv", "text")
	Records int    // Records written or attempted when the failure occurred
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("export error [format=%s, records=%d]: %v", e.Format, e.Records, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new export Error.
func NewError(format string, records int, cause error) *Error {
	return &Error{
		Format:  format,
		Records: records,
		Cause:   cause,
	}
}
