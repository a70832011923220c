package schema

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// ErrorType categorizes a schema acquisition failure.
type ErrorType string

const (
	ErrorTypeIO         ErrorType = "io"         // Schema file missing or unreadable
	ErrorTypeSyntax     ErrorType = "syntax"     // YAML syntax error
	ErrorTypeStructural ErrorType = "structural" // Missing/invalid fields, unknown type keywords
)

// Error is a schema acquisition error. Any Error aborts a validation run
// before a single check executes.
type Error struct {
	Type       ErrorType
	Message    string
	Location   Location
	Context    string // Surrounding lines of the schema file
	Suggestion string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] %s", e.Type, e.Message))

	if e.Location.IsValid() {
		sb.WriteString(fmt.Sprintf("\n  --> %s", e.Location.String()))
	} else if e.Location.File != "" {
		sb.WriteString(fmt.Sprintf("\n  --> %s", e.Location.File))
	}

	if e.Context != "" {
		sb.WriteString("\n  |\n")
		sb.WriteString(strings.TrimRight(e.Context, "\n"))
	}

	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("\n  = suggestion: %s", e.Suggestion))
	}

	return sb.String()
}

// ErrorList collects every acquisition error found in one schema file.
type ErrorList struct {
	Errors []*Error
}

// NewErrorList creates a new empty error list.
func NewErrorList() *ErrorList {
	return &ErrorList{
		Errors: make([]*Error, 0),
	}
}

// Add appends an error to the list.
func (el *ErrorList) Add(err *Error) {
	el.Errors = append(el.Errors, err)
}

// AddError creates and adds a new structural error.
func (el *ErrorList) AddError(message string, location Location) {
	el.Add(&Error{
		Type:     ErrorTypeStructural,
		Message:  message,
		Location: location,
	})
}

// AddErrorWithSuggestion creates and adds a new structural error with a suggestion.
func (el *ErrorList) AddErrorWithSuggestion(message string, location Location, suggestion string) {
	el.Add(&Error{
		Type:       ErrorTypeStructural,
		Message:    message,
		Location:   location,
		Suggestion: suggestion,
	})
}

// HasErrors returns true if the list contains any errors.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// Count returns the number of errors in the list.
func (el *ErrorList) Count() int {
	return len(el.Errors)
}

// Error implements the error interface.
func (el *ErrorList) Error() string {
	if !el.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("schema acquisition failed with %d error(s):\n", el.Count()))
	for i, err := range el.Errors {
		sb.WriteString(fmt.Sprintf("Error %d: %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ToError returns nil if the list is empty, otherwise the list itself.
func (el *ErrorList) ToError() error {
	if !el.HasErrors() {
		return nil
	}
	return el
}

// IsAcquisitionError reports whether err (or anything it wraps) is a schema
// acquisition failure.
func IsAcquisitionError(err error) bool {
	var single *Error
	var list *ErrorList
	return errors.As(err, &single) || errors.As(err, &list)
}

// Suggest proposes the closest candidate to unknown, or lists the candidates
// when nothing is close.
func Suggest(unknown string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}

	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)

	minDistance := -1
	var bestMatch string
	for _, c := range sorted {
		dist := levenshtein.ComputeDistance(strings.ToLower(unknown), c)
		if minDistance < 0 || dist < minDistance {
			minDistance = dist
			bestMatch = c
		}
	}

	if minDistance < 4 {
		return fmt.Sprintf("Did you mean '%s'?", bestMatch)
	}
	return fmt.Sprintf("Valid values: %s", strings.Join(sorted, ", "))
}

// ExtractContext reads the schema file and returns the lines around location,
// with the offending line marked.
func ExtractContext(location Location, contextLines int) string {
	if !location.IsValid() || location.File == "" {
		return ""
	}

	file, err := os.Open(location.File)
	if err != nil {
		return ""
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return ""
	}

	errorLine := location.Line - 1
	if errorLine >= len(lines) {
		return ""
	}
	startLine := max(errorLine-contextLines, 0)
	endLine := min(errorLine+contextLines, len(lines)-1)

	var sb strings.Builder
	width := len(fmt.Sprintf("%d", endLine+1))
	for i := startLine; i <= endLine; i++ {
		prefix := "  "
		if i == errorLine {
			prefix = "->"
		}
		sb.WriteString(fmt.Sprintf("%s %*d | %s\n", prefix, width, i+1, lines[i]))
	}
	return sb.String()
}

// withContext attaches file context to every error that has a location.
func withContext(el *ErrorList) *ErrorList {
	for _, e := range el.Errors {
		if e.Context == "" {
			e.Context = ExtractContext(e.Location, 2)
		}
	}
	return el
}
