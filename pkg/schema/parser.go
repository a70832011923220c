package schema

import (
	"errors"
	"fmt"
	"os"
)

// DefaultMaxFileSize is the largest schema file the parser accepts.
const DefaultMaxFileSize = 10 * 1024 * 1024 // 10MB

// Parser reads schema definition files.
type Parser struct {
	maxFileSize int64
}

// NewParser creates a new parser with default configuration.
func NewParser() *Parser {
	return &Parser{
		maxFileSize: DefaultMaxFileSize,
	}
}

// WithMaxFileSize sets the maximum file size limit.
func (p *Parser) WithMaxFileSize(size int64) *Parser {
	if size > 0 {
		p.maxFileSize = size
	}
	return p
}

// Parse reads and builds the schema at path. Any returned error is a schema
// acquisition failure (*Error or *ErrorList) and is fatal for a run.
func (p *Parser) Parse(path string) (*Schema, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		msg := fmt.Sprintf("Failed to access schema file: %v", err)
		if errors.Is(err, os.ErrNotExist) {
			msg = fmt.Sprintf("Schema file %q not found", path)
		}
		return nil, &Error{
			Type:     ErrorTypeIO,
			Message:  msg,
			Location: Location{File: path},
		}
	}

	if fileInfo.IsDir() {
		return nil, &Error{
			Type:     ErrorTypeIO,
			Message:  fmt.Sprintf("Schema path %q is a directory", path),
			Location: Location{File: path},
		}
	}

	if fileInfo.Size() > p.maxFileSize {
		return nil, &Error{
			Type:     ErrorTypeIO,
			Message:  fmt.Sprintf("File size %d exceeds maximum %d bytes", fileInfo.Size(), p.maxFileSize),
			Location: Location{File: path},
		}
	}

	ys, err := parseYAMLFile(path)
	if err != nil {
		return nil, &Error{
			Type:       ErrorTypeSyntax,
			Message:    fmt.Sprintf("YAML parsing failed: %v", err),
			Location:   Location{File: path, Line: 1},
			Suggestion: "Check YAML syntax (indentation, colons, quotes)",
		}
	}

	s, err := newBuilder(path).buildSchema(ys)
	if err != nil {
		var errList *ErrorList
		if errors.As(err, &errList) {
			return nil, withContext(errList)
		}
		return nil, err
	}
	return s, nil
}

// ParseBytes builds a schema from YAML held in memory. sourcePath is only
// used for error locations.
func (p *Parser) ParseBytes(data []byte, sourcePath string) (*Schema, error) {
	if int64(len(data)) > p.maxFileSize {
		return nil, &Error{
			Type:     ErrorTypeIO,
			Message:  fmt.Sprintf("Data size %d exceeds maximum %d bytes", len(data), p.maxFileSize),
			Location: Location{File: sourcePath},
		}
	}

	ys, err := parseYAMLBytes(data)
	if err != nil {
		return nil, &Error{
			Type:       ErrorTypeSyntax,
			Message:    fmt.Sprintf("YAML parsing failed: %v", err),
			Location:   Location{File: sourcePath, Line: 1, Column: 1},
			Suggestion: "Check YAML syntax (indentation, colons, quotes)",
		}
	}

	return newBuilder(sourcePath).buildSchema(ys)
}

// Load parses the schema at path with default settings.
func Load(path string) (*Schema, error) {
	return NewParser().Parse(path)
}
