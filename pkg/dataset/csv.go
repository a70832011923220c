package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// DefaultNullTokens are the cell values read as null.
var DefaultNullTokens = []string{"", "NA", "N/A", "NaN", "nan", "null", "NULL", "None"}

// checkEvery is how many rows are read between context checks.
const checkEvery = 10000

// CSVLoader reads one <table><extension> file per table from a directory.
// Null tokens become nil. Each column then gets one type from its non-null
// cells, see InferColumn.
type CSVLoader struct {
	dir        string
	extension  string
	delimiter  rune
	nullTokens map[string]struct{}
	infer      bool
}

// CSVOption configures a CSVLoader.
type CSVOption func(*CSVLoader)

// WithDelimiter sets the field delimiter (default ',').
func WithDelimiter(r rune) CSVOption {
	return func(l *CSVLoader) {
		if r != 0 {
			l.delimiter = r
		}
	}
}

// WithExtension sets the file extension appended to table names (default ".csv").
func WithExtension(ext string) CSVOption {
	return func(l *CSVLoader) {
		if ext != "" {
			l.extension = ext
		}
	}
}

// WithNullTokens replaces the set of cell values read as null.
func WithNullTokens(tokens []string) CSVOption {
	return func(l *CSVLoader) {
		if tokens == nil {
			return
		}
		l.nullTokens = make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			l.nullTokens[tok] = struct{}{}
		}
	}
}

// WithTypeInference toggles typed cells. When disabled every non-null cell
// is kept as a string.
func WithTypeInference(enabled bool) CSVOption {
	return func(l *CSVLoader) {
		l.infer = enabled
	}
}

// NewCSVLoader creates a loader for the CSV files in dir.
func NewCSVLoader(dir string, opts ...CSVOption) *CSVLoader {
	l := &CSVLoader{
		dir:       dir,
		extension: ".csv",
		delimiter: ',',
		infer:     true,
	}
	WithNullTokens(DefaultNullTokens)(l)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Source implements Loader.
func (l *CSVLoader) Source() string {
	return "csv:" + l.dir
}

// Path returns the file the loader reads for table.
func (l *CSVLoader) Path(table string) string {
	return filepath.Join(l.dir, table+l.extension)
}

// LoadTable implements Loader.
func (l *CSVLoader) LoadTable(ctx context.Context, name string) (*Table, error) {
	path := l.Path(name)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTableNotFound, path)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return l.read(ctx, name, f)
}

func (l *CSVLoader) read(ctx context.Context, name string, r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = l.delimiter

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: file has no header row", name)
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	// Cells are held column-major until every row is read; a column's type
	// depends on all of its cells.
	columns := make([][]*string, len(header))
	rows := 0
	for ; ; rows++ {
		if rows%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", rows+1, err)
		}

		for i := range record {
			columns[i] = append(columns[i], l.cell(record[i]))
		}
	}

	typed := make([][]any, len(header))
	for i, cells := range columns {
		if l.infer {
			typed[i] = InferColumn(cells)
		} else {
			typed[i] = rawColumn(cells)
		}
	}

	t := NewTable(name, header)
	values := make([]any, len(header))
	for n := 0; n < rows; n++ {
		for i := range typed {
			values[i] = typed[i][n]
		}
		t.AppendValues(values)
	}
	return t, nil
}

// cell returns nil for null tokens.
func (l *CSVLoader) cell(text string) *string {
	if _, isNull := l.nullTokens[text]; isNull {
		return nil
	}
	return &text
}

func rawColumn(cells []*string) []any {
	out := make([]any, len(cells))
	for i, c := range cells {
		if c != nil {
			out[i] = *c
		}
	}
	return out
}

// InferColumn types a column the way dataframe readers do, once for the
// whole column. Nil cells stay nil. If every other cell is a boolean the
// column is bool; if every one is a base-10 integer it is int64; if every
// one is a number it is float64, with integers promoted. Otherwise every
// cell keeps its text.
func InferColumn(cells []*string) []any {
	allBool, allInt, allNumber := true, true, true
	for _, c := range cells {
		if c == nil {
			continue
		}
		if _, ok := parseBool(*c); !ok {
			allBool = false
		}
		if _, err := strconv.ParseInt(*c, 10, 64); err != nil {
			allInt = false
			if _, err := strconv.ParseFloat(*c, 64); err != nil {
				allNumber = false
			}
		}
		if !allBool && !allNumber {
			break
		}
	}

	out := make([]any, len(cells))
	for i, c := range cells {
		if c == nil {
			continue
		}
		switch {
		case allBool:
			out[i], _ = parseBool(*c)
		case allInt:
			out[i], _ = strconv.ParseInt(*c, 10, 64)
		case allNumber:
			out[i], _ = strconv.ParseFloat(*c, 64)
		default:
			out[i] = *c
		}
	}
	return out
}

func parseBool(s string) (bool, bool) {
	switch s {
	case "True", "true", "TRUE":
		return true, true
	case "False", "false", "FALSE":
		return false, true
	}
	return false, false
}

// Close implements Loader.
func (l *CSVLoader) Close() error {
	return nil
}
