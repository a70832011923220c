package report

import (
	"fmt"
	"strings"
)

// Kind categorizes a validation finding.
type Kind string

const (
	KindMissingRequiredColumn      Kind = "MissingRequiredColumn"      // Declared required column absent from table
	KindNullInRequiredColumn       Kind = "NullInRequiredColumn"       // Null value in a present required column
	KindTypeMismatch               Kind = "TypeMismatch"               // Normalized value tag differs from declared kind
	KindCharacterLengthExceeded    Kind = "CharacterLengthExceeded"    // String longer than declared max_length
	KindDuplicatePrimaryKey        Kind = "DuplicatePrimaryKey"        // Row count differs from distinct key count
	KindInvalidForeignKeyReference Kind = "InvalidForeignKeyReference" // Local value absent from parent column
	KindTableLoadFailure           Kind = "TableLoadFailure"           // Declared table could not be loaded
)

// Kinds lists every record kind in taxonomy order.
var Kinds = []Kind{
	KindMissingRequiredColumn,
	KindNullInRequiredColumn,
	KindTypeMismatch,
	KindCharacterLengthExceeded,
	KindDuplicatePrimaryKey,
	KindInvalidForeignKeyReference,
	KindTableLoadFailure,
}

// IsValid returns true if k is part of the taxonomy.
func (k Kind) IsValid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// DuplicateCount is the number of rows sharing one primary-key value.
type DuplicateCount struct {
	Value any `json:"value"`
	Count int `json:"count"`
}

// Record is a single structured finding. Optional fields are left at their
// zero value (or nil) when they do not apply to the record's kind.
type Record struct {
	Kind    Kind   `json:"kind"`
	Table   string `json:"table"`
	Column  string `json:"column,omitempty"`
	Row     *int   `json:"row,omitempty"` // 0-based data row index
	Message string `json:"message"`

	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`

	MaxLength    int `json:"max_length,omitempty"`
	ActualLength int `json:"actual_length,omitempty"`

	Value            any    `json:"value,omitempty"`
	ReferencedTable  string `json:"referenced_table,omitempty"`
	ReferencedColumn string `json:"referenced_column,omitempty"`

	ExcessRows int              `json:"excess_rows,omitempty"`
	Duplicates []DuplicateCount `json:"duplicates,omitempty"`
}

// HasRow reports whether the record is localized to a row.
func (r Record) HasRow() bool {
	return r.Row != nil
}

// RowIndex returns the 0-based row index, or -1 if the record has none.
func (r Record) RowIndex() int {
	if r.Row == nil {
		return -1
	}
	return *r.Row
}

// Location renders table[.column][ row N] with a 1-based row number.
func (r Record) Location() string {
	var sb strings.Builder
	sb.WriteString(r.Table)
	if r.Column != "" {
		sb.WriteString(".")
		sb.WriteString(r.Column)
	}
	if r.Row != nil {
		sb.WriteString(fmt.Sprintf(" row %d", *r.Row+1))
	}
	return sb.String()
}

// String implements fmt.Stringer.
func (r Record) String() string {
	return fmt.Sprintf("[%s] %s", r.Kind, r.Message)
}

// Row returns a pointer suitable for Record.Row.
func Row(i int) *int {
	return &i
}

// clone returns a copy that shares no mutable state with r.
func (r Record) clone() Record {
	c := r
	if r.Row != nil {
		c.Row = Row(*r.Row)
	}
	if r.Duplicates != nil {
		c.Duplicates = append([]DuplicateCount(nil), r.Duplicates...)
	}
	return c
}
