package schema

import (
	"fmt"
	"strings"
)

// Kind is a declared column type.
type Kind string

const (
	KindInteger  Kind = "integer"
	KindFloat    Kind = "float"
	KindString   Kind = "string"
	KindBool     Kind = "bool"
	KindDatetime Kind = "datetime"
)

// Kinds lists the declarable kinds.
var Kinds = []Kind{KindInteger, KindFloat, KindString, KindBool, KindDatetime}

// IsValid returns true if k is one of the declarable kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindInteger, KindFloat, KindString, KindBool, KindDatetime:
		return true
	}
	return false
}

// kindAliases maps accepted type keywords to their canonical kind.
// pandas dtype names are accepted so that schemas written for the
// dataframe-based tooling keep working.
var kindAliases = map[string]Kind{
	"integer":        KindInteger,
	"int":            KindInteger,
	"int32":          KindInteger,
	"int64":          KindInteger,
	"bigint":         KindInteger,
	"smallint":       KindInteger,
	"float":          KindFloat,
	"float32":        KindFloat,
	"float64":        KindFloat,
	"double":         KindFloat,
	"real":           KindFloat,
	"numeric":        KindFloat,
	"decimal":        KindFloat,
	"string":         KindString,
	"str":            KindString,
	"text":           KindString,
	"varchar":        KindString,
	"object":         KindString,
	"bool":           KindBool,
	"boolean":        KindBool,
	"datetime":       KindDatetime,
	"datetime64[ns]": KindDatetime,
	"datetime64":     KindDatetime,
	"timestamp":      KindDatetime,
	"date":           KindDatetime,
}

// ParseKind resolves a type keyword (case-insensitive) to its canonical kind.
func ParseKind(keyword string) (Kind, bool) {
	k, ok := kindAliases[strings.ToLower(strings.TrimSpace(keyword))]
	return k, ok
}

// Keywords returns every accepted type keyword.
func Keywords() []string {
	keys := make([]string, 0, len(kindAliases))
	for k := range kindAliases {
		keys = append(keys, k)
	}
	return keys
}

// TypeSpec is the declared type of a column.
type TypeSpec struct {
	Kind Kind

	// MaxLength is the maximum character count; 0 means unbounded.
	// It only applies to KindString.
	MaxLength int
}

// HasMaxLength reports whether a length limit applies.
func (t TypeSpec) HasMaxLength() bool {
	return t.Kind == KindString && t.MaxLength > 0
}

// String implements fmt.Stringer.
func (t TypeSpec) String() string {
	if t.MaxLength > 0 {
		return fmt.Sprintf("%s(%d)", t.Kind, t.MaxLength)
	}
	return string(t.Kind)
}

// ColumnType pairs a column with its declared type.
type ColumnType struct {
	Column   string
	Type     TypeSpec
	Location Location
}

// ForeignKey declares that Column references ReferencesTable.ReferencesColumn.
type ForeignKey struct {
	Column           string
	ReferencesTable  string
	ReferencesColumn string
	Location         Location
}

// Reference returns the "table.column" form of the referenced column.
func (fk ForeignKey) Reference() string {
	return fk.ReferencesTable + "." + fk.ReferencesColumn
}

// Table is the declaration of one table. It is immutable once built.
type Table struct {
	Name            string
	RequiredColumns []string

	// Datatypes keeps declaration order so that checks iterate deterministically.
	Datatypes []ColumnType

	PrimaryKey  string
	ForeignKeys []ForeignKey
	Location    Location
}

// Datatype returns the declared type of column.
func (t *Table) Datatype(column string) (TypeSpec, bool) {
	for _, ct := range t.Datatypes {
		if ct.Column == column {
			return ct.Type, true
		}
	}
	return TypeSpec{}, false
}

// HasPrimaryKey reports whether the table declares a primary key.
func (t *Table) HasPrimaryKey() bool {
	return t.PrimaryKey != ""
}

// DeclaredColumns returns every column the table mentions, in first-mention
// order: required columns, typed columns, the primary key, foreign keys.
func (t *Table) DeclaredColumns() []string {
	seen := make(map[string]bool)
	var cols []string
	add := func(c string) {
		if c != "" && !seen[c] {
			seen[c] = true
			cols = append(cols, c)
		}
	}

	for _, c := range t.RequiredColumns {
		add(c)
	}
	for _, ct := range t.Datatypes {
		add(ct.Column)
	}
	add(t.PrimaryKey)
	for _, fk := range t.ForeignKeys {
		add(fk.Column)
	}
	return cols
}

// Schema is an ordered list of table declarations.
type Schema struct {
	Tables []*Table

	// Source is the file the schema was read from, if any.
	Source string
}

// Table returns the table declaration with the given name.
func (s *Schema) Table(name string) (*Table, bool) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// TableNames returns the table names in schema order.
func (s *Schema) TableNames() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}

// Location is a position in a schema file.
type Location struct {
	File   string
	Line   int
	Column int
}

// IsValid returns true if the location carries a line number.
func (l Location) IsValid() bool {
	return l.Line > 0
}

// String implements fmt.Stringer.
func (l Location) String() string {
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}
