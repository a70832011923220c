package schema

import (
	"errors"
	"strings"
	"testing"
)

func TestParser_Parse_Valid(t *testing.T) {
	s, err := NewParser().Parse("testdata/omop.yaml")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if got := s.TableNames(); len(got) != 2 || got[0] != "person" || got[1] != "condition_occurrence" {
		t.Fatalf("TableNames() = %v, want [person condition_occurrence]", got)
	}

	person, ok := s.Table("person")
	if !ok {
		t.Fatal("Table(person) not found")
	}
	if person.PrimaryKey != "person_id" {
		t.Errorf("PrimaryKey = %q, want %q", person.PrimaryKey, "person_id")
	}
	if len(person.RequiredColumns) != 3 {
		t.Errorf("len(RequiredColumns) = %d, want 3", len(person.RequiredColumns))
	}

	// Declaration order is preserved.
	wantCols := []string{"person_id", "gender_concept_id", "year_of_birth", "birth_datetime", "person_source_value"}
	if len(person.Datatypes) != len(wantCols) {
		t.Fatalf("len(Datatypes) = %d, want %d", len(person.Datatypes), len(wantCols))
	}
	for i, want := range wantCols {
		if person.Datatypes[i].Column != want {
			t.Errorf("Datatypes[%d].Column = %q, want %q", i, person.Datatypes[i].Column, want)
		}
	}

	tests := []struct {
		column string
		kind   Kind
		maxLen int
	}{
		{"person_id", KindInteger, 0},
		{"gender_concept_id", KindInteger, 0},
		{"birth_datetime", KindDatetime, 0},
		{"person_source_value", KindString, 50},
	}
	for _, tt := range tests {
		spec, ok := person.Datatype(tt.column)
		if !ok {
			t.Errorf("Datatype(%q) not found", tt.column)
			continue
		}
		if spec.Kind != tt.kind || spec.MaxLength != tt.maxLen {
			t.Errorf("Datatype(%q) = %v, want %s max %d", tt.column, spec, tt.kind, tt.maxLen)
		}
	}

	cond, _ := s.Table("condition_occurrence")
	if len(cond.ForeignKeys) != 1 {
		t.Fatalf("len(ForeignKeys) = %d, want 1", len(cond.ForeignKeys))
	}
	fk := cond.ForeignKeys[0]
	if fk.Column != "person_id" || fk.Reference() != "person.person_id" {
		t.Errorf("ForeignKey = %+v, want person_id -> person.person_id", fk)
	}
	if !fk.Location.IsValid() {
		t.Error("ForeignKey location should carry a line number")
	}
}

func TestParser_Parse_FileNotFound(t *testing.T) {
	_, err := NewParser().Parse("testdata/does-not-exist.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}

	var schemaErr *Error
	if !errors.As(err, &schemaErr) {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if schemaErr.Type != ErrorTypeIO {
		t.Errorf("Type = %q, want %q", schemaErr.Type, ErrorTypeIO)
	}
	if !IsAcquisitionError(err) {
		t.Error("IsAcquisitionError() = false, want true")
	}
}

func TestParser_Parse_SyntaxError(t *testing.T) {
	_, err := NewParser().Parse("testdata/syntax.yaml")
	if err == nil {
		t.Fatal("expected syntax error")
	}

	var schemaErr *Error
	if !errors.As(err, &schemaErr) {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if schemaErr.Type != ErrorTypeSyntax {
		t.Errorf("Type = %q, want %q", schemaErr.Type, ErrorTypeSyntax)
	}
}

func TestParser_Parse_CollectsAllErrors(t *testing.T) {
	_, err := NewParser().Parse("testdata/invalid.yaml")
	if err == nil {
		t.Fatal("expected structural errors")
	}

	var list *ErrorList
	if !errors.As(err, &list) {
		t.Fatalf("error type = %T, want *ErrorList", err)
	}
	if list.Count() != 5 {
		t.Fatalf("Count() = %d, want 5:\n%v", list.Count(), err)
	}

	wantFragments := []string{
		`unknown type "integr"`,
		"max_length must be positive",
		"missing required field 'name'",
		"malformed reference",
		`Duplicate table name "person"`,
	}
	for i, frag := range wantFragments {
		if !strings.Contains(list.Errors[i].Message, frag) {
			t.Errorf("Errors[%d] = %q, want it to contain %q", i, list.Errors[i].Message, frag)
		}
	}

	if got := list.Errors[0].Suggestion; got != "Did you mean 'integer'?" {
		t.Errorf("Suggestion = %q, want %q", got, "Did you mean 'integer'?")
	}
	if list.Errors[0].Context == "" {
		t.Error("expected file context on located error")
	}
}

func TestParser_ParseBytes(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{
			name: "scalar type keywords",
			yaml: "tables:\n  - name: t\n    datatypes:\n      a: int\n      b: boolean\n      c: float64\n",
		},
		{
			name:    "empty document",
			yaml:    "",
			wantErr: true,
		},
		{
			name:    "no tables",
			yaml:    "tables: []\n",
			wantErr: true,
		},
		{
			name:    "datatypes not a mapping",
			yaml:    "tables:\n  - name: t\n    datatypes: [a, b]\n",
			wantErr: true,
		},
		{
			name:    "type object without type",
			yaml:    "tables:\n  - name: t\n    datatypes:\n      a: {max_length: 3}\n",
			wantErr: true,
		},
		{
			name:    "foreign key without column",
			yaml:    "tables:\n  - name: t\n    foreign_keys:\n      - references: u.id\n",
			wantErr: true,
		},
		{
			name: "table without optional sections",
			yaml: "tables:\n  - name: t\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewParser().ParseBytes([]byte(tt.yaml), "inline.yaml")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !IsAcquisitionError(err) {
					t.Errorf("IsAcquisitionError(%v) = false", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseBytes() failed: %v", err)
			}
			if len(s.Tables) != 1 {
				t.Errorf("len(Tables) = %d, want 1", len(s.Tables))
			}
		})
	}
}

func TestParser_WithMaxFileSize(t *testing.T) {
	_, err := NewParser().WithMaxFileSize(10).Parse("testdata/omop.yaml")
	if err == nil {
		t.Fatal("expected size limit error")
	}
	if !strings.Contains(err.Error(), "exceeds maximum") {
		t.Errorf("error = %v, want size limit message", err)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		keyword string
		want    Kind
		ok      bool
	}{
		{"integer", KindInteger, true},
		{"INT64", KindInteger, true},
		{" float ", KindFloat, true},
		{"object", KindString, true},
		{"datetime64[ns]", KindDatetime, true},
		{"boolean", KindBool, true},
		{"uuid", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseKind(tt.keyword)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseKind(%q) = (%q, %v), want (%q, %v)", tt.keyword, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSuggest(t *testing.T) {
	if got := Suggest("strng", Keywords()); got != "Did you mean 'string'?" {
		t.Errorf("Suggest(strng) = %q", got)
	}
	if got := Suggest("geometrycollection", Keywords()); !strings.HasPrefix(got, "Valid values: ") {
		t.Errorf("Suggest(geometrycollection) = %q, want list of valid values", got)
	}
}
