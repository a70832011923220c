package schema

import "fmt"

// Warning is a non-fatal schema finding. The engine tolerates every
// condition reported here; lint exists to surface likely authoring mistakes.
type Warning struct {
	Table    string
	Message  string
	Location Location
}

// String implements fmt.Stringer.
func (w Warning) String() string {
	if w.Location.IsValid() {
		return fmt.Sprintf("%s (%s)", w.Message, w.Location.String())
	}
	return w.Message
}

// Lint inspects a built schema for inconsistencies between its tables.
func Lint(s *Schema) []Warning {
	var warnings []Warning
	add := func(t *Table, loc Location, format string, args ...any) {
		warnings = append(warnings, Warning{
			Table:    t.Name,
			Message:  fmt.Sprintf(format, args...),
			Location: loc,
		})
	}

	for _, t := range s.Tables {
		declared := make(map[string]bool)
		for _, c := range t.RequiredColumns {
			declared[c] = true
		}
		for _, ct := range t.Datatypes {
			declared[ct.Column] = true
		}

		seenRequired := make(map[string]bool)
		for _, c := range t.RequiredColumns {
			if seenRequired[c] {
				add(t, t.Location, "Table %q lists required column %q more than once", t.Name, c)
			}
			seenRequired[c] = true
		}

		if t.HasPrimaryKey() && !declared[t.PrimaryKey] {
			add(t, t.Location, "Table %q: primary key %q is not a required or typed column", t.Name, t.PrimaryKey)
		}

		for _, ct := range t.Datatypes {
			if ct.Type.MaxLength > 0 && ct.Type.Kind != KindString {
				add(t, ct.Location, "Column %s.%s: max_length is ignored for type %s", t.Name, ct.Column, ct.Type.Kind)
			}
		}

		for _, fk := range t.ForeignKeys {
			if !declared[fk.Column] {
				add(t, fk.Location, "Table %q: foreign key column %q is not a required or typed column", t.Name, fk.Column)
			}

			parent, ok := s.Table(fk.ReferencesTable)
			if !ok {
				add(t, fk.Location, "Table %q: foreign key %q references undeclared table %q",
					t.Name, fk.Column, fk.ReferencesTable)
				continue
			}

			parentDeclared := false
			for _, c := range parent.DeclaredColumns() {
				if c == fk.ReferencesColumn {
					parentDeclared = true
					break
				}
			}
			if !parentDeclared {
				add(t, fk.Location, "Table %q: foreign key %q references column %q not declared on table %q",
					t.Name, fk.Column, fk.ReferencesColumn, parent.Name)
			}
		}
	}

	return warnings
}
