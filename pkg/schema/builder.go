package schema

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// builder transforms the intermediate YAML structure into a Schema,
// collecting every structural error instead of stopping at the first.
type builder struct {
	file   string
	errors *ErrorList
}

func newBuilder(file string) *builder {
	return &builder{
		file:   file,
		errors: NewErrorList(),
	}
}

func (b *builder) buildSchema(ys *yamlSchema) (*Schema, error) {
	s := &Schema{Source: b.file}

	if len(ys.Tables) == 0 {
		b.errors.AddErrorWithSuggestion(
			"Schema must declare at least one table",
			nodeLocation(ys.node, b.file),
			"Add a 'tables' list with at least one entry",
		)
		return nil, b.errors
	}

	seen := make(map[string]Location)
	for i := range ys.Tables {
		node := &ys.Tables[i]
		t := b.buildTable(node, i)
		if t == nil {
			continue
		}

		if prev, dup := seen[t.Name]; dup {
			b.errors.AddError(
				fmt.Sprintf("Duplicate table name %q (first declared at line %d)", t.Name, prev.Line),
				t.Location,
			)
			continue
		}
		seen[t.Name] = t.Location
		s.Tables = append(s.Tables, t)
	}

	if b.errors.HasErrors() {
		return nil, b.errors
	}
	return s, nil
}

func (b *builder) buildTable(node *yaml.Node, index int) *Table {
	loc := nodeLocation(node, b.file)

	var yt yamlTable
	if err := node.Decode(&yt); err != nil {
		b.errors.AddError(fmt.Sprintf("Invalid table entry #%d: %v", index+1, err), loc)
		return nil
	}

	name := strings.TrimSpace(yt.Name)
	if name == "" {
		b.errors.AddErrorWithSuggestion(
			fmt.Sprintf("Table entry #%d is missing required field 'name'", index+1),
			loc,
			"Add 'name: <table>' to the table entry",
		)
		return nil
	}

	t := &Table{
		Name:            name,
		RequiredColumns: yt.RequiredColumns,
		PrimaryKey:      strings.TrimSpace(yt.PrimaryKey),
		Location:        loc,
	}

	for _, c := range yt.RequiredColumns {
		if strings.TrimSpace(c) == "" {
			b.errors.AddError(fmt.Sprintf("Table %q lists an empty required column name", name), loc)
		}
	}

	t.Datatypes = b.buildDatatypes(name, &yt.Datatypes)
	t.ForeignKeys = b.buildForeignKeys(name, yt.ForeignKeys)

	return t
}

// buildDatatypes walks the datatypes mapping in document order.
func (b *builder) buildDatatypes(table string, node *yaml.Node) []ColumnType {
	if node.Kind == 0 {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		b.errors.AddError(
			fmt.Sprintf("Table %q: 'datatypes' must be a mapping of column to type", table),
			nodeLocation(node, b.file),
		)
		return nil
	}

	var cols []ColumnType
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		column := keyNode.Value
		loc := nodeLocation(keyNode, b.file)

		spec, ok := b.buildTypeSpec(table, column, valNode)
		if !ok {
			continue
		}
		cols = append(cols, ColumnType{Column: column, Type: spec, Location: loc})
	}
	return cols
}

// buildTypeSpec accepts either a bare keyword or {type, max_length}.
func (b *builder) buildTypeSpec(table, column string, node *yaml.Node) (TypeSpec, bool) {
	loc := nodeLocation(node, b.file)

	var keyword string
	var maxLength *int

	switch node.Kind {
	case yaml.ScalarNode:
		keyword = node.Value
	case yaml.MappingNode:
		var ys yamlTypeSpec
		if err := node.Decode(&ys); err != nil {
			b.errors.AddError(fmt.Sprintf("Column %s.%s: invalid type object: %v", table, column, err), loc)
			return TypeSpec{}, false
		}
		if ys.Type == "" {
			b.errors.AddErrorWithSuggestion(
				fmt.Sprintf("Column %s.%s: type object is missing field 'type'", table, column),
				loc,
				"Example: {type: string, max_length: 50}",
			)
			return TypeSpec{}, false
		}
		keyword = ys.Type
		maxLength = ys.MaxLength
	default:
		b.errors.AddError(
			fmt.Sprintf("Column %s.%s: type must be a keyword or {type, max_length}", table, column),
			loc,
		)
		return TypeSpec{}, false
	}

	kind, ok := ParseKind(keyword)
	if !ok {
		b.errors.AddErrorWithSuggestion(
			fmt.Sprintf("Column %s.%s: unknown type %q", table, column, keyword),
			loc,
			Suggest(keyword, Keywords()),
		)
		return TypeSpec{}, false
	}

	spec := TypeSpec{Kind: kind}
	if maxLength != nil {
		if *maxLength <= 0 {
			b.errors.AddError(
				fmt.Sprintf("Column %s.%s: max_length must be positive, got %d", table, column, *maxLength),
				loc,
			)
			return TypeSpec{}, false
		}
		spec.MaxLength = *maxLength
	}
	return spec, true
}

func (b *builder) buildForeignKeys(table string, nodes []yaml.Node) []ForeignKey {
	var fks []ForeignKey
	for i := range nodes {
		node := &nodes[i]
		loc := nodeLocation(node, b.file)

		var yfk yamlForeignKey
		if err := node.Decode(&yfk); err != nil {
			b.errors.AddError(fmt.Sprintf("Table %q: invalid foreign key entry #%d: %v", table, i+1, err), loc)
			continue
		}

		if strings.TrimSpace(yfk.Column) == "" {
			b.errors.AddErrorWithSuggestion(
				fmt.Sprintf("Table %q: foreign key #%d is missing field 'column'", table, i+1),
				loc,
				"Example: {column: person_id, references: person.person_id}",
			)
			continue
		}

		refTable, refColumn, ok := splitReference(yfk.References)
		if !ok {
			b.errors.AddErrorWithSuggestion(
				fmt.Sprintf("Table %q: foreign key %q has malformed reference %q", table, yfk.Column, yfk.References),
				loc,
				"References must have the form '<table>.<column>'",
			)
			continue
		}

		fks = append(fks, ForeignKey{
			Column:           strings.TrimSpace(yfk.Column),
			ReferencesTable:  refTable,
			ReferencesColumn: refColumn,
			Location:         loc,
		})
	}
	return fks
}

// splitReference splits "table.column" into its two non-empty parts.
func splitReference(ref string) (string, string, bool) {
	parts := strings.Split(strings.TrimSpace(ref), ".")
	if len(parts) != 2 {
		return "", "", false
	}
	table, column := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if table == "" || column == "" {
		return "", "", false
	}
	return table, column, true
}
