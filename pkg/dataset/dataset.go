package dataset

import "sort"

// Row maps column name to value. A column that is known to the table but
// has no entry in the row reads as nil.
type Row map[string]any

// Table is a loaded table: ordered rows plus the ordered set of known column
// names. Tables are read-only once handed to the validation engine.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row

	columnSet map[string]struct{}
}

// NewTable creates an empty table with the given columns.
func NewTable(name string, columns []string) *Table {
	t := &Table{
		Name:      name,
		Columns:   append([]string(nil), columns...),
		columnSet: make(map[string]struct{}, len(columns)),
	}
	for _, c := range columns {
		t.columnSet[c] = struct{}{}
	}
	return t
}

// AppendValues adds a row from values positioned like Columns. Extra values
// are dropped; missing trailing values read as nil.
func (t *Table) AppendValues(values []any) {
	row := make(Row, len(t.Columns))
	for i, c := range t.Columns {
		if i < len(values) {
			row[c] = values[i]
		} else {
			row[c] = nil
		}
	}
	t.Rows = append(t.Rows, row)
}

// AppendRow adds a row. Columns not previously known are added to the table.
func (t *Table) AppendRow(row Row) {
	if t.columnSet == nil {
		t.columnSet = make(map[string]struct{}, len(t.Columns))
		for _, c := range t.Columns {
			t.columnSet[c] = struct{}{}
		}
	}
	keys := make([]string, 0, len(row))
	for c := range row {
		if _, ok := t.columnSet[c]; !ok {
			keys = append(keys, c)
		}
	}
	sort.Strings(keys)
	for _, c := range keys {
		t.columnSet[c] = struct{}{}
		t.Columns = append(t.Columns, c)
	}
	t.Rows = append(t.Rows, row)
}

// HasColumn reports whether column is known to the table.
func (t *Table) HasColumn(column string) bool {
	if t.columnSet == nil {
		for _, c := range t.Columns {
			if c == column {
				return true
			}
		}
		return false
	}
	_, ok := t.columnSet[column]
	return ok
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Value returns the value of column in row i.
func (t *Table) Value(i int, column string) any {
	return t.Rows[i][column]
}

// Values returns the column's values in row order.
func (t *Table) Values(column string) []any {
	out := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[column]
	}
	return out
}

// Dataset maps table name to loaded table.
type Dataset struct {
	tables map[string]*Table
	order  []string
}

// New creates a dataset holding tables, keyed by their names.
// A later table with the same name replaces an earlier one.
func New(tables ...*Table) *Dataset {
	d := &Dataset{tables: make(map[string]*Table)}
	for _, t := range tables {
		d.Add(t)
	}
	return d
}

// Add stores t under t.Name.
func (d *Dataset) Add(t *Table) {
	if _, exists := d.tables[t.Name]; !exists {
		d.order = append(d.order, t.Name)
	}
	d.tables[t.Name] = t
}

// Table returns the loaded table with the given name.
func (d *Dataset) Table(name string) (*Table, bool) {
	if d == nil {
		return nil, false
	}
	t, ok := d.tables[name]
	return t, ok
}

// Has reports whether a table with the given name was loaded.
func (d *Dataset) Has(name string) bool {
	_, ok := d.Table(name)
	return ok
}

// Names returns the loaded table names in insertion order.
func (d *Dataset) Names() []string {
	if d == nil {
		return nil
	}
	return append([]string(nil), d.order...)
}

// Len returns the number of loaded tables.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.tables)
}

// RowCount returns the total number of rows across all tables.
func (d *Dataset) RowCount() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, t := range d.tables {
		n += t.Len()
	}
	return n
}
