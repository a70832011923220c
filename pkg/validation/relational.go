package validation

import (
	"fmt"

	"tabular-qa/cdmcheck/pkg/dataset"
	"tabular-qa/cdmcheck/pkg/report"
	"tabular-qa/cdmcheck/pkg/schema"
)

// ForeignKeys checks each foreign key of ts whose local column is present and
// whose referenced table was loaded. One record is emitted per distinct
// invalid value, in first-occurrence order. Null values are never invalid.
// If the referenced column is missing from the parent, every non-null value
// is invalid.
func (c *Checker) ForeignKeys(ts *schema.Table, t *dataset.Table, ds *dataset.Dataset) []report.Record {
	var recs []report.Record
	for _, fk := range ts.ForeignKeys {
		if !t.HasColumn(fk.Column) {
			continue
		}
		parent, ok := ds.Table(fk.ReferencesTable)
		if !ok {
			continue
		}

		allowed := make(map[string]struct{}, parent.Len())
		if parent.HasColumn(fk.ReferencesColumn) {
			for _, row := range parent.Rows {
				allowed[valueKey(row[fk.ReferencesColumn])] = struct{}{}
			}
		}

		reported := make(map[string]struct{})
		for _, row := range t.Rows {
			v := row[fk.Column]
			if IsNull(v) {
				continue
			}
			k := valueKey(v)
			if _, ok := allowed[k]; ok {
				continue
			}
			if _, done := reported[k]; done {
				continue
			}
			reported[k] = struct{}{}

			recs = append(recs, report.Record{
				Kind:             report.KindInvalidForeignKeyReference,
				Table:            ts.Name,
				Column:           fk.Column,
				Value:            v,
				ReferencedTable:  fk.ReferencesTable,
				ReferencedColumn: fk.ReferencesColumn,
				Message: fmt.Sprintf("Value %v in column '%s' of table '%s' does not exist in %s",
					v, fk.Column, ts.Name, fk.Reference()),
			})
		}
	}
	return recs
}
