package validation

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"tabular-qa/cdmcheck/pkg/dataset"
	"tabular-qa/cdmcheck/pkg/report"
	"tabular-qa/cdmcheck/pkg/schema"
)

// RequiredColumns checks that every required column is present and holds no
// nulls. A missing column never stops the remaining columns from being checked.
func (c *Checker) RequiredColumns(ts *schema.Table, t *dataset.Table) []report.Record {
	var recs []report.Record
	for _, col := range ts.RequiredColumns {
		if !t.HasColumn(col) {
			recs = append(recs, report.Record{
				Kind:    report.KindMissingRequiredColumn,
				Table:   ts.Name,
				Column:  col,
				Message: fmt.Sprintf("Required column '%s' is missing from table '%s'", col, ts.Name),
			})
			continue
		}

		for i, row := range t.Rows {
			if IsNull(row[col]) {
				recs = append(recs, report.Record{
					Kind:    report.KindNullInRequiredColumn,
					Table:   ts.Name,
					Column:  col,
					Row:     report.Row(i),
					Message: fmt.Sprintf("Row %d: required column '%s' of table '%s' has no value", i+1, col, ts.Name),
				})
			}
		}
	}
	return recs
}

// Datatypes compares each non-null value of a typed column against its
// declared kind and reports one record per offending row.
func (c *Checker) Datatypes(ts *schema.Table, t *dataset.Table) []report.Record {
	var recs []report.Record
	for _, ct := range ts.Datatypes {
		if !t.HasColumn(ct.Column) {
			continue
		}
		col, kind := ct.Column, ct.Type.Kind
		recs = append(recs, c.scan(t.Len(), func(lo, hi int) []report.Record {
			var out []report.Record
			for i := lo; i < hi; i++ {
				v := t.Rows[i][col]
				tag := c.normalizer.Classify(v, kind)
				if tag == TagNull || tag.Matches(kind) {
					continue
				}
				out = append(out, report.Record{
					Kind:     report.KindTypeMismatch,
					Table:    ts.Name,
					Column:   col,
					Row:      report.Row(i),
					Expected: string(kind),
					Actual:   string(tag),
					Value:    v,
					Message: fmt.Sprintf("Row %d, column '%s' of table '%s': expected %s, got %s",
						i+1, col, ts.Name, kind, tag),
				})
			}
			return out
		})...)
	}
	return recs
}

// CharacterLengths checks string columns that declare max_length.
// Length counts characters after NFC normalisation, not bytes.
func (c *Checker) CharacterLengths(ts *schema.Table, t *dataset.Table) []report.Record {
	var recs []report.Record
	for _, ct := range ts.Datatypes {
		if !ct.Type.HasMaxLength() || !t.HasColumn(ct.Column) {
			continue
		}
		col, maxLen := ct.Column, ct.Type.MaxLength
		recs = append(recs, c.scan(t.Len(), func(lo, hi int) []report.Record {
			var out []report.Record
			for i := lo; i < hi; i++ {
				v := t.Rows[i][col]
				if IsNull(v) {
					continue
				}
				n := CharacterLength(v)
				if n <= maxLen {
					continue
				}
				out = append(out, report.Record{
					Kind:         report.KindCharacterLengthExceeded,
					Table:        ts.Name,
					Column:       col,
					Row:          report.Row(i),
					MaxLength:    maxLen,
					ActualLength: n,
					Message: fmt.Sprintf("Row %d, column '%s' of table '%s': length %d exceeds max_length %d",
						i+1, col, ts.Name, n, maxLen),
				})
			}
			return out
		})...)
	}
	return recs
}

// CharacterLength returns the number of characters in v. Non-string values
// are formatted with fmt.Sprint first.
func CharacterLength(v any) int {
	var s string
	switch val := v.(type) {
	case string:
		s = val
	case []byte:
		s = string(val)
	default:
		s = fmt.Sprint(v)
	}
	return utf8.RuneCountInString(norm.NFC.String(s))
}

// PrimaryKey reports a single aggregate record when the primary-key column
// holds fewer distinct values than the table has rows. Null counts as one
// distinct value.
func (c *Checker) PrimaryKey(ts *schema.Table, t *dataset.Table) []report.Record {
	if !ts.HasPrimaryKey() || !t.HasColumn(ts.PrimaryKey) {
		return nil
	}

	distinct := countDistinct(t.Values(ts.PrimaryKey))
	excess := t.Len() - len(distinct)
	if excess == 0 {
		return nil
	}

	var dups []report.DuplicateCount
	for _, d := range distinct {
		if d.count > 1 {
			dups = append(dups, report.DuplicateCount{Value: d.value, Count: d.count})
		}
	}

	return []report.Record{{
		Kind:       report.KindDuplicatePrimaryKey,
		Table:      ts.Name,
		Column:     ts.PrimaryKey,
		ExcessRows: excess,
		Duplicates: dups,
		Message: fmt.Sprintf("Primary key '%s' of table '%s' has %d duplicate row(s) across %d value(s)",
			ts.PrimaryKey, ts.Name, excess, len(dups)),
	}}
}

// scan splits [0, n) into chunks and runs fn over them, concurrently when
// parallelism allows. Results are concatenated in chunk order so the output
// matches a sequential scan.
func (c *Checker) scan(n int, fn func(lo, hi int) []report.Record) []report.Record {
	if n == 0 {
		return nil
	}
	if c.chunkSize <= 0 || n <= c.chunkSize || c.workers <= 1 {
		return fn(0, n)
	}

	chunks := (n + c.chunkSize - 1) / c.chunkSize
	results := make([][]report.Record, chunks)

	var g errgroup.Group
	g.SetLimit(c.workers)
	for i := 0; i < chunks; i++ {
		lo := i * c.chunkSize
		hi := min(lo+c.chunkSize, n)
		g.Go(func() error {
			results[i] = fn(lo, hi)
			return nil
		})
	}
	_ = g.Wait() // chunk functions never fail

	var out []report.Record
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}
