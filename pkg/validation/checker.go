package validation

import (
	"tabular-qa/cdmcheck/pkg/dataset"
	"tabular-qa/cdmcheck/pkg/report"
	"tabular-qa/cdmcheck/pkg/schema"
)

// DefaultChunkSize is the number of rows scanned per chunk by the datatype
// and length checks.
const DefaultChunkSize = 50000

// Checker runs the individual checks against one table. It holds no
// per-run state and is safe for concurrent use.
type Checker struct {
	normalizer *Normalizer
	chunkSize  int
	workers    int
}

// NewChecker creates a checker. workers bounds the number of chunks scanned
// concurrently within one column; 1 scans sequentially.
func NewChecker(normalizer *Normalizer, chunkSize, workers int) *Checker {
	if normalizer == nil {
		normalizer = NewNormalizer()
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if workers <= 0 {
		workers = 1
	}
	return &Checker{
		normalizer: normalizer,
		chunkSize:  chunkSize,
		workers:    workers,
	}
}

// Normalizer returns the normalizer used for type classification.
func (c *Checker) Normalizer() *Normalizer {
	return c.normalizer
}

// Table runs every check against one loaded table in the fixed order:
// required columns, datatypes, character lengths, primary key, foreign keys.
func (c *Checker) Table(ts *schema.Table, t *dataset.Table, ds *dataset.Dataset) *report.Builder {
	b := report.NewBuilder()
	for _, recs := range [][]report.Record{
		c.RequiredColumns(ts, t),
		c.Datatypes(ts, t),
		c.CharacterLengths(ts, t),
		c.PrimaryKey(ts, t),
		c.ForeignKeys(ts, t, ds),
	} {
		for _, r := range recs {
			b.Add(r)
		}
	}
	return b
}
