package validation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabular-qa/cdmcheck/pkg/dataset"
	"tabular-qa/cdmcheck/pkg/report"
	"tabular-qa/cdmcheck/pkg/schema"
)

func mustSchema(t *testing.T, src string) *schema.Schema {
	t.Helper()
	s, err := schema.NewParser().ParseBytes([]byte(src), "test.yaml")
	require.NoError(t, err)
	return s
}

func table(name string, columns []string, rows ...[]any) *dataset.Table {
	tbl := dataset.NewTable(name, columns)
	for _, r := range rows {
		tbl.AppendValues(r)
	}
	return tbl
}

func column(name, col string, values ...any) *dataset.Table {
	tbl := dataset.NewTable(name, []string{col})
	for _, v := range values {
		tbl.AppendValues([]any{v})
	}
	return tbl
}

func kinds(recs []report.Record) []report.Kind {
	out := make([]report.Kind, len(recs))
	for i, r := range recs {
		out[i] = r.Kind
	}
	return out
}

func TestRequiredColumns_MissingNofM(t *testing.T) {
	s := mustSchema(t, `
tables:
  - name: person
    required_columns: [a, b, c, d]
`)
	tbl := table("person", []string{"b", "d"}, []any{nil, 1}, []any{2, nil})

	recs := NewChecker(nil, 0, 1).RequiredColumns(s.Tables[0], tbl)

	var missing []string
	for _, r := range recs {
		if r.Kind == report.KindMissingRequiredColumn {
			missing = append(missing, r.Column)
		}
	}
	assert.Equal(t, []string{"a", "c"}, missing)

	// Null checks on present columns still run.
	assert.Equal(t, []report.Kind{
		report.KindMissingRequiredColumn,
		report.KindNullInRequiredColumn,
		report.KindMissingRequiredColumn,
		report.KindNullInRequiredColumn,
	}, kinds(recs))
	assert.Equal(t, 0, recs[1].RowIndex())
	assert.Equal(t, 1, recs[3].RowIndex())
}

func TestDatatypes_MixedColumn(t *testing.T) {
	s := mustSchema(t, `
tables:
  - name: t
    datatypes:
      x: integer
`)
	tbl := column("t", "x", int64(1), "x", nil)

	recs := NewChecker(nil, 0, 1).Datatypes(s.Tables[0], tbl)

	require.Len(t, recs, 1)
	assert.Equal(t, report.KindTypeMismatch, recs[0].Kind)
	assert.Equal(t, 1, recs[0].RowIndex())
	assert.Equal(t, "integer", recs[0].Expected)
	assert.Equal(t, "string", recs[0].Actual)
	assert.Equal(t, "x", recs[0].Value)
}

func TestDatatypes_UnclassifiedNeverMatches(t *testing.T) {
	s := mustSchema(t, `
tables:
  - name: t
    datatypes:
      x: string
`)
	tbl := column("t", "x", []string{"a"})

	recs := NewChecker(nil, 0, 1).Datatypes(s.Tables[0], tbl)

	require.Len(t, recs, 1)
	assert.Equal(t, "[]string", recs[0].Actual)
}

func TestDatatypes_DatetimeStrings(t *testing.T) {
	s := mustSchema(t, `
tables:
  - name: t
    datatypes:
      d: datetime64[ns]
`)
	tbl := column("t", "d", "2024-01-02", "2024/01/02", "yesterday", time.Now())

	recs := NewChecker(nil, 0, 1).Datatypes(s.Tables[0], tbl)

	require.Len(t, recs, 1)
	assert.Equal(t, 2, recs[0].RowIndex())
	assert.Equal(t, "string", recs[0].Actual)
}

func TestCharacterLengths(t *testing.T) {
	s := mustSchema(t, `
tables:
  - name: t
    datatypes:
      s: {type: string, max_length: 5}
      n: {type: integer, max_length: 1}
`)
	tbl := table("t", []string{"s", "n"},
		[]any{"abcdef", int64(123)},
		[]any{"abc", int64(4)},
		[]any{nil, nil},
		[]any{"日本語日本", int64(5)},
	)

	recs := NewChecker(nil, 0, 1).CharacterLengths(s.Tables[0], tbl)

	require.Len(t, recs, 1)
	assert.Equal(t, report.KindCharacterLengthExceeded, recs[0].Kind)
	assert.Equal(t, 0, recs[0].RowIndex())
	assert.Equal(t, 5, recs[0].MaxLength)
	assert.Equal(t, 6, recs[0].ActualLength)
}

func TestPrimaryKey(t *testing.T) {
	s := mustSchema(t, `
tables:
  - name: t
    primary_key: id
`)
	checker := NewChecker(nil, 0, 1)

	t.Run("duplicate", func(t *testing.T) {
		recs := checker.PrimaryKey(s.Tables[0], column("t", "id", int64(1), int64(2), int64(1)))
		require.Len(t, recs, 1)
		assert.Equal(t, report.KindDuplicatePrimaryKey, recs[0].Kind)
		assert.Equal(t, 1, recs[0].ExcessRows)
		assert.Equal(t, []report.DuplicateCount{{Value: int64(1), Count: 2}}, recs[0].Duplicates)
		assert.False(t, recs[0].HasRow())
	})

	t.Run("unique", func(t *testing.T) {
		assert.Empty(t, checker.PrimaryKey(s.Tables[0], column("t", "id", int64(1), int64(2))))
	})

	t.Run("nulls are one distinct value", func(t *testing.T) {
		recs := checker.PrimaryKey(s.Tables[0], column("t", "id", nil, int64(1), nil, nil))
		require.Len(t, recs, 1)
		assert.Equal(t, 2, recs[0].ExcessRows)
		assert.Equal(t, []report.DuplicateCount{{Value: nil, Count: 3}}, recs[0].Duplicates)
	})

	t.Run("integer and integral float collide", func(t *testing.T) {
		recs := checker.PrimaryKey(s.Tables[0], column("t", "id", int64(1), 1.0))
		require.Len(t, recs, 1)
	})

	t.Run("column absent", func(t *testing.T) {
		assert.Empty(t, checker.PrimaryKey(s.Tables[0], column("t", "other", int64(1), int64(1))))
	})
}

func TestForeignKeys(t *testing.T) {
	s := mustSchema(t, `
tables:
  - name: parent
    required_columns: [id]
  - name: child
    required_columns: [pid]
    foreign_keys:
      - column: pid
        references: parent.id
`)
	checker := NewChecker(nil, 0, 1)
	parent := column("parent", "id", int64(1), int64(2), int64(3))

	t.Run("one record per distinct invalid value", func(t *testing.T) {
		child := column("child", "pid", int64(1), int64(4), nil, int64(4), int64(5))
		ds := dataset.New(parent, child)

		recs := checker.ForeignKeys(s.Tables[1], child, ds)
		require.Len(t, recs, 2)
		assert.Equal(t, int64(4), recs[0].Value)
		assert.Equal(t, int64(5), recs[1].Value)
		assert.Equal(t, "parent", recs[0].ReferencedTable)
		assert.Equal(t, "id", recs[0].ReferencedColumn)
	})

	t.Run("mixed person and visit errors", func(t *testing.T) {
		child := column("child", "pid", int64(1), int64(4))
		recs := checker.ForeignKeys(s.Tables[1], child, dataset.New(parent, child))
		require.Len(t, recs, 1)
		assert.Equal(t, int64(4), recs[0].Value)
	})

	t.Run("parent not loaded is skipped", func(t *testing.T) {
		child := column("child", "pid", int64(9))
		assert.Empty(t, checker.ForeignKeys(s.Tables[1], child, dataset.New(child)))
	})

	t.Run("parent column missing makes every value invalid", func(t *testing.T) {
		child := column("child", "pid", int64(1), nil)
		other := column("parent", "code", int64(1))
		recs := checker.ForeignKeys(s.Tables[1], child, dataset.New(other, child))
		require.Len(t, recs, 1)
		assert.Equal(t, int64(1), recs[0].Value)
	})

	t.Run("numeric identity across representations", func(t *testing.T) {
		child := column("child", "pid", 2.0, "3")
		recs := checker.ForeignKeys(s.Tables[1], child, dataset.New(parent, child))
		require.Len(t, recs, 1)
		assert.Equal(t, "3", recs[0].Value)
	})
}

const fullSchema = `
tables:
  - name: person
    required_columns: [person_id, gender]
    datatypes:
      person_id: integer
      name: {type: string, max_length: 3}
    primary_key: person_id
  - name: concept
    required_columns: [concept_id]
  - name: visit
    required_columns: [visit_id, person_id]
    datatypes:
      visit_id: integer
      start: datetime
    primary_key: visit_id
    foreign_keys:
      - column: person_id
        references: person.person_id
      - column: concept_id
        references: concept.concept_id
`

func fullDataset() *dataset.Dataset {
	person := table("person", []string{"person_id", "name"},
		[]any{int64(1), "Ann"},
		[]any{int64(2), "Bobby"},
		[]any{int64(2), nil},
		[]any{"x", "Eve"},
	)
	visit := table("visit", []string{"visit_id", "person_id", "start", "concept_id"},
		[]any{int64(10), int64(1), "2024-01-01", int64(5)},
		[]any{int64(11), int64(7), "soon", nil},
		[]any{int64(11), nil, nil, int64(6)},
	)
	return dataset.New(person, visit)
}

func TestEngine_Validate(t *testing.T) {
	s := mustSchema(t, fullSchema)
	engine := NewEngine()

	rep, err := engine.Validate(context.Background(), s, fullDataset())
	require.NoError(t, err)

	assert.Equal(t, []report.Kind{
		// person
		report.KindMissingRequiredColumn, // gender
		report.KindTypeMismatch,          // person_id "x"
		report.KindCharacterLengthExceeded,
		report.KindDuplicatePrimaryKey,
		// visit
		report.KindNullInRequiredColumn, // person_id row 3
		report.KindTypeMismatch,         // start "soon"
		report.KindDuplicatePrimaryKey,
		report.KindInvalidForeignKeyReference, // person_id 7
	}, kinds(rep.Records()))

	// concept was never loaded: no records and its foreign key is skipped.
	assert.Empty(t, rep.ByTable("concept"))
	assert.Equal(t, []string{"person", "visit"}, rep.Tables())

	state := engine.State()
	assert.Equal(t, PhaseDone, state.Phase)
	assert.Equal(t, 2, state.Completed)
	assert.Equal(t, 2, state.Total)
}

func TestEngine_Idempotent(t *testing.T) {
	s := mustSchema(t, fullSchema)
	ds := fullDataset()
	engine := NewEngine()

	first, err := engine.Validate(context.Background(), s, ds)
	require.NoError(t, err)
	second, err := engine.Validate(context.Background(), s, ds)
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.Equal(t, first.Records(), second.Records())
}

func TestEngine_ParallelMatchesSequential(t *testing.T) {
	s := mustSchema(t, fullSchema)
	ds := fullDataset()

	sequential, err := NewEngine().Validate(context.Background(), s, ds)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		parallel, err := NewEngine(WithParallelism(4), WithChunkSize(1)).Validate(context.Background(), s, ds)
		require.NoError(t, err)
		require.Equal(t, sequential.Records(), parallel.Records())
	}
}

func TestEngine_ChunkedScanMatchesSequential(t *testing.T) {
	s := mustSchema(t, `
tables:
  - name: t
    datatypes:
      v: integer
      s: {type: string, max_length: 2}
`)
	tbl := dataset.NewTable("t", []string{"v", "s"})
	for i := 0; i < 1000; i++ {
		var v any = int64(i)
		if i%7 == 0 {
			v = fmt.Sprintf("bad-%d", i)
		}
		tbl.AppendValues([]any{v, fmt.Sprint(i)})
	}
	ds := dataset.New(tbl)

	sequential, err := NewEngine().Validate(context.Background(), s, ds)
	require.NoError(t, err)
	chunked, err := NewEngine(WithParallelism(3), WithChunkSize(64)).Validate(context.Background(), s, ds)
	require.NoError(t, err)

	assert.Equal(t, 143+900, sequential.Count())
	assert.Equal(t, sequential.Records(), chunked.Records())
}

func TestEngine_CSVMixedColumns(t *testing.T) {
	s := mustSchema(t, `
tables:
  - name: measurement
    required_columns: [measurement_id]
    datatypes:
      measurement_id: integer
      value_as_number: float
      value_source_value: string
    primary_key: measurement_id
`)
	dir := t.TempDir()
	data := "measurement_id,value_as_number,value_source_value\n1,5,ABC\n2,7.25,123\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "measurement.csv"), []byte(data), 0o644))

	ds, failures, err := dataset.Load(context.Background(), dataset.NewCSVLoader(dir), s.TableNames())
	require.NoError(t, err)
	require.Empty(t, failures)

	rep, err := NewEngine().Validate(context.Background(), s, ds)
	require.NoError(t, err)
	assert.Empty(t, rep.Records())
}

func TestEngine_SkipsUnloadedTables(t *testing.T) {
	s := mustSchema(t, fullSchema)

	rep, err := NewEngine().Validate(context.Background(), s, dataset.New())
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Count())
}

func TestEngine_LoadFailuresFirst(t *testing.T) {
	s := mustSchema(t, fullSchema)
	failures := []*dataset.LoadError{
		dataset.NewLoadError("concept", "csv:data", dataset.ErrTableNotFound),
	}

	rep, err := NewEngine().ValidateLoaded(context.Background(), s, fullDataset(), failures)
	require.NoError(t, err)

	recs := rep.Records()
	require.NotEmpty(t, recs)
	assert.Equal(t, report.KindTableLoadFailure, recs[0].Kind)
	assert.Equal(t, "concept", recs[0].Table)
	assert.Equal(t, 9, rep.Count())
}

func TestEngine_Cancelled(t *testing.T) {
	s := mustSchema(t, fullSchema)
	ctx, cancel := context.WithCancel(context.Background())

	var once sync.Once
	engine := NewEngine(WithProgress(func(p Progress) {
		if p.Finished {
			once.Do(cancel)
		}
	}))

	rep, err := engine.Validate(ctx, s, fullDataset())
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, rep)

	// Only the first table completed; its records are all present.
	assert.Equal(t, []string{"person"}, rep.Tables())
	assert.Equal(t, 4, rep.Count())
}

func TestEngine_NilSchema(t *testing.T) {
	_, err := NewEngine().Validate(context.Background(), nil, dataset.New())
	assert.Error(t, err)
}

type recordingObserver struct {
	mu     sync.Mutex
	tables []string
	runs   int
	total  int
}

func (o *recordingObserver) ObserveTable(table string, rows int, records []report.Record, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tables = append(o.tables, table)
}

func (o *recordingObserver) ObserveRun(rep *report.Report, tables int, _ time.Duration, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs++
	o.total = rep.Count()
}

func TestEngine_Observer(t *testing.T) {
	s := mustSchema(t, fullSchema)
	obs := &recordingObserver{}

	rep, err := NewEngine(WithObserver(obs)).Validate(context.Background(), s, fullDataset())
	require.NoError(t, err)

	assert.Equal(t, []string{"person", "visit"}, obs.tables)
	assert.Equal(t, 1, obs.runs)
	assert.Equal(t, rep.Count(), obs.total)
}
