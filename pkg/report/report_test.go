package report

import (
	"sync"
	"testing"
)

func TestBuilder_PreservesInsertionOrder(t *testing.T) {
	b := NewBuilder()
	b.AddRecord(KindMissingRequiredColumn, "person", "person_id", "first")
	b.Add(Record{Kind: KindTypeMismatch, Table: "person", Column: "year_of_birth", Row: Row(2), Message: "second"})
	b.AddRecord(KindDuplicatePrimaryKey, "person", "person_id", "third")

	rep := b.Build()
	if rep.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", rep.Count())
	}

	want := []string{"first", "second", "third"}
	for i, rec := range rep.Records() {
		if rec.Message != want[i] {
			t.Errorf("Records()[%d].Message = %q, want %q", i, rec.Message, want[i])
		}
	}
}

func TestBuilder_Merge(t *testing.T) {
	a := NewBuilder()
	a.AddRecord(KindMissingRequiredColumn, "person", "a", "a1")

	b := NewBuilder()
	b.AddRecord(KindMissingRequiredColumn, "visit", "b", "b1")
	b.AddRecord(KindMissingRequiredColumn, "visit", "c", "b2")

	a.Merge(b)
	a.Merge(nil)
	a.Merge(a)

	rep := a.Build()
	if rep.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", rep.Count())
	}
	if got := rep.Tables(); len(got) != 2 || got[0] != "person" || got[1] != "visit" {
		t.Errorf("Tables() = %v, want [person visit]", got)
	}
}

func TestBuilder_ConcurrentAdd(t *testing.T) {
	b := NewBuilder()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b.Add(Record{Kind: KindTypeMismatch, Table: "t", Row: Row(i)})
		}(i)
	}
	wg.Wait()

	if b.Len() != 50 {
		t.Errorf("Len() = %d, want 50", b.Len())
	}
}

func TestReport_IsReadOnly(t *testing.T) {
	b := NewBuilder()
	b.Add(Record{
		Kind:       KindDuplicatePrimaryKey,
		Table:      "person",
		Row:        Row(1),
		Duplicates: []DuplicateCount{{Value: int64(1), Count: 2}},
	})
	rep := b.Build()

	recs := rep.Records()
	recs[0].Table = "mutated"
	*recs[0].Row = 99
	recs[0].Duplicates[0].Count = 7

	again := rep.Records()
	if again[0].Table != "person" {
		t.Errorf("Table = %q after mutating copy, want %q", again[0].Table, "person")
	}
	if *again[0].Row != 1 {
		t.Errorf("Row = %d after mutating copy, want 1", *again[0].Row)
	}
	if again[0].Duplicates[0].Count != 2 {
		t.Errorf("Duplicates[0].Count = %d after mutating copy, want 2", again[0].Duplicates[0].Count)
	}

	// Adding to the builder after Build does not leak into the report.
	b.AddRecord(KindTypeMismatch, "person", "x", "late")
	if rep.Count() != 1 {
		t.Errorf("Count() = %d after late Add, want 1", rep.Count())
	}
}

func TestReport_Queries(t *testing.T) {
	b := NewBuilder()
	b.AddRecord(KindMissingRequiredColumn, "person", "a", "m1")
	b.AddRecord(KindTypeMismatch, "visit", "b", "m2")
	b.AddRecord(KindTypeMismatch, "person", "c", "m3")
	rep := b.Build()

	if !rep.HasKind(KindTypeMismatch) {
		t.Error("HasKind(TypeMismatch) = false, want true")
	}
	if rep.HasKind(KindDuplicatePrimaryKey) {
		t.Error("HasKind(DuplicatePrimaryKey) = true, want false")
	}
	if got := len(rep.ByKind(KindTypeMismatch)); got != 2 {
		t.Errorf("len(ByKind(TypeMismatch)) = %d, want 2", got)
	}
	if got := len(rep.ByTable("person")); got != 2 {
		t.Errorf("len(ByTable(person)) = %d, want 2", got)
	}
	counts := rep.CountByKind()
	if counts[KindTypeMismatch] != 2 || counts[KindMissingRequiredColumn] != 1 {
		t.Errorf("CountByKind() = %v", counts)
	}
}

func TestReport_Equal(t *testing.T) {
	build := func() *Report {
		b := NewBuilder()
		b.Add(Record{Kind: KindTypeMismatch, Table: "t", Column: "c", Row: Row(0), Message: "m"})
		return b.Build()
	}

	if !build().Equal(build()) {
		t.Error("Equal() = false for identical reports")
	}

	b := NewBuilder()
	b.Add(Record{Kind: KindTypeMismatch, Table: "t", Column: "c", Row: Row(1), Message: "m"})
	if build().Equal(b.Build()) {
		t.Error("Equal() = true for reports with different rows")
	}
	if Empty().Equal(nil) {
		t.Error("Equal(nil) = true, want false")
	}
}

func TestRecord_Location(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want string
	}{
		{"table only", Record{Table: "person"}, "person"},
		{"column", Record{Table: "person", Column: "person_id"}, "person.person_id"},
		{"row is 1-based", Record{Table: "person", Column: "person_id", Row: Row(0)}, "person.person_id row 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.Location(); got != tt.want {
				t.Errorf("Location() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKind_IsValid(t *testing.T) {
	for _, k := range Kinds {
		if !k.IsValid() {
			t.Errorf("%s.IsValid() = false", k)
		}
	}
	if Kind("SchemaAcquisitionError").IsValid() {
		t.Error("SchemaAcquisitionError must not be a report kind")
	}
}
