/*
Package report holds the findings of a validation run.

Checks append structured Records to a Builder while a run is in progress.
When the run completes the Builder produces a Report, an ordered read-only
view whose order is the order in which checks ran:

	b := report.NewBuilder()
	b.Add(report.Record{
		Kind:    report.KindMissingRequiredColumn,
		Table:   "person",
		Column:  "person_id",
		Message: "The 'person_id' field is missing in 'person' table.",
	})
	rep := b.Build()
	for _, rec := range rep.Records() {
		fmt.Println(rec.Message)
	}

Builders are safe for concurrent Add. For deterministic output, parallel
producers should fill their own Builder and Merge them in a fixed order.
*/
package report
