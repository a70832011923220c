// Package metrics exposes validation metrics in Prometheus format.
//
// Collector implements validation.Observer, so passing it to the engine
// records per-table and per-run metrics:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	engine := validation.NewEngine(validation.WithObserver(collector))
//	http.Handle("/metrics", collector.Handler())
//
// Table names are used as label values up to a fixed limit; further tables
// are counted under "_other".
package metrics
