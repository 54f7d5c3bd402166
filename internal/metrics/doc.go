// Package metrics provides observability hooks for compilation metrics.
//
// The package implements the Null Object pattern so components never need
// nil checks: everything defaults to NoopRecorder, whose methods inline to
// nothing. When a metrics endpoint is configured, the Prometheus-backed
// recorder is injected instead.
//
// Components receive a Recorder through dependency injection:
//
//	type Driver struct {
//	    recorder metrics.Recorder
//	}
//
// and callers opt in with a With-style setter when constructing the
// component. This keeps metrics activation a wiring concern rather than a
// code change inside the build pipeline.
package metrics
