// Package metrics records poll and command outcomes.
//
// Components hold a Recorder and default to NoopRecorder, so no call site
// needs a nil check. The tail command swaps in a PrometheusRecorder and
// serves it with Serve when a metrics address is configured.
package metrics
