// Package metrics provides observability hooks for reconciliation runs.
//
// Components receive a Recorder through dependency injection. NoopRecorder is
// the default so callers never check for nil; PrometheusRecorder backs the real
// export. A one-shot invocation writes the registry to a node-exporter textfile
// (WriteTextfile) and the daemon serves it over HTTP (Handler).
package metrics
