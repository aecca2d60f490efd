// Package observability provides logging, metrics, and request context
// propagation for the petition document service.
//
// Logging is built on zerolog with configurable level, format, and output.
// Metrics are Prometheus collectors registered through promauto, covering
// case lifecycle, document generation, provider calls, and URL fetching.
// Context helpers carry request and workflow identifiers across API,
// workflow, and activity boundaries so log lines can be correlated.
package observability
