// Package otel bridges workflow metrics into an OpenTelemetry meter as
// observable instruments. Values are read from a snapshot on every
// collection; the exporter never pushes.
package otel
