// Package prometheus renders workflow metrics in the Prometheus text
// exposition format without depending on the Prometheus client library.
//
// The exporter reads counter snapshots from a [conout.Flow] (or any custom
// source) on every scrape; it holds no state of its own.
package prometheus
