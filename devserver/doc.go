// Package devserver is a self-contained reference backend for the conout
// workflow. It implements the same HTTP contract the httpapi client speaks,
// backed by redis, so the full registration-to-match flow can be exercised
// locally without the production service.
//
// Verification codes are not emailed anywhere; they are written to the
// server log at issue time.
package devserver
