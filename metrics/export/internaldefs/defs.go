package internaldefs

import (
	conout "github.com/conout/conout-go"
)

// CounterDef binds a workflow counter to its exported name and help text.
type CounterDef struct {
	ID   conout.MetricID
	Name string
	Help string
}

// HistogramDef binds a workflow histogram to its exported name and help text.
type HistogramDef struct {
	ID   conout.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported workflow counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: conout.MetricRegisterSuccess, Name: "conout_register_success_total", Help: "Successful account registrations."},
	{ID: conout.MetricRegisterFailure, Name: "conout_register_failure_total", Help: "Failed registration requests."},
	{ID: conout.MetricRegisterRejected, Name: "conout_register_rejected_total", Help: "Registrations rejected by local validation."},
	{ID: conout.MetricVerifySuccess, Name: "conout_verify_success_total", Help: "Successful code verifications."},
	{ID: conout.MetricVerifyFailure, Name: "conout_verify_failure_total", Help: "Failed verification requests."},
	{ID: conout.MetricVerifyRejected, Name: "conout_verify_rejected_total", Help: "Verification codes rejected by local validation."},
	{ID: conout.MetricResendSuccess, Name: "conout_resend_success_total", Help: "Successful verification code resends."},
	{ID: conout.MetricResendFailure, Name: "conout_resend_failure_total", Help: "Failed resend requests."},
	{ID: conout.MetricSubmitSuccess, Name: "conout_submit_success_total", Help: "Accepted event preference submissions."},
	{ID: conout.MetricSubmitFailure, Name: "conout_submit_failure_total", Help: "Failed preference submission requests."},
	{ID: conout.MetricSubmitRejected, Name: "conout_submit_rejected_total", Help: "Submissions rejected by local validation."},
	{ID: conout.MetricMatchSuccess, Name: "conout_match_success_total", Help: "Successfully retrieved matches."},
	{ID: conout.MetricMatchFailure, Name: "conout_match_failure_total", Help: "Failed match retrievals."},
	{ID: conout.MetricMatchRetry, Name: "conout_match_retry_total", Help: "User-triggered match retries."},
	{ID: conout.MetricDuplicateSuppressed, Name: "conout_duplicate_suppressed_total", Help: "Operations ignored because a request was already in flight."},
	{ID: conout.MetricStaleCompletionDropped, Name: "conout_stale_completion_dropped_total", Help: "Completions discarded after the flow moved on."},
}

// HistogramDefs lists every exported workflow histogram.
var HistogramDefs = []HistogramDef{
	{ID: conout.MetricMatchLatency, Name: "conout_match_latency_seconds", Help: "Match fetch latency histogram."},
}

// HistogramBounds are the upper bucket bounds in seconds, as rendered in
// Prometheus le labels.
var HistogramBounds = []string{
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"5",
	"+Inf",
}

// HistogramBoundSuffix are the bounds as OTel-safe name fragments.
var HistogramBoundSuffix = []string{
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw snapshot slice to the fixed
// bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket observation counts into the
// cumulative form Prometheus expects.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
