package conout

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Flow event types, stable strings for sinks and dashboards.
const (
	eventRegisterRejected    = "register_rejected"
	eventRegisterSuccess     = "register_success"
	eventRegisterFailure     = "register_failure"
	eventVerifyRejected      = "verify_rejected"
	eventVerifySuccess       = "verify_success"
	eventVerifyFailure       = "verify_failure"
	eventResendSuccess       = "resend_success"
	eventResendFailure       = "resend_failure"
	eventSubmitRejected      = "submit_rejected"
	eventSubmitSuccess       = "submit_success"
	eventSubmitFailure       = "submit_failure"
	eventMatchSuccess        = "match_success"
	eventMatchFailure        = "match_failure"
	eventMatchRetry          = "match_retry"
	eventDuplicateSuppressed = "duplicate_suppressed"
	eventStaleCompletion     = "stale_completion_dropped"
	eventFlowReset           = "flow_reset"
)

// FlowEvent is a single workflow transition notification. Events are the
// channel through which a presentation layer observes the flow in whatever
// execution context it designates: the dispatcher goroutine calls the sink,
// and the sink decides where to hop from there.
type FlowEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	Step      string            `json:"step"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// EventSink receives flow events. Implementations must be safe for calls
// from a single dispatcher goroutine and should return quickly; a slow sink
// either blocks the dispatcher or (with DropIfFull) sheds events.
type EventSink interface {
	Emit(ctx context.Context, event FlowEvent)
}

// NoOpSink discards every event.
type NoOpSink struct{}

// Emit implements [EventSink].
func (NoOpSink) Emit(context.Context, FlowEvent) {}

// ChannelSink buffers events on a channel for consumption by tests or a UI
// event loop.
type ChannelSink struct {
	events chan FlowEvent
}

// NewChannelSink creates a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan FlowEvent, buffer),
	}
}

// Emit implements [EventSink].
func (s *ChannelSink) Emit(ctx context.Context, event FlowEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// Events returns the receive side of the sink.
func (s *ChannelSink) Events() <-chan FlowEvent {
	return s.events
}

// JSONWriterSink writes one JSON event per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink creates a sink writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

// Emit implements [EventSink].
func (s *JSONWriterSink) Emit(_ context.Context, event FlowEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
