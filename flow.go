package conout

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Flow is the workflow orchestrator: the state machine that sequences
// registration, verification, event selection, and match retrieval. Build it
// with [Builder]; all methods are then safe for concurrent use.
//
// State is mutated only under the Flow mutex, and every dispatch records a
// generation number that must still be current when its completion arrives.
// Whichever completion applies last wins only the fields it owns; a
// completion whose generation has passed is dropped whole.
type Flow struct {
	config  Config
	client  APIClient
	logger  *slog.Logger
	metrics *Metrics
	events  *eventDispatcher

	mu            sync.Mutex
	step          Step
	pending       bool
	resendPending bool
	gen           uint64
	email         string
	prefs         *Preferences
	lastError     error
	notice        string
	match         *Match
}

// Close stops the event dispatcher after draining buffered events. The Flow
// itself needs no teardown.
func (f *Flow) Close() {
	if f == nil {
		return
	}
	if f.events != nil {
		f.events.Close()
	}
}

// Snapshot returns a copy of the current workflow state for display. The
// copy is detached: mutating it does not affect the Flow.
func (f *Flow) Snapshot() FlowState {
	if f == nil {
		return FlowState{}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	state := FlowState{
		Step:          f.step,
		Pending:       f.pending,
		ResendPending: f.resendPending,
		Email:         f.email,
		LastError:     f.lastError,
		Notice:        f.notice,
	}
	if f.prefs != nil {
		prefs := *f.prefs
		state.Preferences = &prefs
	}
	if f.match != nil {
		match := *f.match
		state.Match = &match
	}
	return state
}

// Reset abandons the flow and restarts from Registering. All carried state,
// including any retrieved match, is destroyed, and completions of requests
// still in flight are discarded when they arrive.
func (f *Flow) Reset() {
	if f == nil {
		return
	}

	f.mu.Lock()
	f.step = StepRegistering
	f.pending = false
	f.resendPending = false
	f.gen++
	f.email = ""
	f.prefs = nil
	f.lastError = nil
	f.notice = ""
	f.match = nil
	f.mu.Unlock()

	f.emitEvent(context.Background(), eventFlowReset, StepRegistering, true, nil, nil)
}

// MetricsSnapshot returns a copy of the workflow counters.
func (f *Flow) MetricsSnapshot() MetricsSnapshot {
	if f == nil || f.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return f.metrics.Snapshot()
}

// EventsDropped reports events shed by the dispatcher under backpressure.
func (f *Flow) EventsDropped() uint64 {
	if f == nil || f.events == nil {
		return 0
	}
	return f.events.Dropped()
}

func (f *Flow) metricInc(id MetricID) {
	if f == nil || f.metrics == nil {
		return
	}
	f.metrics.Inc(id)
}

func (f *Flow) emitEvent(ctx context.Context, eventType string, step Step, success bool, err error, metadata map[string]string) {
	if f == nil || f.events == nil {
		return
	}
	event := FlowEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Step:      step.String(),
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = err.Error()
	}
	f.events.Emit(ctx, event)
}

// callWithTimeout runs one API dispatch under the configured bound.
func (f *Flow) callWithTimeout(ctx context.Context, call func(context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	dctx, cancel := context.WithTimeout(ctx, f.config.Request.Timeout)
	defer cancel()
	return call(dctx)
}

// completionCurrent reports, under the lock, whether a completion carrying
// gen may still be applied. Callers must hold f.mu.
func (f *Flow) completionCurrent(ctx context.Context, gen uint64, eventType string) bool {
	if f.gen == gen {
		return true
	}
	f.metricInc(MetricStaleCompletionDropped)
	f.emitEvent(ctx, eventStaleCompletion, f.step, false, nil, map[string]string{
		"operation": eventType,
	})
	f.warn("conout: stale completion dropped", "operation", eventType, "step", f.step.String())
	return false
}

// advance moves the flow to the next step, invalidating outstanding
// completions. Callers must hold f.mu.
func (f *Flow) advance(next Step) {
	f.step = next
	f.pending = false
	f.resendPending = false
	f.lastError = nil
	f.notice = ""
	f.gen++
}

func (f *Flow) warn(msg string, args ...any) {
	if f == nil || f.logger == nil {
		return
	}
	f.logger.Warn(msg, args...)
}
