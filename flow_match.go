package conout

import (
	"context"
	"time"
)

// FetchMatch runs the match retrieval step. It is normally started
// automatically when the preference submission succeeds; calling it is only
// needed when auto-fetch is disabled or after a failure. From
// StepMatchFailed it re-enters Matching and dispatches again without
// resubmitting preferences.
//
// Success stores the match and moves the flow to its terminal Matched state;
// failure parks it in the recoverable MatchFailed state.
func (f *Flow) FetchMatch(ctx context.Context) error {
	if f == nil || f.client == nil {
		return ErrFlowNotReady
	}

	f.mu.Lock()
	if f.step != StepMatching && f.step != StepMatchFailed {
		f.mu.Unlock()
		return ErrWrongStep
	}
	if f.pending {
		f.metricInc(MetricDuplicateSuppressed)
		f.emitEvent(ctx, eventDuplicateSuppressed, f.step, false, ErrRequestInFlight, nil)
		f.mu.Unlock()
		return ErrRequestInFlight
	}
	if f.step == StepMatchFailed {
		f.advance(StepMatching)
	}
	f.pending = true
	f.notice = ""
	gen := f.gen
	f.mu.Unlock()

	return f.runMatchFetch(ctx, gen)
}

// Retry re-invokes the match fetch from the MatchFailed parking. It is the
// only forward action that state exposes.
func (f *Flow) Retry(ctx context.Context) error {
	if f == nil || f.client == nil {
		return ErrFlowNotReady
	}

	f.mu.Lock()
	if f.step != StepMatchFailed {
		f.mu.Unlock()
		return ErrWrongStep
	}
	f.metricInc(MetricMatchRetry)
	f.emitEvent(ctx, eventMatchRetry, StepMatchFailed, true, nil, nil)
	f.mu.Unlock()

	return f.FetchMatch(ctx)
}

// runMatchFetch performs one match dispatch whose in-flight slot has already
// been claimed under gen, then applies the completion.
func (f *Flow) runMatchFetch(ctx context.Context, gen uint64) error {
	start := time.Now()
	var match Match
	err := f.callWithTimeout(ctx, func(dctx context.Context) error {
		var callErr error
		match, callErr = f.client.GetMatch(dctx)
		return callErr
	})
	if f.metrics.LatencyEnabled() {
		f.metrics.Observe(MetricMatchLatency, time.Since(start))
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.completionCurrent(ctx, gen, eventMatchSuccess) {
		return err
	}
	f.pending = false

	if err != nil {
		reqErr := normalizeRequestError(err)
		// MatchFailed is a step of its own, not an error sub-status: the
		// failure is recoverable but there is no input left to preserve.
		f.step = StepMatchFailed
		f.gen++
		f.lastError = reqErr
		f.metricInc(MetricMatchFailure)
		f.emitEvent(ctx, eventMatchFailure, StepMatchFailed, false, reqErr, nil)
		return reqErr
	}

	stored := match
	f.match = &stored
	f.advance(StepMatched)
	f.metricInc(MetricMatchSuccess)
	f.emitEvent(ctx, eventMatchSuccess, StepMatched, true, nil, map[string]string{
		"match_id": match.ID,
	})
	return nil
}
