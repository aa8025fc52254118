package conout

import (
	"context"
	"time"
)

// SubmitPreferences runs the event selection step. Zero-valued occasion,
// budget, and time receive the safe defaults the selection screen starts
// from (italian dinner, $50, now); only the preferred location is mandatory.
// The submitted preferences are retained either way, so a failed submission
// can be corrected and resubmitted without retyping.
//
// On success the flow advances to Matching and, unless
// Config.Request.AutoFetchMatch is disabled, immediately begins fetching the
// match with no further caller action.
func (f *Flow) SubmitPreferences(ctx context.Context, prefs Preferences) error {
	if f == nil || f.client == nil {
		return ErrFlowNotReady
	}

	prefs = withPreferenceDefaults(prefs)

	f.mu.Lock()
	if f.step != StepSelectingEvent {
		f.mu.Unlock()
		return ErrWrongStep
	}
	if f.pending {
		f.metricInc(MetricDuplicateSuppressed)
		f.emitEvent(ctx, eventDuplicateSuppressed, StepSelectingEvent, false, ErrRequestInFlight, nil)
		f.mu.Unlock()
		return ErrRequestInFlight
	}
	retained := prefs
	f.prefs = &retained
	if verr := validatePreferences(prefs); verr != nil {
		f.lastError = verr
		f.metricInc(MetricSubmitRejected)
		f.emitEvent(ctx, eventSubmitRejected, StepSelectingEvent, false, verr, map[string]string{
			"field": verr.Field,
		})
		f.mu.Unlock()
		return verr
	}
	f.pending = true
	f.notice = ""
	gen := f.gen
	f.mu.Unlock()

	err := f.callWithTimeout(ctx, func(dctx context.Context) error {
		return f.client.SubmitEventSelection(dctx, prefs)
	})

	f.mu.Lock()

	if !f.completionCurrent(ctx, gen, eventSubmitSuccess) {
		f.mu.Unlock()
		return err
	}
	f.pending = false

	if err != nil {
		reqErr := normalizeRequestError(err)
		f.lastError = reqErr
		f.metricInc(MetricSubmitFailure)
		f.emitEvent(ctx, eventSubmitFailure, StepSelectingEvent, false, reqErr, nil)
		f.mu.Unlock()
		return reqErr
	}

	f.advance(StepMatching)
	autoGen := f.gen
	autoFetch := f.config.Request.AutoFetchMatch
	if autoFetch {
		// Claim the Matching in-flight slot before releasing the lock so a
		// concurrent FetchMatch call cannot double-dispatch.
		f.pending = true
	}
	f.metricInc(MetricSubmitSuccess)
	f.emitEvent(ctx, eventSubmitSuccess, StepMatching, true, nil, map[string]string{
		"occasion": string(prefs.Occasion),
	})
	f.mu.Unlock()

	if autoFetch {
		go f.runMatchFetch(context.Background(), autoGen)
	}
	return nil
}

// withPreferenceDefaults fills the zero fields with the selection screen's
// starting values.
func withPreferenceDefaults(prefs Preferences) Preferences {
	if prefs.Occasion == "" {
		prefs.Occasion = OccasionItalianDinner
	}
	if prefs.Budget == 0 {
		prefs.Budget = DefaultBudget
	}
	if prefs.PreferredTime.IsZero() {
		prefs.PreferredTime = time.Now()
	}
	return prefs
}
