package conout

import "context"

// RegisterAccount runs the registration step: validate the three fields,
// dispatch the registration request, and on success advance to Verifying
// with the email carried forward.
//
// A validation failure or request failure leaves the flow in Registering
// with the failure stored for display; the caller's input is never cleared,
// so the user can correct and resubmit. A duplicate invocation while a
// registration is already in flight dispatches nothing and returns
// [ErrRequestInFlight].
func (f *Flow) RegisterAccount(ctx context.Context, email, password, confirmPassword string) error {
	if f == nil || f.client == nil {
		return ErrFlowNotReady
	}

	f.mu.Lock()
	if f.step != StepRegistering {
		f.mu.Unlock()
		return ErrWrongStep
	}
	if f.pending {
		f.metricInc(MetricDuplicateSuppressed)
		f.emitEvent(ctx, eventDuplicateSuppressed, StepRegistering, false, ErrRequestInFlight, nil)
		f.mu.Unlock()
		return ErrRequestInFlight
	}
	if verr := validateRegistration(email, password, confirmPassword); verr != nil {
		f.lastError = verr
		f.metricInc(MetricRegisterRejected)
		f.emitEvent(ctx, eventRegisterRejected, StepRegistering, false, verr, map[string]string{
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
		return f.client.Register(dctx, email, password)
	})

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.completionCurrent(ctx, gen, eventRegisterSuccess) {
		return err
	}
	f.pending = false

	if err != nil {
		reqErr := normalizeRequestError(err)
		f.lastError = reqErr
		f.metricInc(MetricRegisterFailure)
		f.emitEvent(ctx, eventRegisterFailure, StepRegistering, false, reqErr, nil)
		return reqErr
	}

	f.email = email
	f.advance(StepVerifying)
	f.metricInc(MetricRegisterSuccess)
	f.emitEvent(ctx, eventRegisterSuccess, StepVerifying, true, nil, map[string]string{
		"email": email,
	})
	return nil
}
