package conout

import "context"

// VerifyCode runs the verification step against the email carried forward
// from registration. The code must be exactly six digits; anything else is
// rejected locally without a dispatch. Success advances the flow to event
// selection.
func (f *Flow) VerifyCode(ctx context.Context, code string) error {
	if f == nil || f.client == nil {
		return ErrFlowNotReady
	}

	f.mu.Lock()
	if f.step != StepVerifying {
		f.mu.Unlock()
		return ErrWrongStep
	}
	if f.pending {
		f.metricInc(MetricDuplicateSuppressed)
		f.emitEvent(ctx, eventDuplicateSuppressed, StepVerifying, false, ErrRequestInFlight, nil)
		f.mu.Unlock()
		return ErrRequestInFlight
	}
	if verr := validateCode(code); verr != nil {
		f.lastError = verr
		f.metricInc(MetricVerifyRejected)
		f.emitEvent(ctx, eventVerifyRejected, StepVerifying, false, verr, nil)
		f.mu.Unlock()
		return verr
	}
	email := f.email
	f.pending = true
	f.notice = ""
	gen := f.gen
	f.mu.Unlock()

	err := f.callWithTimeout(ctx, func(dctx context.Context) error {
		return f.client.VerifyEmail(dctx, email, code)
	})

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.completionCurrent(ctx, gen, eventVerifySuccess) {
		return err
	}
	f.pending = false

	if err != nil {
		reqErr := normalizeRequestError(err)
		f.lastError = reqErr
		f.metricInc(MetricVerifyFailure)
		f.emitEvent(ctx, eventVerifyFailure, StepVerifying, false, reqErr, nil)
		return reqErr
	}

	f.advance(StepSelectingEvent)
	f.metricInc(MetricVerifySuccess)
	f.emitEvent(ctx, eventVerifySuccess, StepSelectingEvent, true, nil, nil)
	return nil
}

// ResendCode asks the service to reissue the verification code. It is a side
// action of the Verifying step and may overlap a pending VerifyCode: the two
// own disjoint fields, so whichever completes last wins only what it owns.
// Resend never advances or evicts the step: success just clears the error
// display and sets a resent notice; failure surfaces an error in place. A
// resend completion that arrives after the flow has moved past Verifying is
// discarded.
func (f *Flow) ResendCode(ctx context.Context) error {
	if f == nil || f.client == nil {
		return ErrFlowNotReady
	}

	f.mu.Lock()
	if f.step != StepVerifying {
		f.mu.Unlock()
		return ErrWrongStep
	}
	if f.resendPending {
		f.metricInc(MetricDuplicateSuppressed)
		f.emitEvent(ctx, eventDuplicateSuppressed, StepVerifying, false, ErrRequestInFlight, map[string]string{
			"operation": "resend",
		})
		f.mu.Unlock()
		return ErrRequestInFlight
	}
	email := f.email
	f.resendPending = true
	gen := f.gen
	f.mu.Unlock()

	err := f.callWithTimeout(ctx, func(dctx context.Context) error {
		return f.client.ResendVerificationCode(dctx, email)
	})

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.completionCurrent(ctx, gen, eventResendSuccess) {
		return err
	}
	f.resendPending = false

	if err != nil {
		reqErr := normalizeRequestError(err)
		f.lastError = reqErr
		f.metricInc(MetricResendFailure)
		f.emitEvent(ctx, eventResendFailure, StepVerifying, false, reqErr, nil)
		return reqErr
	}

	f.lastError = nil
	f.notice = "Verification code resent"
	f.metricInc(MetricResendSuccess)
	f.emitEvent(ctx, eventResendSuccess, StepVerifying, true, nil, nil)
	return nil
}
