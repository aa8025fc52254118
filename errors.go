package conout

import (
	"errors"
	"fmt"
)

// Validation failure kinds. These are detected locally, before any request is
// dispatched, and never reach the APIClient.
var (
	// ErrEmptyField rejects a required field left blank.
	ErrEmptyField = errors.New("required field is empty")
	// ErrInvalidEmailDomain rejects an email outside the institutional domain.
	ErrInvalidEmailDomain = errors.New("email must be a valid .edu address")
	// ErrPasswordMismatch rejects a confirmation that differs from the password.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrPasswordTooShort rejects a password under the minimum length.
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	// ErrInvalidCodeFormat rejects a verification code that is not 6 digits.
	ErrInvalidCodeFormat = errors.New("verification code must be 6 digits")
	// ErrMissingLocation rejects preferences without a preferred location.
	ErrMissingLocation = errors.New("preferred location is required")
	// ErrInvalidOccasion rejects an unknown occasion value.
	ErrInvalidOccasion = errors.New("unknown occasion")
	// ErrInvalidBudget rejects a budget outside 10-200 or off the 10-step grid.
	ErrInvalidBudget = errors.New("budget must be between 10 and 200 in steps of 10")
)

// Request failure kinds, knowable only after an asynchronous round trip.
// The Flow treats all four identically: it surfaces the message and stays in
// the current step.
var (
	// ErrNetwork covers transport failures and timed-out dispatches.
	ErrNetwork = errors.New("network error")
	// ErrInvalidResponse covers unexpected statuses with no usable error body.
	ErrInvalidResponse = errors.New("invalid response")
	// ErrServer covers failures reported by the service itself.
	ErrServer = errors.New("server error")
	// ErrDecoding covers well-formed responses whose payload would not decode.
	ErrDecoding = errors.New("decoding error")
)

// Flow sequencing errors.
var (
	// ErrWrongStep is returned when an operation is invoked outside the step
	// that owns it.
	ErrWrongStep = errors.New("operation not valid in current step")
	// ErrRequestInFlight is returned when a step already has a pending
	// request; the duplicate invocation dispatches nothing.
	ErrRequestInFlight = errors.New("request already in flight for this step")
	// ErrFlowNotReady is returned when the Flow was not built with its
	// required dependencies.
	ErrFlowNotReady = errors.New("flow not initialized")
)

// ValidationError reports a locally detected input defect. It wraps one of
// the validation kind sentinels, so callers can branch with errors.Is while
// still seeing the offending field.
type ValidationError struct {
	// Field names the rejected input ("email", "password", "code", ...).
	Field string
	// Kind is one of the validation sentinels above.
	Kind error
}

// Error renders the displayable message for the rejected field.
func (e *ValidationError) Error() string {
	if e == nil || e.Kind == nil {
		return "validation failed"
	}
	if e.Field == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Kind.Error())
}

// Unwrap exposes the kind sentinel to errors.Is.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Kind
}

func newValidationError(field string, kind error) *ValidationError {
	return &ValidationError{Field: field, Kind: kind}
}

// RequestError reports a failure from one asynchronous service round trip.
// It wraps one of ErrNetwork, ErrInvalidResponse, ErrServer, or ErrDecoding
// and always carries a human-readable message for direct display.
type RequestError struct {
	// Kind is one of the request kind sentinels above.
	Kind error
	// Message is the displayable description. For ErrServer it carries the
	// service-provided text; otherwise a fixed description of the failure.
	Message string
}

// Error returns the displayable message.
func (e *RequestError) Error() string {
	if e == nil {
		return "request failed"
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Kind != nil {
		return e.Kind.Error()
	}
	return "request failed"
}

// Unwrap exposes the kind sentinel to errors.Is.
func (e *RequestError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Kind
}

// NewNetworkError builds the NetworkError kind with its display text.
func NewNetworkError() *RequestError {
	return &RequestError{Kind: ErrNetwork, Message: "Network error. Please check your connection."}
}

// NewInvalidResponseError builds the InvalidResponse kind with its display text.
func NewInvalidResponseError() *RequestError {
	return &RequestError{Kind: ErrInvalidResponse, Message: "Invalid response from server."}
}

// NewServerError builds the ServerError kind carrying the service message.
func NewServerError(message string) *RequestError {
	return &RequestError{Kind: ErrServer, Message: "Server error: " + message}
}

// NewDecodingError builds the DecodingError kind with its display text.
func NewDecodingError() *RequestError {
	return &RequestError{Kind: ErrDecoding, Message: "Error processing data from server."}
}

// normalizeRequestError coerces any dispatch failure into a *RequestError so
// every failure path surfaces a displayable message. Timeouts and context
// errors become the NetworkError kind: a request that never completes is
// indistinguishable from a dead network to the user.
func normalizeRequestError(err error) *RequestError {
	if err == nil {
		return nil
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr
	}
	return NewNetworkError()
}
