package conout

import "context"

type deviceIDContextKey struct{}
type userAgentContextKey struct{}

// WithDeviceID attaches the installing device's identifier to ctx. Transport
// implementations forward it as a request header so the service can correlate
// a registration with its verification.
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, deviceIDContextKey{}, deviceID)
}

// WithUserAgent attaches a client identification string to ctx for transport
// implementations to send as the User-Agent header.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

// DeviceIDFromContext returns the device identifier set by [WithDeviceID],
// or "" when absent.
func DeviceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	deviceID, _ := ctx.Value(deviceIDContextKey{}).(string)
	return deviceID
}

// UserAgentFromContext returns the client identification string set by
// [WithUserAgent], or "" when absent.
func UserAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	userAgent, _ := ctx.Value(userAgentContextKey{}).(string)
	return userAgent
}
