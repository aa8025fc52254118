package conout

import (
	"errors"
	"time"
)

// Config defines the tunable behavior of a [Flow]. Configure it before
// [Builder.Build]; the Flow holds a private clone afterwards.
type Config struct {
	Request RequestConfig
	Events  EventsConfig
	Metrics MetricsConfig
}

/*
====================================
REQUEST CONFIG
====================================
*/

// RequestConfig bounds each asynchronous dispatch.
type RequestConfig struct {
	// Timeout caps a single API round trip. A dispatch that outlives it is
	// surfaced as the NetworkError kind; without this bound a step could
	// stay pending forever.
	Timeout time.Duration

	// AutoFetchMatch starts the match fetch as soon as the preference
	// submission succeeds, with no separate caller action. Disable it to
	// drive FetchMatch explicitly.
	AutoFetchMatch bool
}

/*
====================================
EVENTS CONFIG
====================================
*/

// EventsConfig controls the flow-event dispatcher.
type EventsConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull sheds events instead of blocking the workflow when the
	// sink falls behind. Dropped counts are observable via Flow.EventsDropped.
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the in-process metrics counters.
type MetricsConfig struct {
	Enabled bool
	// EnableLatencyHistograms additionally records the match fetch latency
	// distribution.
	EnableLatencyHistograms bool
}

func defaultConfig() Config {
	return Config{
		Request: RequestConfig{
			Timeout:        15 * time.Second,
			AutoFetchMatch: true,
		},
		Events: EventsConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects configurations the Flow cannot honor.
func (c *Config) Validate() error {
	if c.Request.Timeout <= 0 {
		return errors.New("Request.Timeout must be positive")
	}
	if c.Events.Enabled && c.Events.BufferSize <= 0 {
		return errors.New("Events.BufferSize must be positive when events are enabled")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	// All fields are value types today; the clone exists so later reference
	// fields cannot alias caller memory.
	return cfg
}
