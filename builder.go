package conout

import (
	"errors"
	"log/slog"
)

// Builder assembles a [Flow]. A Builder is single-use: Build succeeds at most
// once.
type Builder struct {
	config Config

	client APIClient
	sink   EventSink
	logger *slog.Logger

	built bool
}

// New returns a Builder with default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithAPIClient injects the service client. Required. Passing an explicit
// instance (rather than a package-level shared client) is what lets tests
// substitute a fake.
func (b *Builder) WithAPIClient(client APIClient) *Builder {
	b.client = client
	return b
}

// WithEventSink injects the sink that receives flow transition events.
// Setting a sink enables event dispatch.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.sink = sink
	b.config.Events.Enabled = true
	return b
}

// WithLogger injects a structured logger for best-effort diagnostics. The
// Flow never logs on the happy path.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles match-latency histogram recording.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and constructs the Flow in its initial
// Registering state.
func (b *Builder) Build() (*Flow, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.client == nil {
		return nil, errors.New("api client required")
	}

	f := &Flow{
		config:  cfg,
		client:  b.client,
		logger:  b.logger,
		metrics: NewMetrics(cfg.Metrics),
		events:  newEventDispatcher(cfg.Events, b.sink),
		step:    StepRegistering,
	}

	b.built = true
	return f, nil
}
