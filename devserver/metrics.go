package devserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector gathers request-level Prometheus metrics for the devserver.
type Collector struct {
	requests        *prometheus.CounterVec
	requestLatency  prometheus.Histogram
	codesIssued     prometheus.Counter
	matchesServed   prometheus.Counter
	resendThrottled prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conout_devserver_requests_total",
			Help: "Handled requests by route and status code.",
		}, []string{"route", "status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "conout_devserver_request_latency_seconds",
			Help:    "Request handling latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		codesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "conout_devserver_codes_issued_total",
			Help: "Verification codes issued, counting both registration and resend.",
		}),
		matchesServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "conout_devserver_matches_served_total",
			Help: "Matches generated and served.",
		}),
		resendThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "conout_devserver_resend_throttled_total",
			Help: "Resend requests rejected by the per-address rate limit.",
		}),
	}

	reg.MustRegister(
		c.requests,
		c.requestLatency,
		c.codesIssued,
		c.matchesServed,
		c.resendThrottled,
	)

	return c
}

func (c *Collector) recordRequest(route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	c.requestLatency.Observe(elapsed.Seconds())
}

func (c *Collector) recordCodeIssued() {
	if c != nil {
		c.codesIssued.Inc()
	}
}

func (c *Collector) recordMatchServed() {
	if c != nil {
		c.matchesServed.Inc()
	}
}

func (c *Collector) recordResendThrottled() {
	if c != nil {
		c.resendThrottled.Inc()
	}
}

// MetricsHandler serves the registry in Prometheus exposition format.
func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
