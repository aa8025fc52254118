package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	conout "github.com/conout/conout-go"
)

type fakeSource struct {
	snapshot conout.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() conout.MetricsSnapshot { return f.snapshot }
func (f fakeSource) EventsDropped() uint64                   { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: conout.MetricsSnapshot{
			Counters:   map[conout.MetricID]uint64{},
			Histograms: map[conout.MetricID][]uint64{},
		},
		dropped: 0,
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCounterAndHistogram(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: conout.MetricsSnapshot{
			Counters: map[conout.MetricID]uint64{
				conout.MetricRegisterSuccess: 7,
				conout.MetricMatchSuccess:    4,
			},
			Histograms: map[conout.MetricID][]uint64{
				conout.MetricMatchLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	if !strings.Contains(out, "conout_register_success_total 7") {
		t.Fatalf("expected register_success counter in output, got:\n%s", out)
	}
	if !strings.Contains(out, "conout_match_latency_seconds_bucket{le=\"0.05\"} 1") {
		t.Fatalf("expected first histogram bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "conout_match_latency_seconds_bucket{le=\"+Inf\"} 36") {
		t.Fatalf("expected +Inf cumulative bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "conout_match_latency_seconds_count 36") {
		t.Fatalf("expected histogram count in output, got:\n%s", out)
	}
	if !strings.Contains(out, "conout_events_dropped_total 2") {
		t.Fatalf("expected events dropped counter in output, got:\n%s", out)
	}
}

func TestRenderSkipsAbsentHistogram(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: conout.MetricsSnapshot{
			Counters: map[conout.MetricID]uint64{
				conout.MetricRegisterSuccess: 1,
			},
			Histograms: map[conout.MetricID][]uint64{},
		},
	})

	out := exp.Render()
	if strings.Contains(out, "conout_match_latency_seconds_bucket") {
		t.Fatalf("histogram rendered without snapshot data:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: conout.MetricsSnapshot{
			Counters:   map[conout.MetricID]uint64{conout.MetricRegisterSuccess: 1},
			Histograms: map[conout.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: conout.MetricsSnapshot{
			Counters: map[conout.MetricID]uint64{
				conout.MetricRegisterSuccess: 1000,
				conout.MetricRegisterFailure: 40,
				conout.MetricVerifySuccess:   800,
				conout.MetricVerifyFailure:   10,
				conout.MetricSubmitSuccess:   780,
				conout.MetricMatchSuccess:    760,
				conout.MetricMatchFailure:    20,
			},
			Histograms: map[conout.MetricID][]uint64{
				conout.MetricMatchLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
		dropped: 0,
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
