// Package test holds black-box integration tests wiring the public packages
// together: the Flow orchestrator, the HTTP client, and the redis-backed
// devserver.
package test

import (
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	conout "github.com/conout/conout-go"
	"github.com/conout/conout-go/devserver"
	"github.com/conout/conout-go/httpapi"
)

// codeSink captures verification codes from the devserver log stream.
type codeSink struct {
	slog.Handler
	mu    sync.Mutex
	codes []string
}

func (h *codeSink) Enabled(context.Context, slog.Level) bool { return true }

func (h *codeSink) Handle(ctx context.Context, record slog.Record) error {
	if record.Message == "verification code issued" {
		record.Attrs(func(a slog.Attr) bool {
			if a.Key == "code" {
				h.mu.Lock()
				h.codes = append(h.codes, a.Value.String())
				h.mu.Unlock()
			}
			return true
		})
	}
	return h.Handler.Handle(ctx, record)
}

func (h *codeSink) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &codeSink{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *codeSink) WithGroup(name string) slog.Handler {
	return &codeSink{Handler: h.Handler.WithGroup(name)}
}

func (h *codeSink) latest(t *testing.T) string {
	t.Helper()

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.codes) == 0 {
		t.Fatal("no verification code issued")
	}
	return h.codes[len(h.codes)-1]
}

type testEnv struct {
	flow  *conout.Flow
	codes *codeSink
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	codes := &codeSink{Handler: slog.DiscardHandler}
	server := devserver.NewServer(
		devserver.NewStore(rdb, ""),
		slog.New(codes),
		devserver.NewCollector(prometheus.NewRegistry()),
		devserver.Config{
			CodeTTL:         time.Minute,
			MaxCodeAttempts: 3,
			ResendInterval:  time.Millisecond,
		},
	)
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)

	flow, err := conout.New().
		WithAPIClient(httpapi.NewClient(ts.URL, ts.Client(), nil)).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(flow.Close)

	return &testEnv{flow: flow, codes: codes}
}

func waitForStep(t *testing.T, flow *conout.Flow, want conout.Step) conout.FlowState {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for {
		state := flow.Snapshot()
		if state.Step == want {
			return state
		}
		if time.Now().After(deadline) {
			t.Fatalf("step = %v, want %v (state %+v)", state.Step, want, state)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFullWorkflowAgainstDevserver(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.flow.RegisterAccount(ctx, "sam@campus.edu", "password1", "password1"); err != nil {
		t.Fatalf("RegisterAccount failed: %v", err)
	}

	if err := env.flow.VerifyCode(ctx, env.codes.latest(t)); err != nil {
		t.Fatalf("VerifyCode failed: %v", err)
	}

	if err := env.flow.SubmitPreferences(ctx, conout.Preferences{
		Occasion:          conout.OccasionTennis,
		Budget:            50,
		PreferredTime:     time.Now().Add(48 * time.Hour),
		PreferredLocation: "Downtown",
	}); err != nil {
		t.Fatalf("SubmitPreferences failed: %v", err)
	}

	state := waitForStep(t, env.flow, conout.StepMatched)
	if state.Match == nil || state.Match.ID == "" {
		t.Fatalf("no match retrieved: %+v", state)
	}
	if state.Match.EventName == "" || state.Match.Location == "" {
		t.Errorf("match missing venue: %+v", state.Match)
	}
}

func TestWrongCodeSurfacesServerMessageThenRecovers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.flow.RegisterAccount(ctx, "sam@campus.edu", "password1", "password1"); err != nil {
		t.Fatalf("RegisterAccount failed: %v", err)
	}

	issued := env.codes.latest(t)
	wrong := "000000"
	if wrong == issued {
		wrong = "000001"
	}

	err := env.flow.VerifyCode(ctx, wrong)
	if !errors.Is(err, conout.ErrServer) {
		t.Fatalf("wrong code error = %v, want ErrServer kind", err)
	}
	if state := env.flow.Snapshot(); state.Step != conout.StepVerifying {
		t.Fatalf("step after wrong code = %v", state.Step)
	}

	if err := env.flow.VerifyCode(ctx, issued); err != nil {
		t.Fatalf("correct code failed: %v", err)
	}
	if state := env.flow.Snapshot(); state.Step != conout.StepSelectingEvent {
		t.Fatalf("step after correct code = %v", state.Step)
	}
}

func TestResendIssuesFreshUsableCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.flow.RegisterAccount(ctx, "sam@campus.edu", "password1", "password1"); err != nil {
		t.Fatalf("RegisterAccount failed: %v", err)
	}

	// ResendInterval in this env is a millisecond; give the limiter a token.
	time.Sleep(5 * time.Millisecond)
	if err := env.flow.ResendCode(ctx); err != nil {
		t.Fatalf("ResendCode failed: %v", err)
	}
	if state := env.flow.Snapshot(); state.Notice != "Verification code resent" {
		t.Errorf("notice = %q", state.Notice)
	}

	if err := env.flow.VerifyCode(ctx, env.codes.latest(t)); err != nil {
		t.Fatalf("VerifyCode with resent code failed: %v", err)
	}
}

func TestDuplicateRegistrationSurfacesServerError(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.flow.RegisterAccount(ctx, "sam@campus.edu", "password1", "password1"); err != nil {
		t.Fatalf("RegisterAccount failed: %v", err)
	}

	env.flow.Reset()
	err := env.flow.RegisterAccount(ctx, "sam@campus.edu", "password1", "password1")
	if !errors.Is(err, conout.ErrServer) {
		t.Fatalf("duplicate registration = %v, want ErrServer kind", err)
	}
	if want := "Server error: email already registered"; err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
}
