package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	conout "github.com/conout/conout-go"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, server.Client(), nil)
}

func TestRegisterSendsCredentials(t *testing.T) {
	var got registerRequest
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != registerPath {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))

	if err := client.Register(context.Background(), "sam@campus.edu", "password1"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if got.Email != "sam@campus.edu" || got.Password != "password1" {
		t.Errorf("request body = %+v", got)
	}
}

func TestVerifyEmailRoute(t *testing.T) {
	var got verifyRequest
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != verifyPath {
			t.Errorf("path = %s, want %s", r.URL.Path, verifyPath)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))

	if err := client.VerifyEmail(context.Background(), "sam@campus.edu", "123456"); err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}
	if got.Code != "123456" {
		t.Errorf("code = %q, want 123456", got.Code)
	}
}

func TestSubmitEventSelectionWireShape(t *testing.T) {
	when := time.Date(2026, time.March, 14, 19, 0, 0, 0, time.UTC)
	var got map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != selectPath {
			t.Errorf("path = %s, want %s", r.URL.Path, selectPath)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))

	err := client.SubmitEventSelection(context.Background(), conout.Preferences{
		Occasion:          conout.OccasionTennis,
		Budget:            50,
		PreferredTime:     when,
		PreferredLocation: "Downtown",
	})
	if err != nil {
		t.Fatalf("SubmitEventSelection failed: %v", err)
	}

	if got["occasion"] != "tennis" {
		t.Errorf("occasion = %v, want tennis", got["occasion"])
	}
	if sec, ok := got["preferredTime"].(float64); !ok || int64(sec) != when.Unix() {
		t.Errorf("preferredTime = %v, want %d", got["preferredTime"], when.Unix())
	}
	if _, present := got["notes"]; present {
		t.Errorf("empty notes should be omitted, got %v", got["notes"])
	}
}

func TestGetMatchDecodesPayload(t *testing.T) {
	date := time.Date(2026, time.April, 2, 18, 30, 0, 0, time.UTC)
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != matchPath {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":        "m-100",
			"eventName": "Tennis Meetup",
			"location":  "Riverside Courts",
			"date":      date.Unix(),
			"latitude":  37.77,
			"longitude": -122.41,
		})
	}))

	match, err := client.GetMatch(context.Background())
	if err != nil {
		t.Fatalf("GetMatch failed: %v", err)
	}
	if match.ID != "m-100" || match.EventName != "Tennis Meetup" {
		t.Errorf("match = %+v", match)
	}
	if !match.Date.Equal(date) {
		t.Errorf("date = %v, want %v", match.Date, date)
	}
	if match.Description != nil || match.VenueURL != nil {
		t.Errorf("optional fields should stay nil, got %+v", match)
	}
}

func TestServerErrorCarriesMessage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "email already registered"})
	}))

	err := client.Register(context.Background(), "sam@campus.edu", "password1")
	if !errors.Is(err, conout.ErrServer) {
		t.Fatalf("error = %v, want ErrServer kind", err)
	}
	if want := "Server error: email already registered"; err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
}

func TestErrorStatusWithoutMessageIsInvalidResponse(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))

	err := client.Register(context.Background(), "sam@campus.edu", "password1")
	if !errors.Is(err, conout.ErrInvalidResponse) {
		t.Fatalf("error = %v, want ErrInvalidResponse kind", err)
	}
}

func TestUndecodablePayloadIsDecodingError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("{not json"))
	}))

	_, err := client.GetMatch(context.Background())
	if !errors.Is(err, conout.ErrDecoding) {
		t.Fatalf("error = %v, want ErrDecoding kind", err)
	}
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()
	client := NewClient(server.URL, nil, nil)

	err := client.Register(context.Background(), "sam@campus.edu", "password1")
	if !errors.Is(err, conout.ErrNetwork) {
		t.Fatalf("error = %v, want ErrNetwork kind", err)
	}
}

func TestContextMetadataForwardedAsHeaders(t *testing.T) {
	var deviceID, userAgent string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deviceID = r.Header.Get("X-Device-ID")
		userAgent = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))

	ctx := conout.WithDeviceID(context.Background(), "device-42")
	ctx = conout.WithUserAgent(ctx, "conout-ios/3.1")
	if err := client.ResendVerificationCode(ctx, "sam@campus.edu"); err != nil {
		t.Fatalf("ResendVerificationCode failed: %v", err)
	}
	if deviceID != "device-42" {
		t.Errorf("X-Device-ID = %q, want device-42", deviceID)
	}
	if userAgent != "conout-ios/3.1" {
		t.Errorf("User-Agent = %q, want conout-ios/3.1", userAgent)
	}
}
