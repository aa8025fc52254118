// Package httpapi is the HTTP rendition of the conout service contract. It
// is the only component in the module that performs network I/O on behalf of
// the workflow; the Flow sees nothing but the [conout.APIClient] interface
// this package implements.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	conout "github.com/conout/conout-go"
)

const (
	registerPath = "/auth/register"
	verifyPath   = "/auth/verify"
	resendPath   = "/auth/resend"
	selectPath   = "/events/selection"
	matchPath    = "/match"

	defaultUserAgent = "conout-go/1.0"

	// maxErrorBody caps how much of a failure response is read while
	// looking for a service error message.
	maxErrorBody = 64 << 10
)

// Client talks to the matching service over HTTP. The zero value is not
// usable; construct it with [NewClient]. The base URL is a plain field on
// construction so tests can point a Client at an httptest server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client for the service at baseURL. A nil httpClient
// falls back to a plain http.Client; a nil logger discards diagnostics.
// Per-request deadlines are the caller's job (the Flow applies its
// configured timeout to every dispatch), so the fallback client carries no
// timeout of its own.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type resendRequest struct {
	Email string `json:"email"`
}

type selectionRequest struct {
	Occasion          string  `json:"occasion"`
	Budget            float64 `json:"budget"`
	PreferredTime     int64   `json:"preferredTime"`
	PreferredLocation string  `json:"preferredLocation"`
	Notes             string  `json:"notes,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Register implements [conout.APIClient].
func (c *Client) Register(ctx context.Context, email, password string) error {
	return c.do(ctx, http.MethodPost, registerPath, registerRequest{
		Email:    email,
		Password: password,
	}, nil)
}

// VerifyEmail implements [conout.APIClient].
func (c *Client) VerifyEmail(ctx context.Context, email, code string) error {
	return c.do(ctx, http.MethodPost, verifyPath, verifyRequest{
		Email: email,
		Code:  code,
	}, nil)
}

// ResendVerificationCode implements [conout.APIClient].
func (c *Client) ResendVerificationCode(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, resendPath, resendRequest{
		Email: email,
	}, nil)
}

// SubmitEventSelection implements [conout.APIClient]. Preferred times travel
// as unix seconds on the wire.
func (c *Client) SubmitEventSelection(ctx context.Context, prefs conout.Preferences) error {
	return c.do(ctx, http.MethodPost, selectPath, selectionRequest{
		Occasion:          string(prefs.Occasion),
		Budget:            prefs.Budget,
		PreferredTime:     prefs.PreferredTime.Unix(),
		PreferredLocation: prefs.PreferredLocation,
		Notes:             prefs.Notes,
	}, nil)
}

// GetMatch implements [conout.APIClient].
func (c *Client) GetMatch(ctx context.Context) (conout.Match, error) {
	var match conout.Match
	if err := c.do(ctx, http.MethodGet, matchPath, nil, &match); err != nil {
		return conout.Match{}, err
	}
	return match, nil
}

// do issues one request and normalizes every outcome into the four contract
// error kinds: transport failures and deadline expiry become NetworkError,
// a non-2xx with a decodable error body becomes ServerError carrying the
// service message, any other non-2xx becomes InvalidResponse, and a 2xx
// whose payload will not decode becomes DecodingError.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building %s request: %w", path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent(ctx))
	if deviceID := conout.DeviceIDFromContext(ctx); deviceID != "" {
		req.Header.Set("X-Device-ID", deviceID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("service request failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return conout.NewNetworkError()
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("service returned error status",
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
			slog.Duration("elapsed", time.Since(start)),
		)
		if readErr == nil {
			var errResp errorResponse
			if json.Unmarshal(raw, &errResp) == nil && errResp.Error != "" {
				return conout.NewServerError(errResp.Error)
			}
		}
		return conout.NewInvalidResponseError()
	}

	if out == nil {
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("reading service response failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return conout.NewNetworkError()
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.Error("decoding service response failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return conout.NewDecodingError()
	}
	return nil
}

func userAgent(ctx context.Context) string {
	if ua := conout.UserAgentFromContext(ctx); ua != "" {
		return ua
	}
	return defaultUserAgent
}
