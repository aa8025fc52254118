package devserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	conout "github.com/conout/conout-go"
	"github.com/conout/conout-go/internal"
)

const (
	codeDigits        = 6
	minPasswordLength = 8
)

// Config holds the devserver tunables.
type Config struct {
	// CodeTTL is how long an issued verification code stays valid.
	CodeTTL time.Duration
	// MaxCodeAttempts invalidates a pending code after this many mismatches.
	MaxCodeAttempts int
	// ResendInterval is the minimum spacing between resends per address.
	ResendInterval time.Duration
}

// DefaultConfig returns the devserver defaults.
func DefaultConfig() Config {
	return Config{
		CodeTTL:         10 * time.Minute,
		MaxCodeAttempts: 5,
		ResendInterval:  30 * time.Second,
	}
}

// Server handles the workflow HTTP contract against a redis-backed Store.
type Server struct {
	store     *Store
	logger    *slog.Logger
	collector *Collector
	config    Config

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
}

// NewServer creates a Server. A nil logger discards diagnostics; a nil
// collector disables metrics.
func NewServer(store *Store, logger *slog.Logger, collector *Collector, cfg Config) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = DefaultConfig().CodeTTL
	}
	if cfg.MaxCodeAttempts <= 0 {
		cfg.MaxCodeAttempts = DefaultConfig().MaxCodeAttempts
	}
	if cfg.ResendInterval <= 0 {
		cfg.ResendInterval = DefaultConfig().ResendInterval
	}
	return &Server{
		store:     store,
		logger:    logger,
		collector: collector,
		config:    cfg,
		limiters:  make(map[string]*rate.Limiter),
	}
}

// Router returns the devserver routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/auth/register", s.instrument("register", s.handleRegister))
	r.Post("/auth/verify", s.instrument("verify", s.handleVerify))
	r.Post("/auth/resend", s.instrument("resend", s.handleResend))
	r.Post("/events/selection", s.instrument("selection", s.handleSelection))
	r.Get("/match", s.instrument("match", s.handleMatch))

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		s.collector.recordRequest(route, rec.status, time.Since(start))
	}
}

type registerPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload registerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if !isInstitutionalEmail(email) {
		writeError(w, http.StatusBadRequest, "email must be a valid .edu address")
		return
	}
	if len(payload.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	err := s.store.CreateAccount(r.Context(), email, internal.HashCode(payload.Password))
	if errors.Is(err, ErrDuplicateEmail) {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}
	if err != nil {
		s.logger.Error("account creation failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	if err := s.issueCode(r, email); err != nil {
		s.logger.Error("code issue failed", slog.String("email", email), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}

type verifyPayload struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var payload verifyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(payload.Email))
	err := s.store.ConsumeCode(r.Context(), email, internal.HashCode(payload.Code), s.config.MaxCodeAttempts)
	switch {
	case errors.Is(err, ErrCodeNotFound):
		writeError(w, http.StatusGone, "verification code expired, request a new one")
		return
	case errors.Is(err, ErrCodeMismatch):
		writeError(w, http.StatusUnauthorized, "invalid verification code")
		return
	case errors.Is(err, ErrAttemptsExceeded):
		writeError(w, http.StatusTooManyRequests, "too many attempts, request a new code")
		return
	case err != nil:
		s.logger.Error("code consume failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "verification failed")
		return
	}

	if err := s.store.MarkVerified(r.Context(), email); err != nil {
		s.logger.Error("mark verified failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "verification failed")
		return
	}

	s.logger.Info("account verified", slog.String("email", email))
	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

type resendPayload struct {
	Email string `json:"email"`
}

func (s *Server) handleResend(w http.ResponseWriter, r *http.Request) {
	var payload resendPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(payload.Email))
	account, err := s.store.GetAccount(r.Context(), email)
	if errors.Is(err, ErrAccountNotFound) {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}
	if err != nil {
		s.logger.Error("account lookup failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "resend failed")
		return
	}
	if account.Verified {
		writeError(w, http.StatusConflict, "account already verified")
		return
	}

	if !s.resendLimiter(email).Allow() {
		s.collector.recordResendThrottled()
		writeError(w, http.StatusTooManyRequests, "please wait before requesting another code")
		return
	}

	if err := s.issueCode(r, email); err != nil {
		s.logger.Error("code issue failed", slog.String("email", email), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "resend failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	var payload SelectionRecord
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if !conout.Occasion(payload.Occasion).Valid() {
		writeError(w, http.StatusBadRequest, "unknown occasion")
		return
	}
	if payload.Budget < conout.MinBudget || payload.Budget > conout.MaxBudget ||
		math.Mod(payload.Budget, conout.BudgetStep) != 0 {
		writeError(w, http.StatusBadRequest, "budget must be between 10 and 200 in steps of 10")
		return
	}
	if strings.TrimSpace(payload.PreferredLocation) == "" {
		writeError(w, http.StatusBadRequest, "preferred location is required")
		return
	}

	payload.SubmittedAt = time.Now().Unix()
	if err := s.store.SaveSelection(r.Context(), &payload); err != nil {
		s.logger.Error("selection save failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "selection failed")
		return
	}

	s.logger.Info("selection accepted",
		slog.String("occasion", payload.Occasion),
		slog.Float64("budget", payload.Budget),
	)
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	selection, err := s.store.GetSelection(r.Context())
	if errors.Is(err, ErrSelectionNotFound) {
		writeError(w, http.StatusNotFound, "no event selection on file")
		return
	}
	if err != nil {
		s.logger.Error("selection load failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "match lookup failed")
		return
	}

	match := generateMatch(selection, time.Now())
	s.collector.recordMatchServed()
	s.logger.Info("match served",
		slog.String("match_id", match.ID),
		slog.String("event", match.EventName),
	)
	writeJSON(w, http.StatusOK, match)
}

// issueCode generates, stores, and logs a fresh verification code. The log
// line stands in for email delivery.
func (s *Server) issueCode(r *http.Request, email string) error {
	code, err := internal.NewVerificationCode(codeDigits)
	if err != nil {
		return err
	}
	if err := s.store.SaveCode(r.Context(), email, internal.HashCode(code), s.config.CodeTTL); err != nil {
		return err
	}
	s.collector.recordCodeIssued()
	s.logger.Info("verification code issued",
		slog.String("email", email),
		slog.String("code", code),
	)
	return nil
}

func (s *Server) resendLimiter(email string) *rate.Limiter {
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()

	limiter, ok := s.limiters[email]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(s.config.ResendInterval), 1)
		s.limiters[email] = limiter
	}
	return limiter
}

func isInstitutionalEmail(email string) bool {
	if strings.ContainsAny(email, " \t\n") {
		return false
	}
	at := strings.IndexByte(email, '@')
	if at <= 0 || at != strings.LastIndexByte(email, '@') {
		return false
	}
	host := email[at+1:]
	return strings.HasSuffix(host, ".edu") && len(host) > len(".edu")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
