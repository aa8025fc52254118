// Command conout-devserver runs the reference backend for the conout
// workflow.
//
// With CONOUT_REDIS_ADDR unset it starts an embedded miniredis, so no
// external infrastructure is needed:
//
//	go run ./cmd/conout-devserver
//
// Issued verification codes are written to the log in place of email
// delivery. Environment:
//
//	CONOUT_LISTEN_ADDR       listen address (default :8080)
//	CONOUT_REDIS_ADDR        redis address (default: embedded miniredis)
//	CONOUT_CODE_TTL          verification code lifetime (default 10m)
//	CONOUT_MAX_CODE_ATTEMPTS mismatches before a code is invalidated (default 5)
//	CONOUT_RESEND_INTERVAL   minimum spacing between resends (default 30s)
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/conout/conout-go/devserver"
)

type serverConfig struct {
	listenAddr      string
	redisAddr       string
	codeTTL         time.Duration
	maxCodeAttempts int
	resendInterval  time.Duration
}

func loadConfig() (serverConfig, error) {
	cfg := serverConfig{
		listenAddr:      ":8080",
		codeTTL:         10 * time.Minute,
		maxCodeAttempts: 5,
		resendInterval:  30 * time.Second,
	}

	if v := os.Getenv("CONOUT_LISTEN_ADDR"); v != "" {
		cfg.listenAddr = v
	}
	cfg.redisAddr = os.Getenv("CONOUT_REDIS_ADDR")

	if v := os.Getenv("CONOUT_CODE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("CONOUT_CODE_TTL: %w", err)
		}
		cfg.codeTTL = d
	}
	if v := os.Getenv("CONOUT_MAX_CODE_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("CONOUT_MAX_CODE_ATTEMPTS: invalid value %q", v)
		}
		cfg.maxCodeAttempts = n
	}
	if v := os.Getenv("CONOUT_RESEND_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("CONOUT_RESEND_INTERVAL: %w", err)
		}
		cfg.resendInterval = d
	}

	return cfg, nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("config load failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	redisAddr := cfg.redisAddr
	if redisAddr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			logger.Error("embedded redis start failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer mr.Close()
		redisAddr = mr.Addr()
		logger.Info("using embedded redis", slog.String("addr", redisAddr))
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	registry := prometheus.NewRegistry()
	store := devserver.NewStore(rdb, "")
	server := devserver.NewServer(store, logger, devserver.NewCollector(registry), devserver.Config{
		CodeTTL:         cfg.codeTTL,
		MaxCodeAttempts: cfg.maxCodeAttempts,
		ResendInterval:  cfg.resendInterval,
	})

	router := chi.NewRouter()
	router.Mount("/", server.Router())
	router.Method(http.MethodGet, "/metrics", devserver.MetricsHandler(registry))

	httpServer := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("devserver listening", slog.String("addr", cfg.listenAddr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", slog.String("error", err.Error()))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}
}
