package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/chitfund/internal/audit"
	"github.com/mmynk/chitfund/internal/auth"
	"github.com/mmynk/chitfund/internal/config"
	"github.com/mmynk/chitfund/internal/engine"
	"github.com/mmynk/chitfund/internal/metrics"
	"github.com/mmynk/chitfund/internal/middleware"
	"github.com/mmynk/chitfund/internal/proofstore"
	"github.com/mmynk/chitfund/internal/service"
	"github.com/mmynk/chitfund/internal/storage/sqlite"
	"github.com/mmynk/chitfund/pkg/api"
	"github.com/mmynk/chitfund/pkg/logging"
)

func main() {
	configFile := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configFile, ".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required (set CHITFUND_AUTH_JWT_SECRET)")
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.Database.Path)

	proofs, err := newProofStore(ctx, cfg.Proofs)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(registry)

	dispatcher := audit.NewDispatcher(newAuditSink(cfg.Audit), cfg.Audit.BufferSize,
		audit.WithDropHook(recorder.AuditDropped))
	defer dispatcher.Close()

	eng := engine.New(store,
		engine.WithLocation(loc),
		engine.WithAuditSink(dispatcher),
		engine.WithMetrics(recorder),
		engine.WithDefaultCurrency(cfg.Fund.DefaultCurrency),
	)

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authenticator := auth.NewPasswordAuthenticator(store)

	mux := http.NewServeMux()

	// Logging sits inside auth so it sees the caller.
	fundPath, fundHandler := api.NewFundServiceHandler(
		service.NewFundService(eng, store, proofs, cfg.Proofs.MaxBytes),
		connect.WithInterceptors(
			middleware.MetricsInterceptor(recorder),
			middleware.RequireAuth(jwtManager),
			middleware.LoggingInterceptor(),
		),
	)
	mux.Handle(fundPath, fundHandler)

	authPath, authHandler := api.NewAuthServiceHandler(
		service.NewAuthService(authenticator, jwtManager, store),
		connect.WithInterceptors(
			middleware.MetricsInterceptor(recorder),
			middleware.OptionalAuth(jwtManager),
			middleware.LoggingInterceptor(),
		),
	)
	mux.Handle(authPath, authHandler)

	mux.Handle("/metrics", metrics.Handler(registry))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go eng.RunReconciler(ctx, cfg.Fund.ReconcileInterval)

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	handler := h2c.NewHandler(loggingMiddleware(corsMiddleware(mux)), &http2.Server{})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", addr, "timezone", loc.String())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newProofStore(ctx context.Context, cfg config.ProofsConfig) (proofstore.Store, error) {
	if cfg.Backend == "s3" {
		s3Store, err := proofstore.NewS3(ctx, proofstore.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			EndpointURL:     cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize s3 proof store: %w", err)
		}
		slog.Info("Proof storage initialized", "backend", "s3", "bucket", cfg.S3Bucket)
		return s3Store, nil
	}

	local, err := proofstore.NewLocal(cfg.LocalDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize local proof store: %w", err)
	}
	slog.Info("Proof storage initialized", "backend", "local", "dir", cfg.LocalDir)
	return local, nil
}

func newAuditSink(cfg config.AuditConfig) audit.Sink {
	if cfg.Backend == "kafka" {
		slog.Info("Audit events go to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
		return audit.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
	}
	return audit.NewLogSink(slog.Default())
}

// loggingMiddleware logs every HTTP request that is not an RPC; RPCs are
// logged by the Connect interceptor.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms, "+middleware.ErrorCodeHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
