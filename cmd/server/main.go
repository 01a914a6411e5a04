package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mindwell-screening/internal/config"
	"mindwell-screening/internal/core"
	"mindwell-screening/internal/db"
	httpserver "mindwell-screening/internal/http"
	"mindwell-screening/internal/llm"
	"mindwell-screening/internal/logging"
	"mindwell-screening/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.MustNewMetrics(reg)

	// Backends are built once and shared by every request.
	backends, err := llm.BuildBackends(ctx, cfg.Backends, cfg.Credentials())
	if err != nil {
		return err
	}
	extractor := core.NewExtractor(backends,
		core.WithBackendTimeout(cfg.BackendTimeout),
		core.WithLogger(logger.Named("extractor")),
		core.WithMetrics(m),
	)

	var (
		store    httpserver.ScreeningStore
		notifier httpserver.AlertNotifier
	)
	if cfg.DatabaseURL != "" {
		conn, err := db.Open(ctx, cfg.DatabaseURL, 5*time.Second)
		if err != nil {
			return err
		}
		defer func(conn *sql.DB) { _ = conn.Close() }(conn)
		if err := db.Migrate(ctx, conn); err != nil {
			return err
		}
		store = db.NewRepository(conn)
		notifier = db.NewNotifier(conn, cfg.NotifyChannel)
	} else {
		logger.Warn("DATABASE_URL not set; screenings will not be recorded")
	}

	srv := httpserver.NewServer(extractor, store, notifier, logger.Named("http"))
	srv.Source = cfg.Source
	srv.AlertThreshold = cfg.AlertThreshold
	srv.Metrics = m
	srv.MetricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	// Worst case a request walks every backend to its timeout.
	writeTimeout := time.Duration(len(backends))*cfg.BackendTimeout + 10*time.Second
	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(cfg.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", httpSrv.Addr),
			zap.Strings("backends", extractor.Backends()),
			zap.Bool("persistence", store != nil),
		)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
