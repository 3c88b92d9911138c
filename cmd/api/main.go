package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/minibank/minibank/internal/audit"
	"github.com/minibank/minibank/internal/config"
	"github.com/minibank/minibank/internal/infra"
	"github.com/minibank/minibank/internal/ledger"
	"github.com/minibank/minibank/internal/logging"
	"github.com/minibank/minibank/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.AppName)

	ctx := context.Background()

	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		db, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.AppName)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = infra.NewRedisClient(ctx, cfg.RedisURL, cfg.AppName)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	}

	journal := audit.NewJournal(logger, cfg.AuditBuffer)
	sink, err := auditSink(ctx, db, logger)
	if err != nil {
		logger.Error("prepare audit sink", "error", err)
		os.Exit(1)
	}
	exportCtx, stopExport := context.WithCancel(ctx)
	exportDone := make(chan struct{})
	go func() {
		defer close(exportDone)
		audit.NewExporter(journal, sink, logger).Run(exportCtx)
	}()

	led := ledger.New(ledger.WithRecorder(journal))

	srv, err := server.New(cfg, led, journal, db, cache, logger)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Address(), "env", cfg.AppEnv)
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		stopExport()
		<-exportDone
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	stopExport()
	<-exportDone

	logger.Info("server exited cleanly")
}

// auditSink exports to Postgres when a database is configured and to the
// logger otherwise.
func auditSink(ctx context.Context, db *pgxpool.Pool, logger *slog.Logger) (audit.Sink, error) {
	if db == nil {
		return audit.NewLoggerSink(logger), nil
	}
	sink := audit.NewPostgresSink(db)
	if err := sink.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return sink, nil
}
