package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solver-gateway/config"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "solver-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close(logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	logger.Info("solver server listening",
		zap.String("addr", cfg.ListenAddr),
		zap.String("jobs_backend", cfg.Jobs.Backend),
		zap.Bool("stats", cfg.Stats.Enabled),
		zap.String("history", cfg.History.SQLitePath),
	)
	logger.Info("poll rate limit",
		zap.Float64("rps", cfg.Poll.RateRPS),
		zap.Int("burst", cfg.Poll.RateBurst),
		zap.Bool("trust_xff", cfg.Session.TrustXFF),
	)
	logger.Info("concurrency",
		zap.Int("max_runs", cfg.Solver.MaxRuns),
		zap.Int("submit_max", cfg.Submit.ConcurrencyMax),
		zap.Duration("submit_timeout", cfg.Submit.ConcurrencyTimeout),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return a.janitor.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", zap.Error(err))
		}
		if err := a.service.Close(shutdownCtx); err != nil {
			logger.Warn("service close", zap.Error(err))
		}
		return nil
	})
	return g.Wait()
}
