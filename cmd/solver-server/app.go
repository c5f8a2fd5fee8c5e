package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"solver-gateway/config"
	"solver-gateway/solver"
	"solver-gateway/solver/application"
	"solver-gateway/solver/domain"
	"solver-gateway/solver/infra"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// app junta os componentes montados a partir da Config.
type app struct {
	handler  http.Handler
	service  *application.Service
	janitor  *infra.Janitor
	recorder domain.RunRecorder
	rdb      *redis.Client
}

func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.close(logger)
		}
	}()

	if cfg.UsesRedis() {
		a.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := a.rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			return nil, fmt.Errorf("redis ping error: %w", err)
		}
	}

	var jobs domain.JobStore
	switch cfg.Jobs.Backend {
	case config.BackendRedis:
		jobs = infra.NewRedisJobStore(a.rdb,
			infra.WithJobsPrefix(cfg.Jobs.Prefix),
			infra.WithJobsTTL(cfg.Jobs.TTL),
		)
	default:
		jobs = infra.NewMemoryJobStore()
	}

	// sem Redis os contadores ficam no processo
	var stats interface {
		domain.StatsStore
		domain.StatsReader
	}
	if cfg.Stats.Enabled {
		stats = infra.NewRedisStatsStore(a.rdb,
			infra.WithStatsPrefix(cfg.Stats.Prefix),
			infra.WithStatsTTL(cfg.Stats.TTL),
			infra.WithStatsBucket(cfg.Stats.Bucket),
			infra.WithStatsTrackSessions(cfg.Stats.TrackSessions),
		)
	} else {
		stats = infra.NewMemoryStatsStore(infra.WithTrackSessions(cfg.Stats.TrackSessions))
	}

	if cfg.History.SQLitePath != "" {
		rec, err := infra.NewSQLiteRecorder(cfg.History.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		a.recorder = rec
	} else {
		a.recorder = infra.NewNoopRecorder()
	}

	a.service = application.NewService(application.ServiceConfig{
		Jobs: jobs,
		Solver: infra.NewGradientSolver(
			infra.WithData(infra.SampleData(cfg.Solver.SampleSize)),
			infra.WithMaxEpochs(cfg.Solver.MaxEpochs),
			infra.WithStepDelay(cfg.Solver.StepDelay),
		),
		Slots: application.ConcurrencyService{
			Pool:           infra.NewChanPool(cfg.Solver.MaxRuns),
			AcquireTimeout: cfg.Solver.AcquireTimeout,
		},
		Recorder: a.recorder,
		Stats:    stats,
		Logger:   logger.Named("service"),
	})

	var limiter *infra.LimiterStore
	if cfg.RateLimitEnabled() {
		limiter = infra.NewLimiterStore(cfg.Poll.RateRPS, cfg.Poll.RateBurst, infra.WithIdleTTL(cfg.Poll.IdleTTL))
	}

	a.janitor = infra.NewJanitor(ctx, logger.Named("janitor"))
	if limiter != nil {
		err := a.janitor.Register("limiter-cleanup", "@every 1m", func(context.Context) error {
			if n := limiter.Cleanup(); n > 0 {
				logger.Debug("idle limiters removed", zap.Int("count", n))
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	err := a.janitor.Register("jobs-sweep", cfg.Jobs.SweepCron, func(ctx context.Context) error {
		n, err := jobs.Sweep(ctx, time.Now().Add(-cfg.Jobs.TTL))
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Debug("finished jobs swept", zap.Int("count", n))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	opts := solver.Options{
		Service:             a.service,
		Logger:              logger.Named("http"),
		Stats:               stats,
		StatsReader:         stats,
		SessionHeader:       cfg.Session.Header,
		TrustXForwardedFor:  cfg.Session.TrustXFF,
		CookieSecure:        cfg.Session.CookieSecure,
		CookieMaxAge:        cfg.Session.CookieMaxAge,
		RetryAfter:          cfg.Poll.RetryAfter,
		AddRateLimitHeaders: cfg.Poll.AddHeaders,
		SubmitMax:           cfg.Submit.ConcurrencyMax,
		SubmitTimeout:       cfg.Submit.ConcurrencyTimeout,
		PollInterval:        cfg.Poll.Interval,
	}
	if limiter != nil {
		opts.PollLimiter = limiter
	}
	a.handler, err = solver.NewHandler(opts)
	if err != nil {
		return nil, err
	}

	ok = true
	return a, nil
}

func (a *app) close(logger *zap.Logger) {
	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			logger.Warn("close recorder", zap.Error(err))
		}
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
}
