package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"solver-gateway/config"
	"solver-gateway/solver/domain"

	"go.uber.org/zap"
)

func TestBuildApp_MemoryBackendWithSQLiteHistory(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.History.SQLitePath = filepath.Join(t.TempDir(), "runs.db")
	cfg.Solver.MaxEpochs = 3
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	a, err := buildApp(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("buildApp: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = a.service.Close(ctx)
		a.close(zap.NewNop())
	})

	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected healthz 200, got %d", w.Code)
	}

	form := url.Values{"rn": {"0.1"}, "delta": {"0"}}
	r := httptest.NewRequest(http.MethodPost, "http://example/ui/solve", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("X-Solver-Session", "t1")
	w = httptest.NewRecorder()
	a.handler.ServeHTTP(w, r)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		runs, err := a.service.Runs(context.Background(), 10)
		if err != nil {
			t.Fatalf("runs: %v", err)
		}
		if len(runs) == 1 {
			if runs[0].Iterations != 3 || runs[0].Session != "t1" {
				t.Fatalf("unexpected run %+v", runs[0])
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting run in history")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// sem stats.enabled os contadores ficam em memória e seguem expostos
	w = httptest.NewRecorder()
	a.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/ui/stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected stats 200, got %d", w.Code)
	}
	var snap domain.StatsSnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if snap.Events[domain.EventSubmitted] != 1 || snap.Slots.Capacity != cfg.Solver.MaxRuns {
		t.Fatalf("unexpected stats %+v", snap)
	}
}

func TestBuildApp_PollLimiterCanBeDisabled(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		cfg, err := config.Load(filepath.Join(t.TempDir(), "none.yaml"))
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		cfg.Poll.RateEnabled = &enabled
		cfg.Poll.RateRPS = 0.01
		cfg.Poll.RateBurst = 1
		if err := cfg.Validate(); err != nil {
			t.Fatalf("validate: %v", err)
		}
		a, err := buildApp(context.Background(), cfg, zap.NewNop())
		if err != nil {
			t.Fatalf("buildApp: %v", err)
		}

		limited := false
		for range 3 {
			r := httptest.NewRequest(http.MethodGet, "http://example/ui/solve", nil)
			r.Header.Set("X-Solver-Session", "poller")
			w := httptest.NewRecorder()
			a.handler.ServeHTTP(w, r)
			if w.Code == http.StatusTooManyRequests {
				limited = true
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = a.service.Close(ctx)
		cancel()
		a.close(zap.NewNop())

		if limited != enabled {
			t.Fatalf("rate_enabled=%v: got limited=%v", enabled, limited)
		}
	}
}

func TestBuildApp_RedisUnreachable(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.Jobs.Backend = config.BackendRedis
	cfg.Redis.Addr = "127.0.0.1:1"

	if _, err := buildApp(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatalf("expected redis ping error")
	}
}

func TestNewLogger_RejectsUnknownLevel(t *testing.T) {
	if _, err := newLogger("loud"); err == nil {
		t.Fatalf("expected error")
	}
	l, err := newLogger("debug")
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	if !l.Core().Enabled(zap.DebugLevel) {
		t.Fatalf("expected debug enabled")
	}
}
