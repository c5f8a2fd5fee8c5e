package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"solver-gateway/solver/domain"

	"go.uber.org/zap"
)

const (
	DefaultPollInterval   = 1 * time.Second
	DefaultRequestTimeout = 5 * time.Second
	DefaultMaxFailures    = 3
	DefaultMaxBackoff     = 30 * time.Second
)

// StatusFunc busca os tokens pendentes; normalmente Client.Status.
type StatusFunc func(ctx context.Context) ([]string, error)

// Poller consulta o status a cada Interval até receber o sentinela.
//
// Falhas consecutivas aumentam a espera (backoff exponencial até
// MaxBackoff); ao atingir MaxFailures o erro é devolvido.
type Poller struct {
	Status         StatusFunc
	Interval       time.Duration
	RequestTimeout time.Duration
	MaxFailures    int
	MaxBackoff     time.Duration
	Logger         *zap.Logger
}

func (p Poller) withDefaults() Poller {
	if p.Interval <= 0 {
		p.Interval = DefaultPollInterval
	}
	if p.RequestTimeout <= 0 {
		p.RequestTimeout = DefaultRequestTimeout
	}
	if p.MaxFailures <= 0 {
		p.MaxFailures = DefaultMaxFailures
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = DefaultMaxBackoff
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	return p
}

// Run bloqueia até o sentinela (nil), o ctx acabar (ctx.Err()) ou o limite
// de falhas estourar. Respostas vazias não alteram o Display.
func (p Poller) Run(ctx context.Context, d Display) error {
	if p.Status == nil {
		return fmt.Errorf("poller: nil status func")
	}
	p = p.withDefaults()

	wait := p.Interval
	failures := 0
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		toks, err := p.poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failures++
			if failures >= p.MaxFailures {
				return fmt.Errorf("poll: %d consecutive failures: %w", failures, err)
			}
			wait = p.backoff(failures)
			p.Logger.Warn("poll failed, backing off",
				zap.Int("failures", failures),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
			timer.Reset(wait)
			continue
		}

		failures = 0
		if len(toks) > 0 && toks[0] == domain.SentinelOver {
			return nil
		}
		if len(toks) > 0 {
			d.Append(strings.Join(toks, " "))
		}
		timer.Reset(p.Interval)
	}
}

func (p Poller) poll(ctx context.Context) ([]string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, p.RequestTimeout)
	defer cancel()
	return p.Status(reqCtx)
}

func (p Poller) backoff(failures int) time.Duration {
	d := p.Interval
	for i := 0; i < failures && d < p.MaxBackoff; i++ {
		d *= 2
	}
	return min(d, p.MaxBackoff)
}
