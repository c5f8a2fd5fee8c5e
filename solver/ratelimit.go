package solver

import (
	"net/http"
	"time"

	"solver-gateway/solver/application"
	"solver-gateway/solver/domain"

	"go.uber.org/zap"
)

type RateLimitOptions struct {
	Store               domain.LimiterStore
	Stats               domain.StatsStore
	Logger              *zap.Logger
	KeyFn               KeyFunc
	RejectStatus        int
	RetryAfter          time.Duration
	AddRateLimitHeaders bool
}

type rateInfo interface {
	RPS() float64
	Burst() int
}

// RateLimit limita requisições por sessão com token bucket.
// Sem Store o middleware não faz nada.
func RateLimit(opts RateLimitOptions) func(next http.Handler) http.Handler {
	if opts.Store == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.KeyFn == nil {
		opts.KeyFn = SessionKeyFunc(SessionHeader, false)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	svc := application.LimitService{
		Store:      opts.Store,
		RetryAfter: opts.RetryAfter,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)

			if opts.AddRateLimitHeaders {
				w.Header().Set("X-RateLimit-Key", key)
				if ri, ok := opts.Store.(rateInfo); ok {
					w.Header().Set("X-RateLimit-RPS", formatFloat(ri.RPS()))
					w.Header().Set("X-RateLimit-Burst", formatInt(ri.Burst()))
				}
			}

			dec := svc.Decide(domain.SessionKey(key))
			if !dec.Allowed {
				if opts.Stats != nil {
					ev := domain.StatsEvent{Session: domain.SessionKey(key), Kind: domain.EventRejected, At: time.Now()}
					if err := opts.Stats.Record(r.Context(), ev); err != nil {
						opts.Logger.Warn("stats record failed", zap.Error(err))
					}
				}
				w.Header().Set("Retry-After", formatInt(int(dec.RetryAfter.Seconds())))
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
