package solver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"solver-gateway/solver/application"
	"solver-gateway/solver/domain"
	"solver-gateway/solver/infra"

	"go.uber.org/zap"
)

type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
	// RetryAfter vai no header da resposta de recusa; 0 vira 1s.
	RetryAfter time.Duration
	Logger     *zap.Logger
}

// Concurrency limita quantos submits ficam em andamento ao mesmo tempo.
// Max <= 0 desliga o limite. Cliente que desiste enquanto espera a vaga não
// recebe resposta nem conta como recusa.
func Concurrency(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	retryAfter := strconv.Itoa(int((opts.RetryAfter + time.Second - 1) / time.Second))

	svc := application.ConcurrencyService{
		Pool:           infra.NewChanPool(opts.Max),
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, err := svc.Acquire(r.Context())
			switch {
			case err == nil:
			case errors.Is(err, domain.ErrBusy):
				inUse, capacity := svc.Usage()
				opts.Logger.Warn("submit rejected: no free slot",
					zap.String("path", r.URL.Path),
					zap.Int("in_use", inUse),
					zap.Int("capacity", capacity),
				)
				w.Header().Set("Retry-After", retryAfter)
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			default:
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
