package domain

import "time"

// Limiter decide se uma ação é permitida agora.
// A camada de infra usa golang.org/x/time/rate.
type Limiter interface {
	Allow() bool
}

// LimiterStore obtém um limiter por sessão.
type LimiterStore interface {
	Get(SessionKey) Limiter
}

type Decision struct {
	Allowed bool
	// RetryAfter é o valor devolvido em Retry-After quando bloquear.
	RetryAfter time.Duration
}
