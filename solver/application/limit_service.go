package application

import (
	"time"

	"solver-gateway/solver/domain"
)

// LimitService decide se uma sessão pode consultar o status agora.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type LimitService struct {
	Store      domain.LimiterStore
	RetryAfter time.Duration
}

func (s LimitService) Decide(session domain.SessionKey) domain.Decision {
	if s.Store == nil {
		return domain.Decision{Allowed: true}
	}
	if s.RetryAfter <= 0 {
		s.RetryAfter = 1 * time.Second
	}

	lim := s.Store.Get(session)
	if lim == nil || lim.Allow() {
		return domain.Decision{Allowed: true}
	}
	return domain.Decision{Allowed: false, RetryAfter: s.RetryAfter}
}
