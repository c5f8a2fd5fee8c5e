package infra

import (
	"context"
	"sync"

	"solver-gateway/solver/domain"
)

// MemoryStatsStore guarda os contadores no processo. É o store padrão quando
// stats.enabled está desligado: os números somem no restart, mas o
// endpoint de estatísticas continua respondendo.
type MemoryStatsStore struct {
	mu        sync.Mutex
	total     domain.Counters
	bySession map[domain.SessionKey]domain.Counters

	trackSessions bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackSessions(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackSessions = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		total:     make(domain.Counters),
		bySession: make(map[domain.SessionKey]domain.Counters),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total[ev.Kind]++
	if s.trackSessions && ev.Session != "" {
		c := s.bySession[ev.Session]
		if c == nil {
			c = make(domain.Counters)
			s.bySession[ev.Session] = c
		}
		c[ev.Kind]++
	}
	return nil
}

var (
	_ domain.StatsStore  = (*MemoryStatsStore)(nil)
	_ domain.StatsReader = (*MemoryStatsStore)(nil)
)

func (s *MemoryStatsStore) Snapshot(context.Context) (domain.Counters, error) {
	return s.Total(), nil
}

// SessionSnapshot é vazio quando o rastreio por sessão está desligado.
func (s *MemoryStatsStore) SessionSnapshot(_ context.Context, session domain.SessionKey) (domain.Counters, error) {
	return s.BySession(session), nil
}

func (s *MemoryStatsStore) Total() domain.Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(domain.Counters, len(s.total))
	for k, v := range s.total {
		out[k] = v
	}
	return out
}

func (s *MemoryStatsStore) BySession(session domain.SessionKey) domain.Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(domain.Counters)
	for k, v := range s.bySession[session] {
		out[k] = v
	}
	return out
}
