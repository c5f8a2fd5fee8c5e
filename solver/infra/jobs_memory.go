package infra

import (
	"context"
	"sync"
	"time"

	"solver-gateway/solver/domain"
)

type memoryJob struct {
	job     domain.Job
	pending []string
	touched time.Time
}

// MemoryJobStore é uma implementação simples em memória.
// Útil para testes e para uma instância única do servidor.
type MemoryJobStore struct {
	mu   sync.Mutex
	jobs map[domain.SessionKey]*memoryJob
	now  func() time.Time
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		jobs: make(map[domain.SessionKey]*memoryJob),
		now:  time.Now,
	}
}

func (s *MemoryJobStore) Begin(_ context.Context, job domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job.Status = domain.JobRunning
	s.jobs[job.Session] = &memoryJob{job: job, touched: s.now()}
	return nil
}

func (s *MemoryJobStore) Append(_ context.Context, session domain.SessionKey, tokens ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.jobs[session]
	if !ok {
		return domain.ErrNoJob
	}
	ent.pending = append(ent.pending, tokens...)
	ent.touched = s.now()
	return nil
}

func (s *MemoryJobStore) Finish(_ context.Context, session domain.SessionKey, status domain.JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.jobs[session]
	if !ok {
		return domain.ErrNoJob
	}
	ent.job.Status = status
	ent.touched = s.now()
	return nil
}

func (s *MemoryJobStore) Drain(_ context.Context, session domain.SessionKey) ([]string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.jobs[session]
	if !ok {
		return nil, true, nil
	}
	out := ent.pending
	ent.pending = nil
	ent.touched = s.now()
	return out, ent.job.Status.Finished(), nil
}

// Sweep remove jobs terminados e parados desde cutoff. Jobs em execução ficam.
func (s *MemoryJobStore) Sweep(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k, ent := range s.jobs {
		if ent.job.Status.Finished() && ent.touched.Before(cutoff) {
			delete(s.jobs, k)
			n++
		}
	}
	return n, nil
}
