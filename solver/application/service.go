package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"solver-gateway/solver/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("solver service closed")

// ServiceConfig agrupa as dependências do Service.
type ServiceConfig struct {
	Jobs     domain.JobStore
	Solver   domain.Solver
	Slots    ConcurrencyService
	Recorder domain.RunRecorder
	Stats    domain.StatsStore
	Logger   *zap.Logger

	// FinishTimeout limita as escritas finais (Finish, histórico) de uma execução.
	FinishTimeout time.Duration
}

type activeRun struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

// Service orquestra as execuções: uma por sessão, cada uma numa goroutine
// própria, com a saída escrita no JobStore para ser drenada pelo polling.
type Service struct {
	cfg   ServiceConfig
	newID func() string
	now   func() time.Time

	submitMu sync.Mutex

	mu     sync.Mutex
	runs   map[domain.SessionKey]*activeRun
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.FinishTimeout <= 0 {
		cfg.FinishTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		cfg:    cfg,
		newID:  uuid.NewString,
		now:    time.Now,
		runs:   make(map[domain.SessionKey]*activeRun),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Submit inicia uma execução para a sessão. Uma execução anterior da mesma
// sessão é cancelada e sua saída descartada antes da nova começar.
func (s *Service) Submit(ctx context.Context, session domain.SessionKey, p domain.Params) (domain.Job, error) {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.Job{}, ErrClosed
	}
	prev := s.runs[session]
	s.mu.Unlock()

	// A execução anterior devolve a vaga antes da nova pedir uma.
	if prev != nil {
		prev.cancel()
		<-prev.done
	}

	release, err := s.cfg.Slots.Acquire(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrBusy) {
			s.record(ctx, session, domain.EventRejected)
		}
		return domain.Job{}, err
	}

	job := domain.Job{
		ID:        s.newID(),
		Session:   session,
		Params:    p,
		Status:    domain.JobRunning,
		StartedAt: s.now(),
	}
	if err := s.cfg.Jobs.Begin(ctx, job); err != nil {
		release()
		return domain.Job{}, fmt.Errorf("begin job: %w", err)
	}

	runCtx, cancel := context.WithCancel(s.ctx)
	r := &activeRun{id: job.ID, cancel: cancel, done: make(chan struct{})}

	// closed e wg.Add sob o mesmo lock que Close usa: depois que Close
	// marca closed nenhuma goroutine nova entra no WaitGroup.
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		release()
		_ = s.cfg.Jobs.Finish(context.WithoutCancel(ctx), session, domain.JobCancelled)
		return domain.Job{}, ErrClosed
	}
	s.runs[session] = r
	s.wg.Add(1)
	s.mu.Unlock()

	go s.execute(runCtx, r, job, release)

	s.record(ctx, session, domain.EventSubmitted)
	s.cfg.Logger.Info("solver run started",
		zap.String("job", job.ID),
		zap.String("session", string(session)),
		zap.Float64("rn", p.RN),
		zap.Float64("delta", p.Delta),
	)
	return job, nil
}

func (s *Service) execute(ctx context.Context, r *activeRun, job domain.Job, release func()) {
	defer s.wg.Done()
	defer close(r.done)
	defer release()
	defer r.cancel()

	emit := func(tok string) error {
		return s.cfg.Jobs.Append(ctx, job.Session, tok)
	}
	res, err := s.cfg.Solver.Solve(ctx, job.Params, emit)

	// As escritas finais acontecem mesmo com o ctx da execução cancelado.
	finCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.FinishTimeout)
	defer cancel()

	status, kind := domain.JobDone, domain.EventCompleted
	var errText string
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		status, kind = domain.JobCancelled, domain.EventCancelled
		errText = "cancelled"
		_ = s.cfg.Jobs.Append(finCtx, job.Session, "cancelled")
	default:
		status, kind = domain.JobFailed, domain.EventFailed
		errText = err.Error()
		if !errors.Is(err, domain.ErrDiverged) {
			_ = s.cfg.Jobs.Append(finCtx, job.Session, "failed: "+errText)
		}
	}

	if ferr := s.cfg.Jobs.Finish(finCtx, job.Session, status); ferr != nil {
		s.cfg.Logger.Error("finish job", zap.String("job", job.ID), zap.Error(ferr))
	}

	s.mu.Lock()
	if s.runs[job.Session] == r {
		delete(s.runs, job.Session)
	}
	s.mu.Unlock()

	if s.cfg.Recorder != nil {
		rerr := s.cfg.Recorder.RecordRun(finCtx, domain.Run{
			ID:         job.ID,
			Session:    job.Session,
			RN:         job.Params.RN,
			Delta:      job.Params.Delta,
			Iterations: res.Iterations,
			Loss:       res.Loss,
			Converged:  res.Converged,
			Status:     status,
			Error:      errText,
			StartedAt:  job.StartedAt,
			FinishedAt: s.now(),
		})
		if rerr != nil {
			s.cfg.Logger.Error("record run", zap.String("job", job.ID), zap.Error(rerr))
		}
	}
	s.record(finCtx, job.Session, kind)

	s.cfg.Logger.Info("solver run finished",
		zap.String("job", job.ID),
		zap.String("status", string(status)),
		zap.Int("iterations", res.Iterations),
		zap.Float64("loss", res.Loss),
	)
}

// Status drena a saída pendente da sessão.
//
// Tokens pendentes saem antes do sentinela: ["over"] só aparece quando a
// execução terminou e não resta nada a entregar (ou quando não há execução).
// Uma execução ainda rodando sem saída nova devolve uma lista vazia.
func (s *Service) Status(ctx context.Context, session domain.SessionKey) ([]string, error) {
	toks, finished, err := s.cfg.Jobs.Drain(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("drain: %w", err)
	}
	s.record(ctx, session, domain.EventPolled)

	if len(toks) > 0 {
		return toks, nil
	}
	if finished {
		return []string{domain.SentinelOver}, nil
	}
	return []string{}, nil
}

// Cancel interrompe a execução da sessão; false quando não há nenhuma.
func (s *Service) Cancel(session domain.SessionKey) bool {
	s.mu.Lock()
	r := s.runs[session]
	s.mu.Unlock()
	if r == nil {
		return false
	}
	r.cancel()
	return true
}

// Running informa quantas execuções estão ativas.
func (s *Service) Running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}

// Slots informa vagas do solver ocupadas e a capacidade total.
func (s *Service) Slots() (inUse, capacity int) {
	return s.cfg.Slots.Usage()
}

func (s *Service) Runs(ctx context.Context, limit int) ([]domain.Run, error) {
	if s.cfg.Recorder == nil {
		return nil, nil
	}
	return s.cfg.Recorder.RecentRuns(ctx, limit)
}

// Close cancela todas as execuções e espera as goroutines terminarem.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) record(ctx context.Context, session domain.SessionKey, kind domain.EventKind) {
	if s.cfg.Stats == nil {
		return
	}
	if err := s.cfg.Stats.Record(ctx, domain.StatsEvent{Session: session, Kind: kind, At: s.now()}); err != nil {
		s.cfg.Logger.Warn("stats record failed", zap.String("kind", string(kind)), zap.Error(err))
	}
}
