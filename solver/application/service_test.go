package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"solver-gateway/solver/domain"
	"solver-gateway/solver/infra"

	"github.com/google/go-cmp/cmp"
)

// scriptedSolver emite tokens fixos e depois espera gate (ou o ctx).
type scriptedSolver struct {
	tokens []string
	gate   chan struct{}
	err    error
}

func (s *scriptedSolver) Solve(ctx context.Context, p domain.Params, emit domain.EmitFunc) (domain.Result, error) {
	for i, tok := range s.tokens {
		if err := emit(tok); err != nil {
			return domain.Result{Iterations: i}, err
		}
	}
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return domain.Result{Iterations: len(s.tokens)}, ctx.Err()
		}
	}
	return domain.Result{Iterations: len(s.tokens), Loss: 0.5, Converged: s.err == nil}, s.err
}

type memRecorder struct {
	runs chan domain.Run
}

func (m *memRecorder) RecordRun(_ context.Context, run domain.Run) error {
	m.runs <- run
	return nil
}
func (m *memRecorder) RecentRuns(context.Context, int) ([]domain.Run, error) { return nil, nil }
func (m *memRecorder) Close() error                                          { return nil }

// closeWatchRecorder separa as execuções gravadas antes e depois de Close.
type closeWatchRecorder struct {
	mu            sync.Mutex
	closed        bool
	before, after int
}

func (r *closeWatchRecorder) RecordRun(context.Context, domain.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		r.after++
	} else {
		r.before++
	}
	return nil
}
func (r *closeWatchRecorder) RecentRuns(context.Context, int) ([]domain.Run, error) { return nil, nil }
func (r *closeWatchRecorder) Close() error                                          { return nil }

func (r *closeWatchRecorder) markClosed() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

func (r *closeWatchRecorder) counts() (before, after int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.before, r.after
}

func newTestService(t *testing.T, solver domain.Solver) (*Service, *memRecorder, *infra.MemoryStatsStore) {
	t.Helper()
	rec := &memRecorder{runs: make(chan domain.Run, 8)}
	stats := infra.NewMemoryStatsStore()
	svc := NewService(ServiceConfig{
		Jobs:     infra.NewMemoryJobStore(),
		Solver:   solver,
		Slots:    ConcurrencyService{Pool: infra.NewChanPool(2), AcquireTimeout: 20 * time.Millisecond},
		Recorder: rec,
		Stats:    stats,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = svc.Close(ctx)
	})
	return svc, rec, stats
}

func waitRun(t *testing.T, rec *memRecorder) domain.Run {
	t.Helper()
	select {
	case run := <-rec.runs:
		return run
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting run to finish")
		return domain.Run{}
	}
}

// drainUntil chama Status até receber uma resposta não vazia.
func drainUntil(t *testing.T, svc *Service, session domain.SessionKey) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, err := svc.Status(context.Background(), session)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if len(got) > 0 {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting output for session %s", session)
	return nil
}

func closeService(t *testing.T, svc *Service) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := svc.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestService_StatusWithoutJobReturnsOver(t *testing.T) {
	svc, _, _ := newTestService(t, &scriptedSolver{})

	got, err := svc.Status(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{domain.SentinelOver}, got); diff != "" {
		t.Fatalf("unexpected status (-want +got):\n%s", diff)
	}
}

func TestService_DeliversTokensThenOver(t *testing.T) {
	svc, rec, stats := newTestService(t, &scriptedSolver{tokens: []string{"epoch=1", "epoch=2", "result"}})
	ctx := context.Background()

	job, err := svc.Submit(ctx, "s", domain.Params{RN: 0.1, Delta: 0.01})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	run := waitRun(t, rec)
	if run.ID != job.ID || run.Status != domain.JobDone || run.Iterations != 3 {
		t.Fatalf("unexpected recorded run %+v", run)
	}

	got, _ := svc.Status(ctx, "s")
	if diff := cmp.Diff([]string{"epoch=1", "epoch=2", "result"}, got); diff != "" {
		t.Fatalf("unexpected tokens (-want +got):\n%s", diff)
	}
	got, _ = svc.Status(ctx, "s")
	if diff := cmp.Diff([]string{domain.SentinelOver}, got); diff != "" {
		t.Fatalf("expected over after drain (-want +got):\n%s", diff)
	}

	closeService(t, svc)
	total := stats.Total()
	if total[domain.EventSubmitted] != 1 || total[domain.EventCompleted] != 1 || total[domain.EventPolled] != 2 {
		t.Fatalf("unexpected stats %v", total)
	}
}

func TestService_RunningWithoutOutputReturnsEmpty(t *testing.T) {
	gate := make(chan struct{})
	svc, rec, _ := newTestService(t, &scriptedSolver{gate: gate})
	ctx := context.Background()

	if _, err := svc.Submit(ctx, "s", domain.Params{}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	got, err := svc.Status(ctx, "s")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice while running, got %#v", got)
	}

	close(gate)
	waitRun(t, rec)
	got, _ = svc.Status(ctx, "s")
	if len(got) != 1 || got[0] != domain.SentinelOver {
		t.Fatalf("expected over, got %v", got)
	}
}

func TestService_CancelMarksRunCancelled(t *testing.T) {
	svc, rec, _ := newTestService(t, &scriptedSolver{tokens: []string{"epoch=1"}, gate: make(chan struct{})})
	ctx := context.Background()

	if svc.Cancel("s") {
		t.Fatalf("expected Cancel=false without run")
	}
	if _, err := svc.Submit(ctx, "s", domain.Params{}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !svc.Cancel("s") {
		t.Fatalf("expected Cancel=true with active run")
	}

	run := waitRun(t, rec)
	if run.Status != domain.JobCancelled {
		t.Fatalf("expected cancelled run, got %+v", run)
	}
	got, _ := svc.Status(ctx, "s")
	if diff := cmp.Diff([]string{"epoch=1", "cancelled"}, got); diff != "" {
		t.Fatalf("unexpected tokens (-want +got):\n%s", diff)
	}
	if svc.Running() != 0 {
		t.Fatalf("expected no running jobs, got %d", svc.Running())
	}
}

func TestService_ResubmitReplacesPreviousRun(t *testing.T) {
	svc, rec, _ := newTestService(t, &scriptedSolver{tokens: []string{"tok"}, gate: make(chan struct{})})
	ctx := context.Background()

	first, _ := svc.Submit(ctx, "s", domain.Params{RN: 1})
	second, err := svc.Submit(ctx, "s", domain.Params{RN: 2})
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}

	run := waitRun(t, rec)
	if run.ID != first.ID || run.Status != domain.JobCancelled {
		t.Fatalf("expected first run cancelled, got %+v", run)
	}

	got := drainUntil(t, svc, "s")
	if diff := cmp.Diff([]string{"tok"}, got); diff != "" {
		t.Fatalf("expected only the second run output (-want +got):\n%s", diff)
	}
	if !svc.Cancel("s") {
		t.Fatalf("expected second run %s to be active", second.ID)
	}
	waitRun(t, rec)
}

func TestService_FailedRunReportsError(t *testing.T) {
	svc, rec, stats := newTestService(t, &scriptedSolver{err: errors.New("boom")})
	ctx := context.Background()

	_, _ = svc.Submit(ctx, "s", domain.Params{})
	run := waitRun(t, rec)
	if run.Status != domain.JobFailed || run.Error != "boom" {
		t.Fatalf("unexpected run %+v", run)
	}
	got, _ := svc.Status(ctx, "s")
	if diff := cmp.Diff([]string{"failed: boom"}, got); diff != "" {
		t.Fatalf("unexpected tokens (-want +got):\n%s", diff)
	}
	closeService(t, svc)
	if stats.Total()[domain.EventFailed] != 1 {
		t.Fatalf("expected failed event, got %v", stats.Total())
	}
}

func TestService_BusyWhenNoSlot(t *testing.T) {
	svc, _, stats := newTestService(t, &scriptedSolver{gate: make(chan struct{})})
	ctx := context.Background()

	_, _ = svc.Submit(ctx, "a", domain.Params{})
	_, _ = svc.Submit(ctx, "b", domain.Params{})
	_, err := svc.Submit(ctx, "c", domain.Params{})
	if !errors.Is(err, domain.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if stats.Total()[domain.EventRejected] != 1 {
		t.Fatalf("expected rejected event, got %v", stats.Total())
	}
}

func TestService_CloseCancelsRunsAndRejectsSubmits(t *testing.T) {
	svc, rec, _ := newTestService(t, &scriptedSolver{gate: make(chan struct{})})
	ctx := context.Background()

	_, _ = svc.Submit(ctx, "s", domain.Params{})

	closeCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := svc.Close(closeCtx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if run := waitRun(t, rec); run.Status != domain.JobCancelled {
		t.Fatalf("expected cancelled run on close, got %+v", run)
	}
	if _, err := svc.Submit(ctx, "s", domain.Params{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestService_ResubmitWithFullPoolReusesSlot(t *testing.T) {
	rec := &memRecorder{runs: make(chan domain.Run, 8)}
	svc := NewService(ServiceConfig{
		Jobs:     infra.NewMemoryJobStore(),
		Solver:   &scriptedSolver{gate: make(chan struct{})},
		Slots:    ConcurrencyService{Pool: infra.NewChanPool(1), AcquireTimeout: 20 * time.Millisecond},
		Recorder: rec,
	})
	t.Cleanup(func() { closeService(t, svc) })
	ctx := context.Background()

	first, err := svc.Submit(ctx, "s", domain.Params{RN: 1})
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := svc.Submit(ctx, "s", domain.Params{RN: 2}); err != nil {
		t.Fatalf("resubmit on a full pool must reuse the session slot, got %v", err)
	}

	run := waitRun(t, rec)
	if run.ID != first.ID || run.Status != domain.JobCancelled {
		t.Fatalf("expected first run cancelled, got %+v", run)
	}
	if inUse, capacity := svc.Slots(); inUse != 1 || capacity != 1 {
		t.Fatalf("expected 1/1 slots, got %d/%d", inUse, capacity)
	}
	if _, err := svc.Submit(ctx, "other", domain.Params{}); !errors.Is(err, domain.ErrBusy) {
		t.Fatalf("expected ErrBusy for another session, got %v", err)
	}
}

// Submit concorrente com Close: ou a execução entra antes e Close espera por
// ela, ou Submit recebe ErrClosed. Nenhuma goroutine sobra depois de Close.
func TestService_SubmitRacingClose(t *testing.T) {
	ctx := context.Background()
	for i := range 50 {
		rec := &closeWatchRecorder{}
		svc := NewService(ServiceConfig{
			Jobs:     infra.NewMemoryJobStore(),
			Solver:   &scriptedSolver{gate: make(chan struct{})},
			Slots:    ConcurrencyService{Pool: infra.NewChanPool(1)},
			Recorder: rec,
		})

		start := make(chan struct{})
		errc := make(chan error, 1)
		go func() {
			<-start
			_, err := svc.Submit(ctx, "s", domain.Params{})
			errc <- err
		}()
		close(start)

		closeService(t, svc)
		rec.markClosed()
		err := <-errc
		// segundo Close espera qualquer goroutine que tenha escapado do primeiro
		closeService(t, svc)

		before, after := rec.counts()
		switch {
		case err == nil:
			if before != 1 {
				t.Fatalf("iteration %d: accepted run not awaited by Close (before=%d)", i, before)
			}
		case errors.Is(err, ErrClosed):
			if before != 0 {
				t.Fatalf("iteration %d: rejected submit still ran (before=%d)", i, before)
			}
		default:
			t.Fatalf("iteration %d: unexpected submit error %v", i, err)
		}
		if after != 0 {
			t.Fatalf("iteration %d: %d run(s) finished after Close returned", i, after)
		}
	}
}
