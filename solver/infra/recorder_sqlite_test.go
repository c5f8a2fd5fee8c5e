package infra

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"solver-gateway/solver/domain"
)

func TestSQLiteRecorder_RecordsAndListsRecentFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "runs.db")
	r, err := NewSQLiteRecorder(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	ctx := context.Background()
	base := time.Now().Truncate(time.Millisecond)
	runs := []domain.Run{
		{ID: "r1", Session: "s", RN: 0.1, Delta: 0.01, Iterations: 10, Loss: 0.5, Status: domain.JobDone, Converged: true, StartedAt: base, FinishedAt: base.Add(time.Second)},
		{ID: "r2", Session: "s", RN: 9, Delta: 0, Iterations: 3, Status: domain.JobFailed, Error: "solver diverged", StartedAt: base, FinishedAt: base.Add(2 * time.Second)},
	}
	for _, run := range runs {
		if err := r.RecordRun(ctx, run); err != nil {
			t.Fatalf("record %s: %v", run.ID, err)
		}
	}

	got, err := r.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(got))
	}
	if got[0].ID != "r2" || got[1].ID != "r1" {
		t.Fatalf("expected most recent first, got %s, %s", got[0].ID, got[1].ID)
	}
	if got[0].Error != "solver diverged" || got[0].Status != domain.JobFailed {
		t.Fatalf("unexpected failed run %+v", got[0])
	}
	if !got[1].Converged || got[1].Iterations != 10 || !got[1].FinishedAt.Equal(base.Add(time.Second)) {
		t.Fatalf("unexpected done run %+v", got[1])
	}

	limited, _ := r.RecentRuns(ctx, 1)
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}

func TestNoopRecorder(t *testing.T) {
	r := NewNoopRecorder()
	if err := r.RecordRun(context.Background(), domain.Run{ID: "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	runs, err := r.RecentRuns(context.Background(), 5)
	if err != nil || len(runs) != 0 {
		t.Fatalf("expected empty history, got %v %v", runs, err)
	}
}
