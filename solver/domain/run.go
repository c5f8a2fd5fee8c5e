package domain

import (
	"context"
	"time"
)

// Run é uma linha do histórico de execuções.
type Run struct {
	ID         string     `json:"id"`
	Session    SessionKey `json:"session"`
	RN         float64    `json:"rn"`
	Delta      float64    `json:"delta"`
	Iterations int        `json:"iterations"`
	Loss       float64    `json:"loss"`
	Converged  bool       `json:"converged"`
	Status     JobStatus  `json:"status"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
}

// RunRecorder persiste o histórico (SQLite, noop).
type RunRecorder interface {
	RecordRun(ctx context.Context, run Run) error
	RecentRuns(ctx context.Context, limit int) ([]Run, error)
	Close() error
}
