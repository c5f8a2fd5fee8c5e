package domain

import (
	"context"
	"errors"
	"time"
)

// SentinelOver é o primeiro token de uma resposta de status quando a execução
// terminou e não há mais saída pendente. O poller para ao recebê-lo.
const SentinelOver = "over"

var (
	ErrBusy     = errors.New("no solver slot available")
	ErrNoJob    = errors.New("no job for session")
	ErrDiverged = errors.New("solver diverged")
)

// SessionKey identifica o dono de uma execução (cookie, header ou IP).
type SessionKey string

type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobDone      JobStatus = "done"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

func (s JobStatus) Finished() bool { return s != JobRunning }

type Job struct {
	ID        string     `json:"id"`
	Session   SessionKey `json:"session"`
	Params    Params     `json:"params"`
	Status    JobStatus  `json:"status"`
	StartedAt time.Time  `json:"started_at"`
}

// Result é o resumo de uma execução do solver.
type Result struct {
	Iterations int
	W, B       float64
	Loss       float64
	Converged  bool
}

// EmitFunc recebe cada token produzido pelo solver, na ordem.
type EmitFunc func(token string) error

// Solver executa até convergir, falhar ou o ctx encerrar.
type Solver interface {
	Solve(ctx context.Context, p Params, emit EmitFunc) (Result, error)
}

// JobStore guarda a saída incremental de cada sessão.
//
// Semântica: cada token anexado é entregue exatamente uma vez por Drain, na ordem
// de anexação. Begin descarta qualquer saída anterior da sessão.
type JobStore interface {
	Begin(ctx context.Context, job Job) error
	Append(ctx context.Context, session SessionKey, tokens ...string) error
	Finish(ctx context.Context, session SessionKey, status JobStatus) error
	// Drain remove e devolve os tokens pendentes. finished é true quando a
	// execução terminou ou quando não existe job para a sessão.
	Drain(ctx context.Context, session SessionKey) (tokens []string, finished bool, err error)
	// Sweep remove jobs terminados sem atividade desde cutoff.
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
}
