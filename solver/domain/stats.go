package domain

import (
	"context"
	"time"
)

type EventKind string

const (
	EventSubmitted EventKind = "submitted"
	EventRejected  EventKind = "rejected"
	EventPolled    EventKind = "polled"
	EventCompleted EventKind = "completed"
	EventFailed    EventKind = "failed"
	EventCancelled EventKind = "cancelled"
)

// StatsEvent é um evento do ciclo de vida de uma execução.
//
// Cuidado com cardinalidade: guardar Session sem controle pode explodir o
// número de chaves no Redis.
type StatsEvent struct {
	Session SessionKey
	Kind    EventKind
	At      time.Time
}

// Counters conta eventos por tipo.
type Counters map[EventKind]int64

// SlotUsage é a ocupação das vagas do solver.
type SlotUsage struct {
	InUse    int `json:"in_use"`
	Capacity int `json:"capacity"`
}

// StatsSnapshot é o corpo de GET /ui/stats.
type StatsSnapshot struct {
	Running       int       `json:"running"`
	Slots         SlotUsage `json:"slots"`
	Events        Counters  `json:"events"`
	SessionEvents Counters  `json:"session_events,omitempty"`
}

// StatsReader lê os contadores acumulados por um StatsStore.
type StatsReader interface {
	Snapshot(ctx context.Context) (Counters, error)
	SessionSnapshot(ctx context.Context, session SessionKey) (Counters, error)
}

// StatsStore é best-effort: erro é logado e nunca derruba a requisição.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
