package domain

import "context"

// SlotPool representa um recurso com capacidade finita (execuções simultâneas
// do solver, requisições de submit em andamento).
//
// Acquire bloqueia até conseguir uma vaga ou até o ctx encerrar. Chamar o
// release mais de uma vez não devolve vagas extras.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
	// InUse e Cap alimentam o endpoint de estatísticas.
	InUse() int
	Cap() int
}
