package application

import (
	"context"
	"time"

	"solver-gateway/solver/domain"
)

// ConcurrencyService aplica a política de vagas sem saber nada de HTTP. É
// usado para as execuções do solver e para os submits em andamento.
type ConcurrencyService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

// Acquire devolve o release da vaga obtida.
//
// Com AcquireTimeout > 0 a espera é limitada e o esgotamento vira
// domain.ErrBusy. Se o próprio ctx do chamador acabar, o erro é ctx.Err().
func (s ConcurrencyService) Acquire(ctx context.Context) (func(), error) {
	if s.Pool == nil {
		return func() {}, nil
	}

	acqCtx := ctx
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	release, ok := s.Pool.Acquire(acqCtx)
	if ok {
		return release, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, domain.ErrBusy
}

// Usage informa vagas ocupadas e capacidade; (0, 0) sem pool.
func (s ConcurrencyService) Usage() (inUse, capacity int) {
	if s.Pool == nil {
		return 0, 0
	}
	return s.Pool.InUse(), s.Pool.Cap()
}
