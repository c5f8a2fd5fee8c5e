package infra

import (
	"context"
	"sync"

	"solver-gateway/solver/domain"
)

// ChanPool é um semáforo baseado em channel. Cada vaga tem um release
// próprio; releases repetidos são ignorados.
type ChanPool struct {
	sem chan struct{}
}

func NewChanPool(max int) *ChanPool {
	if max < 1 {
		max = 1
	}
	return &ChanPool{sem: make(chan struct{}, max)}
}

var _ domain.SlotPool = (*ChanPool)(nil)

func (p *ChanPool) Acquire(ctx context.Context) (func(), bool) {
	// vaga livre ganha de um ctx já encerrado só se o select sortear; a
	// checagem explícita deixa o resultado determinístico
	if ctx.Err() != nil {
		return nil, false
	}
	select {
	case p.sem <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-p.sem }) }, true
	case <-ctx.Done():
		return nil, false
	}
}

func (p *ChanPool) InUse() int { return len(p.sem) }
func (p *ChanPool) Cap() int   { return cap(p.sem) }
