package client

import (
	"context"

	"solver-gateway/solver/domain"
)

// Backend é o que o Form precisa do servidor.
type Backend interface {
	Submit(ctx context.Context, rn, delta string) (string, error)
	Status(ctx context.Context) ([]string, error)
}

// Form junta os campos, o botão e a saída.
type Form struct {
	Backend Backend
	Output  Display
	Button  *Button
	// Poller é o modelo do polling; Status é preenchido com Backend.Status.
	Poller Poller
}

// Solve é o clique no botão.
//
// Entrada inválida só escreve a mensagem fixa. Entrada válida desabilita o
// botão, submete e reabilita ao fim do submit, com ou sem erro. Com
// sucesso a saída vira "Solving:" e o polling roda até o sentinela.
func (f *Form) Solve(ctx context.Context, rn, delta string) error {
	if !domain.Valid(rn, delta) {
		f.Output.SetText(domain.InvalidInputMessage)
		return domain.ErrInvalidInput
	}

	if err := f.submit(ctx, rn, delta); err != nil {
		f.Output.SetText("error: " + err.Error())
		return err
	}

	f.Output.SetText(domain.SolvingPrefix)
	p := f.Poller
	p.Status = f.Backend.Status
	if err := p.Run(ctx, f.Output); err != nil {
		f.Output.Append("error: " + err.Error())
		return err
	}
	return nil
}

func (f *Form) submit(ctx context.Context, rn, delta string) error {
	if f.Button != nil {
		f.Button.Disable()
		defer f.Button.Enable()
	}
	_, err := f.Backend.Submit(ctx, rn, delta)
	return err
}
