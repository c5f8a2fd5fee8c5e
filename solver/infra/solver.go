package infra

import (
	"context"
	"fmt"
	"math"
	"time"

	"solver-gateway/solver/domain"
)

// Point é uma amostra (x, y) do conjunto de treino.
type Point struct {
	X, Y float64
}

// GradientSolver ajusta y = w*x + b por gradiente descendente em lote.
//
// Params.RN é a taxa de aprendizado e Params.Delta a tolerância: a execução
// converge quando a melhora da perda entre duas épocas fica abaixo de Delta.
type GradientSolver struct {
	Data      []Point
	MaxEpochs int
	// StepDelay espaça as épocas para que o polling enxergue a saída parcial.
	StepDelay time.Duration
}

type SolverOption func(*GradientSolver)

func WithMaxEpochs(n int) SolverOption {
	return func(s *GradientSolver) { s.MaxEpochs = n }
}

func WithStepDelay(d time.Duration) SolverOption {
	return func(s *GradientSolver) { s.StepDelay = d }
}

func WithData(data []Point) SolverOption {
	return func(s *GradientSolver) { s.Data = data }
}

func NewGradientSolver(opts ...SolverOption) *GradientSolver {
	s := &GradientSolver{
		Data:      SampleData(50),
		MaxEpochs: 500,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SampleData gera n pontos de y = 3x + 2 com ruído determinístico, x em [0, 1].
func SampleData(n int) []Point {
	if n < 2 {
		n = 2
	}
	pts := make([]Point, n)
	for i := range pts {
		x := float64(i) / float64(n-1)
		pts[i] = Point{X: x, Y: 3*x + 2 + 0.1*math.Sin(7*float64(i))}
	}
	return pts
}

func (s *GradientSolver) Solve(ctx context.Context, p domain.Params, emit domain.EmitFunc) (domain.Result, error) {
	if len(s.Data) == 0 {
		return domain.Result{}, fmt.Errorf("solver: empty data set")
	}
	maxEpochs := s.MaxEpochs
	if maxEpochs <= 0 {
		maxEpochs = 500
	}

	var res domain.Result
	prev := s.loss(res.W, res.B)

	for epoch := 1; epoch <= maxEpochs; epoch++ {
		if s.StepDelay > 0 {
			t := time.NewTimer(s.StepDelay)
			select {
			case <-ctx.Done():
				t.Stop()
				return res, ctx.Err()
			case <-t.C:
			}
		} else if err := ctx.Err(); err != nil {
			return res, err
		}

		dw, db := s.gradient(res.W, res.B)
		res.W -= p.RN * dw
		res.B -= p.RN * db
		res.Iterations = epoch

		loss := s.loss(res.W, res.B)
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			// Loss fica com o último valor finito.
			res.Loss = prev
			_ = emit(fmt.Sprintf("epoch=%d diverged", epoch))
			return res, domain.ErrDiverged
		}
		res.Loss = loss
		if err := emit(fmt.Sprintf("epoch=%d loss=%.6f", epoch, loss)); err != nil {
			return res, fmt.Errorf("emit: %w", err)
		}

		if math.Abs(prev-loss) < p.Delta {
			res.Converged = true
			break
		}
		prev = loss
	}

	if err := emit(fmt.Sprintf("result w=%.4f b=%.4f loss=%.6f", res.W, res.B, res.Loss)); err != nil {
		return res, fmt.Errorf("emit: %w", err)
	}
	return res, nil
}

// loss é o erro quadrático médio.
func (s *GradientSolver) loss(w, b float64) float64 {
	var sum float64
	for _, pt := range s.Data {
		d := w*pt.X + b - pt.Y
		sum += d * d
	}
	return sum / float64(len(s.Data))
}

func (s *GradientSolver) gradient(w, b float64) (dw, db float64) {
	n := float64(len(s.Data))
	for _, pt := range s.Data {
		d := w*pt.X + b - pt.Y
		dw += 2 * d * pt.X / n
		db += 2 * d / n
	}
	return dw, db
}
