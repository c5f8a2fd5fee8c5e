package infra

import (
	"context"

	"solver-gateway/solver/domain"
)

// NoopRecorder é usado quando o histórico não está configurado.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(context.Context, domain.Run) error { return nil }
func (n *NoopRecorder) RecentRuns(context.Context, int) ([]domain.Run, error) {
	return nil, nil
}
func (n *NoopRecorder) Close() error { return nil }
