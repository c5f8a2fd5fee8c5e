package infra

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task é uma tarefa periódica de manutenção.
type Task func(ctx context.Context) error

type janitorTask struct {
	name string
	spec string
	fn   Task
}

// Janitor agenda tarefas de limpeza (limiters ociosos, jobs terminados) com cron.
type Janitor struct {
	cron   *cron.Cron
	ctx    context.Context
	logger *zap.Logger
	tasks  []janitorTask
}

func NewJanitor(ctx context.Context, logger *zap.Logger) *Janitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Janitor{
		cron:   cron.New(),
		ctx:    ctx,
		logger: logger,
	}
}

// Register aceita specs de 5 campos ou descritores como "@every 2m".
func (j *Janitor) Register(name, spec string, fn Task) error {
	t := janitorTask{name: name, spec: spec, fn: fn}
	if _, err := j.cron.AddFunc(spec, func() { j.run(t) }); err != nil {
		return fmt.Errorf("register %s task: %w", name, err)
	}
	j.tasks = append(j.tasks, t)
	return nil
}

func (j *Janitor) run(t janitorTask) {
	if err := t.fn(j.ctx); err != nil {
		j.logger.Warn("janitor task failed", zap.String("task", t.name), zap.Error(err))
		return
	}
	j.logger.Debug("janitor task done", zap.String("task", t.name))
}

// RunAll executa todas as tarefas agora, em ordem de registro.
func (j *Janitor) RunAll() {
	for _, t := range j.tasks {
		j.run(t)
	}
}

// Run inicia o agendador e bloqueia até ctx encerrar; espera tarefas em andamento.
func (j *Janitor) Run(ctx context.Context) error {
	j.cron.Start()
	j.logger.Info("janitor started", zap.Int("tasks", len(j.tasks)))

	<-ctx.Done()
	<-j.cron.Stop().Done()
	j.logger.Info("janitor stopped")
	return nil
}
