package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"solver-gateway/solver/domain"

	"github.com/redis/go-redis/v9"
)

// RedisJobStore guarda a saída de cada sessão numa lista Redis e o estado do
// job num hash. Ambas as chaves expiram após ttl sem atividade, então Sweep
// não tem trabalho a fazer.
type RedisJobStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

type RedisJobOption func(*RedisJobStore)

func WithJobsPrefix(prefix string) RedisJobOption {
	return func(s *RedisJobStore) {
		if p := strings.Trim(prefix, ":"); p != "" {
			s.prefix = p
		}
	}
}

func WithJobsTTL(d time.Duration) RedisJobOption {
	return func(s *RedisJobStore) { s.ttl = d }
}

func NewRedisJobStore(rdb *redis.Client, opts ...RedisJobOption) *RedisJobStore {
	s := &RedisJobStore{
		rdb:    rdb,
		prefix: "solver:jobs",
		ttl:    30 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisJobStore) outKey(session domain.SessionKey) string {
	return s.prefix + ":" + string(session) + ":out"
}

func (s *RedisJobStore) stateKey(session domain.SessionKey) string {
	return s.prefix + ":" + string(session) + ":state"
}

func (s *RedisJobStore) Begin(ctx context.Context, job domain.Job) error {
	out, state := s.outKey(job.Session), s.stateKey(job.Session)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, out, state)
		pipe.HSet(ctx, state, map[string]interface{}{
			"id":      job.ID,
			"status":  string(domain.JobRunning),
			"rn":      job.Params.RN,
			"delta":   job.Params.Delta,
			"started": job.StartedAt.UTC().Format(time.RFC3339Nano),
		})
		if s.ttl > 0 {
			pipe.Expire(ctx, state, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis begin job: %w", err)
	}
	return nil
}

func (s *RedisJobStore) exists(ctx context.Context, session domain.SessionKey) error {
	n, err := s.rdb.Exists(ctx, s.stateKey(session)).Result()
	if err != nil {
		return fmt.Errorf("redis job exists: %w", err)
	}
	if n == 0 {
		return domain.ErrNoJob
	}
	return nil
}

func (s *RedisJobStore) Append(ctx context.Context, session domain.SessionKey, tokens ...string) error {
	if len(tokens) == 0 {
		return nil
	}
	if err := s.exists(ctx, session); err != nil {
		return err
	}

	vals := make([]interface{}, len(tokens))
	for i, t := range tokens {
		vals[i] = t
	}
	out, state := s.outKey(session), s.stateKey(session)

	pipe := s.rdb.Pipeline()
	pipe.RPush(ctx, out, vals...)
	if s.ttl > 0 {
		pipe.Expire(ctx, out, s.ttl)
		pipe.Expire(ctx, state, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append: %w", err)
	}
	return nil
}

func (s *RedisJobStore) Finish(ctx context.Context, session domain.SessionKey, status domain.JobStatus) error {
	if err := s.exists(ctx, session); err != nil {
		return err
	}
	state := s.stateKey(session)

	pipe := s.rdb.Pipeline()
	pipe.HSet(ctx, state, "status", string(status))
	if s.ttl > 0 {
		pipe.Expire(ctx, state, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis finish: %w", err)
	}
	return nil
}

// Drain lê e apaga a lista numa transação MULTI, então nenhum token é
// entregue duas vezes mesmo com pollers concorrentes.
func (s *RedisJobStore) Drain(ctx context.Context, session domain.SessionKey) ([]string, bool, error) {
	out, state := s.outKey(session), s.stateKey(session)

	var lr *redis.StringSliceCmd
	var st *redis.MapStringStringCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		lr = pipe.LRange(ctx, out, 0, -1)
		pipe.Del(ctx, out)
		st = pipe.HGetAll(ctx, state)
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("redis drain: %w", err)
	}

	status := domain.JobStatus(st.Val()["status"])
	finished := status == "" || status.Finished()
	return lr.Val(), finished, nil
}

func (s *RedisJobStore) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}
