package infra

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"solver-gateway/solver/domain"

	"github.com/redis/go-redis/v9"
)

type RedisStatsStore struct {
	rdb *redis.Client

	prefix string
	// ttl aplica apenas em chaves de série temporal / por sessão.
	// total é cumulativo e não expira.
	ttl time.Duration

	bucket string // "minute" (padrão) ou "none"

	trackSessions bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackSessions(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackSessions = track }
}

func NewRedisStatsStore(rdb *redis.Client, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "solver:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := string(ev.Kind)

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	if s.bucket == "minute" {
		bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
		pipe.HIncrBy(ctx, bucketKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, bucketKey, s.ttl)
		}
	}

	if s.trackSessions {
		if k := strings.TrimSpace(string(ev.Session)); k != "" {
			sessionKey := s.prefix + ":session:" + k
			pipe.HIncrBy(ctx, sessionKey, field, 1)
			if s.ttl > 0 {
				pipe.Expire(ctx, sessionKey, s.ttl)
			}
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}

var (
	_ domain.StatsStore  = (*RedisStatsStore)(nil)
	_ domain.StatsReader = (*RedisStatsStore)(nil)
)

func (s *RedisStatsStore) Snapshot(ctx context.Context) (domain.Counters, error) {
	return s.readHash(ctx, s.prefix+":total")
}

func (s *RedisStatsStore) SessionSnapshot(ctx context.Context, session domain.SessionKey) (domain.Counters, error) {
	k := strings.TrimSpace(string(session))
	if !s.trackSessions || k == "" {
		return domain.Counters{}, nil
	}
	return s.readHash(ctx, s.prefix+":session:"+k)
}

func (s *RedisStatsStore) readHash(ctx context.Context, key string) (domain.Counters, error) {
	out := domain.Counters{}
	if s == nil || s.rdb == nil {
		return out, nil
	}
	fields, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("read stats %s: %w", key, err)
	}
	for field, raw := range fields {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("read stats %s: field %s: %w", key, field, err)
		}
		out[domain.EventKind(field)] = n
	}
	return out, nil
}
