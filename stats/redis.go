package stats

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps counts in Redis hashes, one per strategy
// ("<prefix>:<strategy>") with fields "<candidate>|<kind>". With a bucket
// duration set, per-bucket hashes ("<prefix>:<strategy>:<unix bucket>") are
// also written and expire after the TTL.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
	bucket time.Duration
	ttl    time.Duration
}

// RedisOption configures a [RedisStore].
type RedisOption func(*RedisStore)

// WithPrefix sets the key prefix. Default "failover:stats".
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = strings.Trim(prefix, ":") }
}

// WithBuckets enables time-bucketed counters of width bucket kept for ttl.
func WithBuckets(bucket, ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.bucket = bucket
		s.ttl = ttl
	}
}

// NewRedisStore creates a recorder writing to rdb.
func NewRedisStore(rdb redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{rdb: rdb, prefix: "failover:stats"}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Record increments the counters for ev in a single pipeline.
func (s *RedisStore) Record(ctx context.Context, ev Event) error {
	field := ev.Candidate + "|" + string(ev.Kind)

	pipe := s.rdb.TxPipeline()
	pipe.HIncrBy(ctx, s.totalKey(ev.Strategy), field, 1)

	if s.bucket > 0 {
		at := ev.At
		if at.IsZero() {
			at = time.Now()
		}

		key := s.totalKey(ev.Strategy) + ":" + strconv.FormatInt(at.Truncate(s.bucket).Unix(), 10)
		pipe.HIncrBy(ctx, key, field, 1)
		pipe.Expire(ctx, key, s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("stats: redis record: %w", err)
	}

	return nil
}

// Snapshot reads the running totals for strategy.
func (s *RedisStore) Snapshot(ctx context.Context, strategy string) (Counts, error) {
	fields, err := s.rdb.HGetAll(ctx, s.totalKey(strategy)).Result()
	if err != nil {
		return nil, fmt.Errorf("stats: redis snapshot: %w", err)
	}

	return parseFields(fields)
}

func (s *RedisStore) totalKey(strategy string) string {
	return s.prefix + ":" + strategy
}

// parseFields turns "<candidate>|<kind>" -> "<n>" hash fields into Counts.
// Candidates are URLs and may contain '|' only before the last one.
func parseFields(fields map[string]string) (Counts, error) {
	out := make(Counts)

	for field, raw := range fields {
		sep := strings.LastIndexByte(field, '|')
		if sep < 0 {
			return nil, fmt.Errorf("stats: malformed field %q", field)
		}

		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("stats: field %q: %w", field, err)
		}

		candidate, kind := field[:sep], Kind(field[sep+1:])

		byKind, ok := out[candidate]
		if !ok {
			byKind = make(map[Kind]int64)
			out[candidate] = byKind
		}

		byKind[kind] = n
	}

	return out, nil
}
