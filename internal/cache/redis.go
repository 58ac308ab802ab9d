package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/onnwee/newsbias/internal/tracing"
)

// DefaultKeyPrefix namespaces snapshot keys in Redis.
const DefaultKeyPrefix = "newsbias:snapshot:"

// RedisStore keeps snapshots in Redis as CBOR blobs with a TTL.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	logger  *slog.Logger
	metrics *Metrics
}

// NewRedisStore creates a RedisStore. ttl <= 0 selects DefaultTTL.
func NewRedisStore(client *redis.Client, ttl time.Duration, logger *slog.Logger, metrics *Metrics) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{
		client:  client,
		prefix:  DefaultKeyPrefix,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
	}
}

// NewRedisClient parses a redis:// URL and returns a client.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, key string) (snap *Snapshot, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, tracing.DBSystemRedis, "snapshots", tracing.DBOperationGet)
	defer func() {
		if errors.Is(err, ErrMiss) {
			endSpan(nil)
			return
		}
		endSpan(err)
	}()

	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.observe(OpGet, OutcomeMiss)
		return nil, ErrMiss
	}
	if err != nil {
		r.observe(OpGet, OutcomeError)
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	snap, err = Decode(data)
	if err != nil {
		r.logger.WarnContext(ctx, "discarding unreadable snapshot",
			slog.String("key", key),
			slog.String("error", err.Error()))
		r.observe(OpGet, OutcomeError)
		return nil, ErrMiss
	}
	r.observe(OpGet, OutcomeHit)
	return snap, nil
}

// Put implements Store.
func (r *RedisStore) Put(ctx context.Context, key string, s *Snapshot) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, tracing.DBSystemRedis, "snapshots", tracing.DBOperationSet)
	defer func() { endSpan(err) }()

	data, err := Encode(s)
	if err != nil {
		r.observe(OpPut, OutcomeError)
		return err
	}
	if err := r.client.Set(ctx, r.prefix+key, data, r.ttl).Err(); err != nil {
		r.observe(OpPut, OutcomeError)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	r.observe(OpPut, OutcomeStored)
	return nil
}

func (r *RedisStore) observe(op, outcome string) {
	if r.metrics != nil {
		r.metrics.Observe(op, outcome)
	}
}
