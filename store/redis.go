package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stoicbot/types"
)

// RedisStore keeps the counter in a plain key and run records in one list
// per calendar day. The counter CAS uses WATCH so two finalizers racing on
// the same value cannot both advance it.
type RedisStore struct {
	client     *redis.Client
	counterKey string
	runsPrefix string
}

// RedisConfig configures the Redis connection and key namespace.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Namespace prefixes all keys; defaults to "stoicbot".
	Namespace string
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	ns := cfg.Namespace
	if ns == "" {
		ns = "stoicbot"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{
		client:     client,
		counterKey: ns + ":post_count",
		runsPrefix: ns + ":runs:",
	}, nil
}

func (r *RedisStore) ReadCounter(ctx context.Context) (int, error) {
	n, err := r.client.Get(ctx, r.counterKey).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read counter: %w", err)
	}
	return n, nil
}

func (r *RedisStore) WriteCounterIfUnchanged(ctx context.Context, old, next int) error {
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, r.counterKey).Int()
		if err == redis.Nil {
			cur = 0
		} else if err != nil {
			return err
		}
		if cur != old {
			return fmt.Errorf("%w: have %d, expected %d", ErrCounterConflict, cur, old)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.counterKey, next, 0)
			return nil
		})
		return err
	}, r.counterKey)
	if err == redis.TxFailedErr {
		return fmt.Errorf("%w: concurrent update", ErrCounterConflict)
	}
	return err
}

func (r *RedisStore) AppendRun(ctx context.Context, rec types.RunRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	key := r.runsPrefix + DayKey(rec.StartTime)
	if err := r.client.RPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("append run record: %w", err)
	}
	return nil
}

func (r *RedisStore) RunsForDay(ctx context.Context, day time.Time) ([]types.RunRecord, error) {
	key := r.runsPrefix + DayKey(day)
	items, err := r.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read run log: %w", err)
	}
	runs := make([]types.RunRecord, 0, len(items))
	for _, item := range items {
		var rec types.RunRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("parse run record: %w", err)
		}
		runs = append(runs, rec)
	}
	return runs, nil
}

// Close releases the underlying connection pool.
func (r *RedisStore) Close() error { return r.client.Close() }
