// Package store keeps the most recent committed fix in Redis so other
// processes can read it without subscribing to a stream.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"navic-ng/internal/gps"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	Key      string
	// TTL expires the stored fix when nothing new arrives. Zero keeps it.
	TTL time.Duration
	// Timeout bounds each Redis round trip.
	Timeout time.Duration
}

type kv interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

type RedisStore struct {
	cfg    Config
	rdb    kv
	closer func() error
}

func NewRedis(cfg Config) (*RedisStore, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, fmt.Errorf("redis: addr is required")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	s := newRedisStore(cfg, rdb)
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	s.closer = rdb.Close
	return s, nil
}

func newRedisStore(cfg Config, rdb kv) *RedisStore {
	if cfg.Key == "" {
		cfg.Key = "navic:fix:last"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &RedisStore{cfg: cfg, rdb: rdb}
}

// PublishFix implements gps.Sink. Snapshots without a valid position are not
// stored so a receiver losing its fix does not erase the last known one.
func (s *RedisStore) PublishFix(snap gps.Snapshot) error {
	if !snap.Valid {
		return nil
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal fix: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()
	if err := s.rdb.Set(ctx, s.cfg.Key, b, s.cfg.TTL).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", s.cfg.Key, err)
	}
	return nil
}

// LastFix returns the stored fix. ok is false when the key is absent or
// expired.
func (s *RedisStore) LastFix(ctx context.Context) (snap gps.Snapshot, ok bool, err error) {
	val, err := s.rdb.Get(ctx, s.cfg.Key).Result()
	if errors.Is(err, redis.Nil) {
		return gps.Snapshot{}, false, nil
	}
	if err != nil {
		return gps.Snapshot{}, false, fmt.Errorf("redis GET %s: %w", s.cfg.Key, err)
	}
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		return gps.Snapshot{}, false, fmt.Errorf("redis: decode %s: %w", s.cfg.Key, err)
	}
	return snap, true, nil
}

func (s *RedisStore) Key() string { return s.cfg.Key }

func (s *RedisStore) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	return s.closer()
}
