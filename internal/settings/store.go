package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Reader is the narrow contract over the platform settings table.
type Reader interface {
	GetSetting(ctx context.Context, key string) (string, error)
}

// ErrNotSet is returned when a key exists neither in cache nor storage.
var ErrNotSet = errors.New("setting not set")

// Store reads platform key/value settings through a short-lived redis
// cache. It replaces the process-global settings cache the platform used
// to carry: the TTL is explicit and invalidation is a real operation, not
// a process restart.
type Store struct {
	reader Reader
	redis  redis.Cmdable
	ttl    time.Duration
}

func NewStore(reader Reader, redisClient redis.Cmdable, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Store{reader: reader, redis: redisClient, ttl: ttl}
}

// Get returns the raw value for key, serving from cache when fresh.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if s.redis != nil {
		val, err := s.redis.Get(ctx, cacheKey(key)).Result()
		if err == nil {
			return val, nil
		}
		if err != redis.Nil {
			zap.L().Warn("settings cache read failed", zap.Error(err), zap.String("key", key))
		}
	}

	val, err := s.reader.GetSetting(ctx, key)
	if err != nil {
		return "", err
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, cacheKey(key), val, s.ttl).Err(); err != nil {
			zap.L().Warn("settings cache write failed", zap.Error(err), zap.String("key", key))
		}
	}
	return val, nil
}

// GetDecimal parses the setting as a decimal, returning fallback when the
// key is absent.
func (s *Store) GetDecimal(ctx context.Context, key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	val, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotSet) {
			return fallback, nil
		}
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, fmt.Errorf("setting %s is not a decimal: %w", key, err)
	}
	return d, nil
}

// Invalidate drops the cached value so the next Get re-reads storage.
func (s *Store) Invalidate(ctx context.Context, key string) error {
	if s.redis == nil {
		return nil
	}
	if err := s.redis.Del(ctx, cacheKey(key)).Err(); err != nil {
		return fmt.Errorf("invalidate setting %s: %w", key, err)
	}
	return nil
}

func cacheKey(key string) string {
	return "settings:" + key
}
