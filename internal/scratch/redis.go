package scratch

import (
	"context"
	"fmt"
	"time"

	"storefront-client/internal/util"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const redisOpTimeout = 2 * time.Second

// RedisStore keeps scratch blobs in Redis, for kiosk deployments where
// several client processes on one terminal share the guest snapshot.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr, password string, db int, prefix string) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{rdb: rdb, prefix: prefix, logger: util.GetLogger()}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) key(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}

// Get returns the blob stored under key. Failures surface as no data.
func (s *RedisStore) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	blob, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		s.logger.Warn("Scratch read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return blob, true
}

// Set stores the blob under key. Write failures are swallowed after logging.
func (s *RedisStore) Set(key string, blob []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := s.rdb.Set(ctx, s.key(key), blob, 0).Err(); err != nil {
		s.logger.Warn("Scratch write failed", zap.String("key", key), zap.Error(err))
	}
}

// Remove deletes the blob stored under key.
func (s *RedisStore) Remove(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		s.logger.Warn("Scratch delete failed", zap.String("key", key), zap.Error(err))
	}
}
