package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldCount       = "count"
	fieldWindowStart = "window_start"
)

// RedisStore はRedisのハッシュにBucketを保持するStore。
// 複数プロセスで同じカウンタを参照したい場合に使う。読み取りと書き込みは別コマンドのため
// MemoryStoreと同様にアトミックではない。
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore はRedisStoreを生成する。
// ttlにはウィンドウ長を渡す。期限切れのキーは存在しない扱いとなり、新しいウィンドウが始まる。
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + key
}

// Get はキーに対応するBucketを返す。
func (s *RedisStore) Get(ctx context.Context, key string) (Bucket, bool, error) {
	vals, err := s.client.HGetAll(ctx, s.key(key)).Result()
	if err != nil {
		return Bucket{}, false, fmt.Errorf("redis hgetall: %w", err)
	}
	if len(vals) == 0 {
		return Bucket{}, false, nil
	}

	count, err := strconv.Atoi(vals[fieldCount])
	if err != nil {
		return Bucket{}, false, fmt.Errorf("invalid bucket count %q: %w", vals[fieldCount], err)
	}
	startNano, err := strconv.ParseInt(vals[fieldWindowStart], 10, 64)
	if err != nil {
		return Bucket{}, false, fmt.Errorf("invalid bucket window start %q: %w", vals[fieldWindowStart], err)
	}

	return Bucket{
		Count:       count,
		WindowStart: time.Unix(0, startNano),
	}, true, nil
}

// Put はキーに対応するBucketを上書きし、TTLを設定し直す。
func (s *RedisStore) Put(ctx context.Context, key string, b Bucket) error {
	k := s.key(key)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k,
			fieldCount, b.Count,
			fieldWindowStart, b.WindowStart.UnixNano(),
		)
		if s.ttl > 0 {
			pipe.PExpire(ctx, k, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis put bucket: %w", err)
	}
	return nil
}
