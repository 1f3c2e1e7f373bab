package guard

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces attempt keys inside a shared Redis instance.
const redisKeyPrefix = "quizcraft:signup:attempts:"

// RedisStore is an AttemptStore backed by Redis sorted sets, one set per key
// with attempt timestamps as scores. It lets multiple instances share the
// sliding window. Keys expire on their own, so Prune is a no-op here.
type RedisStore struct {
	client *redis.Client
	window time.Duration
	seq    atomic.Uint64
}

// NewRedisStore creates a Redis-backed attempt store. window is used to set
// key expirations; entries older than the window are trimmed on read.
func NewRedisStore(client *redis.Client, window time.Duration) *RedisStore {
	return &RedisStore{client: client, window: window}
}

// Append records one attempt under the key. The member carries a sequence
// suffix so two attempts in the same nanosecond remain distinct set members.
func (s *RedisStore) Append(ctx context.Context, key string, at time.Time) error {
	member := strconv.FormatInt(at.UnixNano(), 10) + "-" + strconv.FormatUint(s.seq.Add(1), 10)
	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, redisKeyPrefix+key, redis.Z{
		Score:  float64(at.UnixNano()),
		Member: member,
	})
	// Twice the window so a key always outlives the attempts it counts.
	pipe.Expire(ctx, redisKeyPrefix+key, 2*s.window)
	_, err := pipe.Exec(ctx)
	return err
}

// Window counts attempts at or after since and reports the oldest of them.
// Entries that fell out of the window are trimmed as a side effect.
func (s *RedisStore) Window(ctx context.Context, key string, since time.Time) (int, time.Time, bool, error) {
	rkey := redisKeyPrefix + key
	min := strconv.FormatInt(since.UnixNano(), 10)

	if err := s.client.ZRemRangeByScore(ctx, rkey, "-inf", "("+min).Err(); err != nil {
		return 0, time.Time{}, false, err
	}

	count, err := s.client.ZCount(ctx, rkey, min, "+inf").Result()
	if err != nil {
		return 0, time.Time{}, false, err
	}
	if count == 0 {
		return 0, time.Time{}, false, nil
	}

	oldestMembers, err := s.client.ZRangeWithScores(ctx, rkey, 0, 0).Result()
	if err != nil {
		return 0, time.Time{}, false, err
	}
	if len(oldestMembers) == 0 {
		return int(count), time.Time{}, false, nil
	}
	oldest := time.Unix(0, int64(oldestMembers[0].Score))
	return int(count), oldest, true, nil
}

// Prune is a no-op: Redis keys expire via TTL and stale entries are trimmed
// on every Window call.
func (s *RedisStore) Prune(context.Context, time.Time) error {
	return nil
}
