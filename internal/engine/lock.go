package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker grants single-flight ownership of a video id.
type Locker interface {
	TryLock(ctx context.Context, videoID string) (bool, error)
	Unlock(ctx context.Context, videoID string) error
}

// NewLocker returns a redis-backed locker when redisURL is reachable and an
// in-process one otherwise.
func NewLocker(redisURL string, ttl time.Duration) Locker {
	if redisURL == "" {
		return NewMemoryLocker()
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		slog.Warn("lock: invalid redis URL, using in-memory locks", slog.Any("error", err))
		return NewMemoryLocker()
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("lock: redis unreachable, using in-memory locks", slog.Any("error", err))
		rdb.Close()
		return NewMemoryLocker()
	}
	slog.Info("lock: redis connected", slog.String("addr", opts.Addr))
	return NewRedisLocker(rdb, ttl)
}

// MemoryLocker holds locks for the lifetime of the process.
type MemoryLocker struct {
	held sync.Map // videoID → struct{}
}

func NewMemoryLocker() *MemoryLocker { return &MemoryLocker{} }

func (l *MemoryLocker) TryLock(_ context.Context, videoID string) (bool, error) {
	_, loaded := l.held.LoadOrStore(videoID, struct{}{})
	return !loaded, nil
}

func (l *MemoryLocker) Unlock(_ context.Context, videoID string) error {
	l.held.Delete(videoID)
	return nil
}

// releaseScript deletes the lock only if this process still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker shares locks across replicas via SET NX with a TTL, so a
// crashed holder releases automatically.
type RedisLocker struct {
	rdb    *redis.Client
	ttl    time.Duration
	tokens sync.Map // videoID → owner token
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisLocker{rdb: rdb, ttl: ttl}
}

func lockKey(videoID string) string { return "snippets:lock:" + videoID }

func (l *RedisLocker) TryLock(ctx context.Context, videoID string) (bool, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, lockKey(videoID), token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("lock %s: %w", videoID, err)
	}
	if ok {
		l.tokens.Store(videoID, token)
	}
	return ok, nil
}

func (l *RedisLocker) Unlock(ctx context.Context, videoID string) error {
	v, ok := l.tokens.LoadAndDelete(videoID)
	if !ok {
		return nil
	}
	if err := releaseScript.Run(ctx, l.rdb, []string{lockKey(videoID)}, v.(string)).Err(); err != nil {
		return fmt.Errorf("unlock %s: %w", videoID, err)
	}
	return nil
}
