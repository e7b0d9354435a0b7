package donors

import (
	"context"
	"errors"
	"time"

	"hst-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Locker serializes resolution for one identity key. The returned func
// releases the lock and is safe to call once.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

var ErrResolveBusy = apperr.New(apperr.KindLockTimeout, "Another submission for this donor is in progress, please retry")

const resolveLockPrefix = "lock:donor-resolve:"

// Compare-and-delete so an expired holder never releases a newer holder's lock.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is an advisory lock keyed by normalized email or phone.
type RedisLocker struct {
	Rdb *redis.Client
	// TTL bounds how long a crashed holder can block others.
	TTL time.Duration
	// Wait bounds how long Lock polls before giving up with ErrResolveBusy.
	Wait time.Duration
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	ttl := l.TTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	wait := l.Wait
	if wait <= 0 {
		wait = 3 * time.Second
	}

	redisKey := resolveLockPrefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(wait)
	backoff := 20 * time.Millisecond

	for {
		ok, err := l.Rdb.SetNX(ctx, redisKey, token, ttl).Result()
		if err != nil {
			return nil, apperr.Persistence(err)
		}
		if ok {
			return func() {
				if err := unlockScript.Run(context.Background(), l.Rdb, []string{redisKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
					log.Warn().Err(err).Str("key", redisKey).Msg("Donor resolve lock release failed")
				}
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrResolveBusy
		}
		select {
		case <-ctx.Done():
			return nil, ErrResolveBusy
		case <-time.After(backoff):
		}
		if backoff < 200*time.Millisecond {
			backoff *= 2
		}
	}
}
