package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// resolveScript replaces an open round's snapshot in one step.
// Returns 1 when stored, 0 when the key is missing, -1 when already resolved.
var resolveScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur then
	return 0
end
if cjson.decode(cur)['phase'] == ARGV[3] then
	return -1
end
local ttl = tonumber(ARGV[2])
if ttl > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ttl)
else
	redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

type RedisSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSessionStore(rdb *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb, ttl: ttl}
}

func (s *RedisSessionStore) key(id string) string {
	return fmt.Sprintf("round:%s:snapshot", id)
}

func (s *RedisSessionStore) Save(ctx context.Context, snap SessionSnapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(snap.ID), b, s.ttl).Err()
}

func (s *RedisSessionStore) Load(ctx context.Context, id string) (SessionSnapshot, bool, error) {
	val, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return SessionSnapshot{}, false, nil
	}
	if err != nil {
		return SessionSnapshot{}, false, err
	}

	var snap SessionSnapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return SessionSnapshot{}, false, err
	}
	return snap, true, nil
}

func (s *RedisSessionStore) Resolve(ctx context.Context, snap SessionSnapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	n, err := resolveScript.Run(ctx, s.rdb,
		[]string{s.key(snap.ID)},
		b, s.ttl.Milliseconds(), string(PhaseResolved),
	).Int()
	if err != nil {
		return err
	}
	switch n {
	case 1:
		return nil
	case 0:
		return ErrNotFound
	default:
		return ErrResolved
	}
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, s.key(id)).Err()
}
