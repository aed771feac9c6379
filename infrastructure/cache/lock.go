package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"crosspost/domain/repository"
)

// releaseScript deletes the lock key only while it still holds our nonce. A
// holder that outlived its TTL must not delete the next holder's lock.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// LockStore implements TTL-bounded locks on redis SETNX. Each acquire stores a
// random nonce as the lock value; release is compare-and-del on that nonce.
// The TTL releases a crashed holder's lock, so waiters never deadlock on a
// dead process.
type LockStore struct {
	client *redis.Client
	prefix string

	mu    sync.Mutex
	owned map[string]string
}

func NewLockStore(client *redis.Client, prefix string) repository.ILockStore {
	if prefix == "" {
		prefix = "lock:"
	}
	return &LockStore{client: client, prefix: prefix, owned: make(map[string]string)}
}

func newNonce() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func (s *LockStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	nonce := newNonce()
	ok, err := s.client.SetNX(ctx, s.prefix+key, nonce, ttl).Result()
	if err != nil || !ok {
		return ok, err
	}
	s.mu.Lock()
	s.owned[key] = nonce
	s.mu.Unlock()
	return true, nil
}

func (s *LockStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	nonce, ok := s.owned[key]
	delete(s.owned, key)
	s.mu.Unlock()
	if !ok {
		// Never acquired by this instance; nothing to release.
		return nil
	}
	return releaseScript.Run(ctx, s.client, []string{s.prefix + key}, nonce).Err()
}
