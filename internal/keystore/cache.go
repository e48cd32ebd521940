package keystore

import (
	"sync"
	"time"

	"github.com/sirosfoundation/go-as2/pkg/security"
)

// keyCache holds loaded keys, optionally bounded by age
type keyCache struct {
	ttl time.Duration
	now func() time.Time

	mu   sync.RWMutex
	keys map[string]cachedKey
}

type cachedKey struct {
	key       *security.DecryptionKey
	expiresAt time.Time
}

func newKeyCache(ttl time.Duration) *keyCache {
	return &keyCache{
		ttl:  ttl,
		now:  time.Now,
		keys: make(map[string]cachedKey),
	}
}

func (c *keyCache) get(partnerID string) (*security.DecryptionKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cached, ok := c.keys[partnerID]
	if !ok {
		return nil, false
	}
	if !cached.expiresAt.IsZero() && c.now().After(cached.expiresAt) {
		return nil, false
	}
	return cached.key, true
}

func (c *keyCache) put(partnerID string, key *security.DecryptionKey) {
	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}

	c.mu.Lock()
	c.keys[partnerID] = cachedKey{key: key, expiresAt: expiresAt}
	c.mu.Unlock()
}

func (c *keyCache) clear() {
	c.mu.Lock()
	c.keys = make(map[string]cachedKey)
	c.mu.Unlock()
}
