package memory

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// SessionTokenIndex caches token hash -> session id so validation can skip
// the hash lookup in storage. Entries are hints; the stored session stays
// authoritative.
type SessionTokenIndex struct {
	cache *cache.Cache
}

func NewSessionTokenIndex(ttl time.Duration) *SessionTokenIndex {
	return &SessionTokenIndex{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

func (i *SessionTokenIndex) Save(tokenHash string, sessionId uuid.UUID, expiresAt time.Time, now time.Time) {
	ttl := expiresAt.Sub(now)
	if ttl <= 0 {
		ttl = time.Minute
	}
	i.cache.Set(tokenHash, sessionId, ttl)
}

func (i *SessionTokenIndex) Get(tokenHash string) (uuid.UUID, bool) {
	if x, found := i.cache.Get(tokenHash); found {
		return x.(uuid.UUID), true
	}
	return uuid.Nil, false
}

func (i *SessionTokenIndex) Delete(tokenHash string) {
	i.cache.Delete(tokenHash)
}
