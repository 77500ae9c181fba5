package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores fetched origin pages so repeated runs over the same entities
// do not hammer the catalog servers.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives the cache key for an origin page URL. The version segment
// invalidates everything when the stored format changes.
func Key(url string) string {
	hash := sha256.Sum256([]byte(url))
	return "provenia:v1:" + hex.EncodeToString(hash[:])
}
