package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// keyNamespace prefixes every cache key so the instance can share a Redis
// with other services.
const keyNamespace = "discovery"

// HashKey builds a stable short key from the given parts. Long parameter
// lists hash down to a fixed 32-character hex string.
func HashKey(parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// NamespaceKey prefixes a key with the service namespace
func (c *Cache) NamespaceKey(key string) string {
	return keyNamespace + ":" + key
}

// GetJSON retrieves a cached value and unmarshals it into dest
func (c *Cache) GetJSON(key string, dest interface{}) error {
	if c == nil || c.client == nil {
		return ErrCacheDisabled
	}
	raw, err := c.Get(c.NamespaceKey(key))
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), dest)
}

// SetJSON marshals a value and caches it with the given TTL
func (c *Cache) SetJSON(key string, value interface{}, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return ErrCacheDisabled
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Set(c.NamespaceKey(key), raw, ttl)
}
