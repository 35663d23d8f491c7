// Package cache provides the key-value backends used for geocode and map
// artifacts. Keys are deterministic tokens computed by the caller.
package cache

import (
	"context"
	"strings"
	"time"
)

// Cache stores opaque values under deterministic keys.
type Cache interface {
	// Get returns the value for key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error
}

// expired reports whether an entry written at cachedAt is past ttl.
// A zero ttl never expires.
func expired(cachedAt time.Time, ttl time.Duration) bool {
	return ttl > 0 && time.Since(cachedAt) > ttl
}

var unsafeKeyChars = strings.NewReplacer("/", "_", "\\", "_", "..", "_", ":", "_", " ", "_")

// SafeKey rewrites key so it can be used as a single path element.
func SafeKey(key string) string {
	return unsafeKeyChars.Replace(key)
}
