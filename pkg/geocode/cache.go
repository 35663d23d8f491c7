package geocode

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// loadCached decodes a cached entry into dst. Read or decode failures are
// logged and reported as a miss.
func (g *geocoder) loadCached(ctx context.Context, key string, dst any) bool {
	data, ok, err := g.cache.Get(ctx, key)
	if err != nil {
		zap.L().Warn("geocode: cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		zap.L().Warn("geocode: cache entry unreadable", zap.String("key", key), zap.Error(err))
		return false
	}
	zap.L().Debug("geocode cache hit", zap.String("key", key))
	return true
}

// storeCached writes v under key. Failures are logged; a result that cannot
// be cached is still returned to the caller.
func (g *geocoder) storeCached(ctx context.Context, key string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		zap.L().Warn("geocode: cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := g.cache.Put(ctx, key, data); err != nil {
		zap.L().Warn("geocode: cache write failed", zap.String("key", key), zap.Error(err))
	}
}
