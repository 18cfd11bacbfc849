// Package toolutil provides shared helper functions for go_apply MCP
// tools: input normalization and typed JSON access to the tiered cache.
package toolutil

import (
	"context"
	"encoding/json"

	"github.com/anatolykoptev/go_apply/internal/pipeline"
)

// ClampLimit normalises a paging limit: non-positive → def, above max → max.
func ClampLimit(n, def, max int) int {
	if n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// CacheLoadJSON tries to load a cached value of type T.
// Returns the decoded value and true on hit; zero value and false on miss
// or decode error.
func CacheLoadJSON[T any](ctx context.Context, key string) (T, bool) {
	var out T
	data, ok := pipeline.CacheGet(ctx, key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		var zero T
		return zero, false
	}
	return out, true
}

// CacheStoreJSON marshals v and stores it under key. Marshal failures are
// dropped: the cache is an optimization, never a source of truth.
func CacheStoreJSON[T any](ctx context.Context, key string, v T) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	pipeline.CacheSet(ctx, key, data)
}
