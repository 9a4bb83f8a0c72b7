package services

import (
	"context"
	"time"
)

// Cache is the read-through cache the services use for derived views.
type Cache interface {
	GetJSON(ctx context.Context, key string, v interface{}) bool
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration)
	InvalidatePrefix(ctx context.Context, prefix string)
}

type noopCache struct{}

func (noopCache) GetJSON(context.Context, string, interface{}) bool           { return false }
func (noopCache) SetJSON(context.Context, string, interface{}, time.Duration) {}
func (noopCache) InvalidatePrefix(context.Context, string)                    {}

func orNoop(c Cache) Cache {
	if c == nil {
		return noopCache{}
	}
	return c
}

const (
	xpCachePrefix      = "cache:xp:"
	monthlyCachePrefix = "cache:nutrition:monthly:"
)
