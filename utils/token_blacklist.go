package utils

import (
	"context"
	"sync"
	"time"
)

const blacklistPrefix = "jwt:blacklist:"

var (
	blacklist   = map[string]time.Time{}
	blacklistMu sync.RWMutex
)

// BlacklistToken revokes a token id until its natural expiry.
func BlacklistToken(ctx context.Context, tokenID string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if tokenID == "" || ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		_ = rc.Set(ctx, blacklistPrefix+tokenID, "1", ttl).Err()
		return
	}
	blacklistMu.Lock()
	pruneBlacklistLocked()
	blacklist[tokenID] = expiresAt
	blacklistMu.Unlock()
}

// IsTokenBlacklisted reports whether a token id was revoked before its expiry.
func IsTokenBlacklisted(ctx context.Context, tokenID string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		n, err := rc.Exists(ctx, blacklistPrefix+tokenID).Result()
		if err != nil {
			// fail open so a Redis outage does not log everyone out
			return false
		}
		return n > 0
	}
	blacklistMu.RLock()
	exp, ok := blacklist[tokenID]
	blacklistMu.RUnlock()
	return ok && time.Now().Before(exp)
}

func pruneBlacklistLocked() {
	now := time.Now()
	for id, exp := range blacklist {
		if now.After(exp) {
			delete(blacklist, id)
		}
	}
}
