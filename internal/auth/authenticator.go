package auth

import (
	"context"
	"sync"
	"time"

	"bridge-monitor/server/internal/config"
)

// KeyResolver looks up a provisioned API key; *store.RedisStore implements
// it.
type KeyResolver interface {
	GetAPIKey(ctx context.Context, apiKey string) (string, error)
}

type cacheEntry struct {
	operator  string
	expiresAt time.Time
}

// Authenticator validates admin API keys. Static keys from config resolve
// to the generic "admin" operator; Redis-provisioned keys resolve to the
// operator name stored under admin:auth:{key}.
type Authenticator struct {
	localCache sync.Map
	redis      KeyResolver
	ttl        time.Duration
	staticKeys map[string]bool
}

func NewAuthenticator(cfg *config.Config, redis KeyResolver) *Authenticator {
	staticKeys := make(map[string]bool, len(cfg.AdminAPIKeys))
	for _, k := range cfg.AdminAPIKeys {
		if k != "" {
			staticKeys[k] = true
		}
	}

	return &Authenticator{
		redis:      redis,
		ttl:        time.Duration(cfg.AuthCacheTTLSeconds) * time.Second,
		staticKeys: staticKeys,
	}
}

// Validate returns the operator behind the key, or ok=false for unknown
// keys.
func (a *Authenticator) Validate(ctx context.Context, apiKey string) (string, bool) {
	// Level 0: static config keys
	if a.staticKeys[apiKey] {
		return "admin", true
	}

	// Level 1: in-memory cache
	if raw, ok := a.localCache.Load(apiKey); ok {
		entry := raw.(cacheEntry)
		if time.Now().Before(entry.expiresAt) {
			return entry.operator, true
		}
		a.localCache.Delete(apiKey)
	}

	// Level 2: Redis lookup
	operator, err := a.redis.GetAPIKey(ctx, apiKey)
	if err != nil || operator == "" {
		return "", false
	}

	a.localCache.Store(apiKey, cacheEntry{
		operator:  operator,
		expiresAt: time.Now().Add(a.ttl),
	})

	return operator, true
}
