package rbac

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	cacheKeyPrefix = "rbac:role:"
	// cacheEmptySentinel marks a cached role with zero grants, so an empty
	// capability set is distinguishable from a cache miss.
	cacheEmptySentinel = "__none__"
	// DefaultCacheTTL keeps permission changes visible quickly without a
	// database hit per request.
	DefaultCacheTTL = 30 * time.Second
)

// PermissionStore loads the granted capability keys for a role.
type PermissionStore interface {
	RoleCapabilities(ctx context.Context, roleID uuid.UUID) ([]string, error)
}

// Engine decides whether a role grants a capability. Role grants are cached
// in Redis with a short TTL and invalidated on permission updates.
type Engine struct {
	store PermissionStore
	cache *redis.Client
	ttl   time.Duration
}

// NewEngine creates a permission engine. cache may be nil to disable caching.
func NewEngine(store PermissionStore, cache *redis.Client, ttl time.Duration) *Engine {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Engine{store: store, cache: cache, ttl: ttl}
}

// HasPermission reports whether the role grants (module, action) by exact
// match. Unknown catalog pairs are always denied.
func (e *Engine) HasPermission(ctx context.Context, roleID uuid.UUID, module, action string) (bool, error) {
	if !IsKnown(module, action) {
		return false, nil
	}
	key := Capability{Module: module, Action: action}.Key()
	grants, err := e.roleGrants(ctx, roleID)
	if err != nil {
		return false, err
	}
	for _, g := range grants {
		if g == key {
			return true, nil
		}
	}
	return false, nil
}

// Invalidate drops the cached grants for a role after a permission change.
func (e *Engine) Invalidate(ctx context.Context, roleID uuid.UUID) {
	if e.cache == nil {
		return
	}
	e.cache.Del(ctx, cacheKeyPrefix+roleID.String())
}

func (e *Engine) roleGrants(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	cacheKey := cacheKeyPrefix + roleID.String()
	if e.cache != nil {
		cached, err := e.cache.SMembers(ctx, cacheKey).Result()
		if err == nil && len(cached) > 0 {
			if len(cached) == 1 && cached[0] == cacheEmptySentinel {
				return nil, nil
			}
			return cached, nil
		}
	}

	grants, err := e.store.RoleCapabilities(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("load role capabilities: %w", err)
	}
	if e.cache != nil {
		members := make([]interface{}, 0, len(grants)+1)
		for _, g := range grants {
			members = append(members, g)
		}
		if len(members) == 0 {
			members = append(members, cacheEmptySentinel)
		}
		pipe := e.cache.TxPipeline()
		pipe.Del(ctx, cacheKey)
		pipe.SAdd(ctx, cacheKey, members...)
		pipe.Expire(ctx, cacheKey, e.ttl)
		_, _ = pipe.Exec(ctx)
	}
	return grants, nil
}
