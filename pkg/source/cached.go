package source

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/buckaroo/pkg/cache"
	"github.com/matzehuels/buckaroo/pkg/event"
	"github.com/matzehuels/buckaroo/pkg/observability"
	"github.com/matzehuels/buckaroo/pkg/process"
	"github.com/matzehuels/buckaroo/pkg/recipe"
)

// DefaultTTL is how long a cached recipe is trusted.
const DefaultTTL = 24 * time.Hour

const cacheKeyType = "recipe"

// Cached wraps a source with a recipe cache. Complete recipes are stored in
// a key-value cache for the TTL; concurrent fetches of one identifier share
// a single fetch of the wrapped source. Failures are never cached.
type Cached struct {
	inner   Source
	kv      cache.Cache
	keyer   cache.Keyer
	ttl     time.Duration
	refresh bool
	group   singleflight.Group
}

// CachedOptions configures [NewCached].
type CachedOptions struct {
	Keyer   cache.Keyer   // defaults to cache.DefaultKeyer
	TTL     time.Duration // defaults to DefaultTTL
	Refresh bool          // skip cache reads, still write
}

// NewCached wraps inner with kv.
func NewCached(inner Source, kv cache.Cache, opts CachedOptions) *Cached {
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	return &Cached{inner: inner, kv: kv, keyer: opts.Keyer, ttl: opts.TTL, refresh: opts.Refresh}
}

// Fetch implements [Source].
func (c *Cached) Fetch(id recipe.RecipeIdentifier) process.Process[recipe.Recipe] {
	key := c.keyer.RecipeKey(id.String())
	return func(ctx context.Context, emit process.Emitter) (recipe.Recipe, error) {
		if !c.refresh {
			if r, ok := c.load(ctx, key); ok {
				observability.Cache().OnCacheHit(ctx, cacheKeyType)
				emit(event.RecipeFetched{Identifier: id, Versions: len(r.Versions), Cached: true})
				return r, nil
			}
			observability.Cache().OnCacheMiss(ctx, cacheKeyType)
		}

		detached, stop := process.Detach(emit)
		defer stop()
		for {
			ch := c.group.DoChan(key, func() (any, error) {
				r, err := c.inner.Fetch(id).Run(ctx, detached)
				if err != nil {
					return recipe.Recipe{}, err
				}
				c.store(ctx, key, r)
				return r, nil
			})
			select {
			case <-ctx.Done():
				return recipe.Recipe{}, ctx.Err()
			case res := <-ch:
				// the shared fetch was abandoned by the caller that started it
				if res.Err != nil && isContextError(res.Err) && ctx.Err() == nil {
					continue
				}
				return res.Val.(recipe.Recipe), res.Err
			}
		}
	}
}

func (c *Cached) load(ctx context.Context, key string) (recipe.Recipe, bool) {
	data, ok, err := c.kv.Get(ctx, key)
	if err != nil || !ok {
		return recipe.Recipe{}, false
	}
	var r recipe.Recipe
	if err := json.Unmarshal(data, &r); err != nil || len(r.Versions) == 0 {
		return recipe.Recipe{}, false
	}
	return r, true
}

func (c *Cached) store(ctx context.Context, key string, r recipe.Recipe) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	if c.kv.Set(ctx, key, data, c.ttl) == nil {
		observability.Cache().OnCacheSet(ctx, cacheKeyType, len(data))
	}
}
