package cache

import (
	"context"
	"log"
	"strings"
	"time"
)

// Generation namespaces cache keys under a name and version, e.g.
// "api:v1.2.1:". Bumping the version gives a fresh, empty namespace
// while old entries stay readable until Activate retires them.
type Generation struct {
	cache   Cache
	name    string
	version string
}

// NewGeneration wraps a cache with a versioned key namespace.
func NewGeneration(c Cache, name, version string) *Generation {
	return &Generation{cache: c, name: name, version: version}
}

// Prefix returns the key prefix for this generation.
func (g *Generation) Prefix() string {
	return g.name + ":" + g.version + ":"
}

// Name returns the namespace name without the version.
func (g *Generation) Name() string {
	return g.name
}

func (g *Generation) key(k string) string {
	return g.Prefix() + k
}

// Get retrieves a value from this generation.
func (g *Generation) Get(ctx context.Context, key string) ([]byte, error) {
	return g.cache.Get(ctx, g.key(key))
}

// Set stores a value in this generation.
func (g *Generation) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return g.cache.Set(ctx, g.key(key), value, ttl)
}

// Delete removes a value from this generation.
func (g *Generation) Delete(ctx context.Context, key string) error {
	return g.cache.Delete(ctx, g.key(key))
}

// Purge removes every entry belonging to this generation.
func (g *Generation) Purge(ctx context.Context) error {
	keys, err := g.cache.Keys(ctx, g.Prefix())
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := g.cache.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// Activate deletes every cached entry whose namespace matches a current
// generation's name but carries a different version. Entries outside the
// current namespaces are left alone.
func Activate(ctx context.Context, c Cache, current ...*Generation) (int, error) {
	removed := 0
	for _, gen := range current {
		keys, err := c.Keys(ctx, gen.Name()+":")
		if err != nil {
			return removed, err
		}
		for _, k := range keys {
			if strings.HasPrefix(k, gen.Prefix()) {
				continue
			}
			if err := c.Delete(ctx, k); err != nil {
				return removed, err
			}
			removed++
		}
	}
	if removed > 0 {
		log.Printf("[Cache] Retired %d entries from old generations", removed)
	}
	return removed, nil
}
