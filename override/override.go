// Package override is a read-only, in-memory cache of per-host selector
// configuration loaded once at run start. Overrides are configured
// out-of-band and never mutated mid-crawl.
package override

import (
	"context"
	"strings"
	"sync"

	"archivecrawl/models"
)

// Loader reads the full DomainOverride table. Satisfied by storage.Store.
type Loader interface {
	LoadDomainOverrides(ctx context.Context) ([]models.DomainOverride, error)
}

// Cache is a read-only snapshot of domain overrides, keyed by lowercase
// domain. It is populated once via Load and never mutated afterward.
type Cache struct {
	mu      sync.RWMutex
	byHost  map[string]models.DomainOverride
	loaded  bool
}

// New returns an empty Cache; call Load before use.
func New() *Cache {
	return &Cache{byHost: make(map[string]models.DomainOverride)}
}

// Load fetches all overrides from the loader and snapshots the enabled ones
// into memory. Safe to call once at run startup; subsequent calls replace
// the snapshot wholesale.
func (c *Cache) Load(ctx context.Context, loader Loader) error {
	overrides, err := loader.LoadDomainOverrides(ctx)
	if err != nil {
		return err
	}

	snapshot := make(map[string]models.DomainOverride, len(overrides))
	for _, o := range overrides {
		if !o.Enabled {
			continue
		}
		snapshot[strings.ToLower(o.Domain)] = o
	}

	c.mu.Lock()
	c.byHost = snapshot
	c.loaded = true
	c.mu.Unlock()
	return nil
}

// Lookup returns the override configured for domain, if any and enabled.
func (c *Cache) Lookup(domain string) (models.DomainOverride, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.byHost[strings.ToLower(domain)]
	return o, ok
}

// Loaded reports whether Load has been called at least once.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// MainContentSelectors returns the configured main-content selectors for
// domain, or nil if no override applies.
func (c *Cache) MainContentSelectors(domain string) []string {
	o, ok := c.Lookup(domain)
	if !ok {
		return nil
	}
	return o.MainContentSelectors
}

// RemoveSelectors returns the configured additional remove selectors for
// domain, or nil if no override applies.
func (c *Cache) RemoveSelectors(domain string) []string {
	o, ok := c.Lookup(domain)
	if !ok {
		return nil
	}
	return o.RemoveSelectors
}

// ForceFetchMode returns the override's forced fetch mode for domain, if
// any is configured.
func (c *Cache) ForceFetchMode(domain string) (models.FetchMode, bool) {
	o, ok := c.Lookup(domain)
	if !ok || o.ForceFetchMode == nil {
		return "", false
	}
	return *o.ForceFetchMode, true
}
