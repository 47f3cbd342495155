package workspace

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mattjoyce/dabops/internal/workflow"
)

// CachedClient fronts ListWorkflows with a time-boxed cache keyed by
// workspace host, requesting user and the ownership filter. Expired entries
// are dropped on the next read; there is no background refresh. All other
// calls pass through.
type CachedClient struct {
	Client
	host string
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
	group   singleflight.Group
}

type cacheEntry struct {
	workflows []workflow.Summary
	expires   time.Time
}

var _ Client = (*CachedClient)(nil)

// NewCachedClient wraps inner. host identifies the workspace in cache keys.
func NewCachedClient(inner Client, host string, ttl time.Duration) *CachedClient {
	return &CachedClient{
		Client:  inner,
		host:    host,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// ListWorkflows returns a copy of the cached listing when fresh.
func (c *CachedClient) ListWorkflows(ctx context.Context, userOnly bool) ([]workflow.Summary, error) {
	user, err := c.Client.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	key := c.host + "|" + user + "|" + strconv.FormatBool(userOnly)

	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && !c.now().Before(entry.expires) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()
	if ok {
		return cloneSummaries(entry.workflows), nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		list, err := c.Client.ListWorkflows(ctx, userOnly)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = cacheEntry{workflows: list, expires: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneSummaries(v.([]workflow.Summary)), nil
}

// Invalidate drops every cached listing.
func (c *CachedClient) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

func cloneSummaries(in []workflow.Summary) []workflow.Summary {
	if in == nil {
		return nil
	}
	return append([]workflow.Summary(nil), in...)
}
