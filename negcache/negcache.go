// Package negcache implements validate.NegativeCache (SPEC_FULL.md §9): a
// seiflotfy/cuckoofilter-backed set of external-checksum-sidecar URIs known
// to be absent, so validate.Validator can skip a repeat REMOTE_EXTERNAL
// fetch within the process lifetime. The validator does not fetch a URI
// the cache reports absent and treats it as not found, so a filter false
// positive hides that sidecar from validation.
package negcache

import (
	"sync"

	cuckoo "github.com/seiflotfy/cuckoofilter"
)

// Cache is a concurrency-safe wrapper around a cuckoo.Filter; the filter
// itself has no internal locking.
type Cache struct {
	mu     sync.Mutex
	filter *cuckoo.Filter
}

// New builds a Cache sized for roughly capacity distinct absent URIs.
func New(capacity uint) *Cache {
	return &Cache{filter: cuckoo.NewFilter(capacity)}
}

func (c *Cache) KnownAbsent(uri string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter.Lookup([]byte(uri))
}

func (c *Cache) MarkAbsent(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter.InsertUnique([]byte(uri))
}

// ClearAbsent removes uri from the cache. The validator calls it after
// every successful sidecar fetch.
func (c *Cache) ClearAbsent(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter.Delete([]byte(uri))
}
