// Package reqctx holds the per-invocation cache and call log. One Context
// is created per query, owned exclusively by that invocation and discarded
// with it — nothing here survives across requests, which is the isolation
// boundary that keeps one tenant's data out of another's response.
package reqctx

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wickeddevsupport/bcgpt-sub008/pkg/basecamp"
)

// CallRecord is one entry in the ordered call log.
type CallRecord struct {
	Operation  string `json:"operation"`
	DurationMs int64  `json:"duration_ms"`
	CacheHit   bool   `json:"cache_hit"`
}

// Metrics is a point-in-time snapshot of the invocation's counters.
type Metrics struct {
	CallsMade    int     `json:"calls_made"`
	CacheHits    int     `json:"cache_hits"`
	CacheMisses  int     `json:"cache_misses"`
	CacheHitRate float64 `json:"cache_hit_rate"`
}

type entityKey struct {
	entityType string
	id         int64
}

// cacheEntry guarantees fetchFn runs at most once per key even when
// concurrent enrichment goroutines ask for the same entity.
type cacheEntry struct {
	once  sync.Once
	value interface{}
	err   error
}

// Context is the request-scoped cache, call log and preloaded reference
// sets for one invocation.
type Context struct {
	InvocationID string
	OriginQuery  string

	client basecamp.Client

	mu      sync.Mutex
	cache   map[entityKey]*cacheEntry
	callLog []CallRecord
	hits    int
	misses  int
	calls   int

	preloadOnce sync.Once
	preloadErr  error
	people      []basecamp.Person
	projects    []basecamp.Project
}

// New creates a fresh Context for one invocation.
func New(client basecamp.Client, originQuery string) *Context {
	return &Context{
		InvocationID: uuid.NewString(),
		OriginQuery:  originQuery,
		client:       client,
		cache:        make(map[entityKey]*cacheEntry),
	}
}

// PreloadEssentials fetches the reference sets (all people, all projects)
// in parallel, exactly once per invocation. Either load may fail without
// failing the other; the combined error is returned for the caller to log.
//
// Result-set size is unbounded here: a very large account pays the full
// preload cost on every invocation. Capping this is a product decision
// that has not been made yet.
func (c *Context) PreloadEssentials(ctx context.Context) error {
	c.preloadOnce.Do(func() {
		var wg sync.WaitGroup
		var peopleErr, projectsErr error

		wg.Add(2)
		go func() {
			defer wg.Done()
			start := time.Now()
			people, err := c.client.ListPeople(ctx)
			c.RecordCall("list_people", time.Since(start), false)
			if err != nil {
				peopleErr = err
				return
			}
			c.mu.Lock()
			c.people = people
			c.mu.Unlock()
		}()
		go func() {
			defer wg.Done()
			start := time.Now()
			projects, err := c.client.ListProjects(ctx)
			c.RecordCall("list_projects", time.Since(start), false)
			if err != nil {
				projectsErr = err
				return
			}
			c.mu.Lock()
			c.projects = projects
			c.mu.Unlock()
		}()
		wg.Wait()

		if peopleErr != nil || projectsErr != nil {
			c.preloadErr = fmt.Errorf("preload essentials: people=%v projects=%v", peopleErr, projectsErr)
		}
	})
	return c.preloadErr
}

// GetOrFetch returns the cached entity for (entityType, id), invoking
// fetch at most once per distinct key. The first caller's result — value
// or error — is what every later caller sees. This is the single write
// path into the cache.
func (c *Context) GetOrFetch(ctx context.Context, entityType string, id int64, fetch func(context.Context) (interface{}, error)) (interface{}, error) {
	key := entityKey{entityType: entityType, id: id}

	c.mu.Lock()
	entry, found := c.cache[key]
	if !found {
		entry = &cacheEntry{}
		c.cache[key] = entry
	}
	c.mu.Unlock()

	// Every caller offers the real fetch; Once picks exactly one winner
	// and blocks the rest until the value is in place.
	start := time.Now()
	ran := false
	entry.once.Do(func() {
		ran = true
		entry.value, entry.err = fetch(ctx)
	})

	operation := fmt.Sprintf("get_%s", entityType)
	if ran {
		c.RecordCall(operation, time.Since(start), false)
	} else {
		c.RecordCall(operation, 0, true)
	}
	return entry.value, entry.err
}

// LookupByName scans a preloaded reference set case-insensitively.
// Supported types: person, project.
func (c *Context) LookupByName(entityType, name string) (interface{}, bool) {
	switch entityType {
	case basecamp.TypePerson:
		if p := c.LookupPersonByName(name); p != nil {
			return p, true
		}
	case basecamp.TypeProject:
		if p := c.LookupProjectByName(name); p != nil {
			return p, true
		}
	}
	return nil, false
}

// LookupPersonByName prefers an exact case-insensitive match, then falls
// back to containment in either direction so "John" finds "John Smith".
func (c *Context) LookupPersonByName(name string) *basecamp.Person {
	c.mu.Lock()
	defer c.mu.Unlock()

	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil
	}
	for i := range c.people {
		if strings.ToLower(c.people[i].Name) == needle {
			return &c.people[i]
		}
	}
	for i := range c.people {
		haystack := strings.ToLower(c.people[i].Name)
		if strings.Contains(haystack, needle) || strings.Contains(needle, haystack) {
			return &c.people[i]
		}
	}
	return nil
}

// LookupProjectByName matches exactly first, then by containment.
func (c *Context) LookupProjectByName(name string) *basecamp.Project {
	c.mu.Lock()
	defer c.mu.Unlock()

	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil
	}
	for i := range c.projects {
		if strings.ToLower(c.projects[i].Name) == needle {
			return &c.projects[i]
		}
	}
	for i := range c.projects {
		if strings.Contains(strings.ToLower(c.projects[i].Name), needle) {
			return &c.projects[i]
		}
	}
	return nil
}

// People returns the preloaded people set.
func (c *Context) People() []basecamp.Person {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]basecamp.Person(nil), c.people...)
}

// Projects returns the preloaded projects set.
func (c *Context) Projects() []basecamp.Project {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]basecamp.Project(nil), c.projects...)
}

// RecordCall appends one entry to the call log and bumps the counters.
func (c *Context) RecordCall(operation string, duration time.Duration, cacheHit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.callLog = append(c.callLog, CallRecord{
		Operation:  operation,
		DurationMs: duration.Milliseconds(),
		CacheHit:   cacheHit,
	})
	if cacheHit {
		c.hits++
	} else {
		c.misses++
		c.calls++
	}
}

// CallLog returns a copy of the ordered call log.
func (c *Context) CallLog() []CallRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]CallRecord(nil), c.callLog...)
}

// Metrics snapshots the counters. The hit rate covers cache lookups only.
func (c *Context) Metrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := Metrics{
		CallsMade:   c.calls,
		CacheHits:   c.hits,
		CacheMisses: c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		m.CacheHitRate = float64(c.hits) / float64(total)
	}
	return m
}
