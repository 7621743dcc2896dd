// Package cache keeps recent pagination results so that returning to a
// layout, or reopening a book, does not paginate the same content twice.
package cache

import (
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/charmbracelet/folio/paginate"
)

// Defaults.
const (
	DefaultCapacity = 10
	DefaultTTL      = 30 * time.Minute
)

// Entry is a cached pagination result and the pages rendered from it so
// far. Rendered runs parallel to Result.Pages; an empty string marks a page
// that has not been rendered yet.
//
// Variant names what the pages were rendered with beyond the pagination
// itself, such as chapter titles and styling. The same Result is shared by
// every variant, but Rendered only ever holds pages of one.
type Entry struct {
	Result    paginate.Result `json:"result"`
	Rendered  []string        `json:"rendered"`
	Variant   string          `json:"variant"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEntry returns an entry for r with no rendered pages.
func NewEntry(r paginate.Result) Entry {
	return Entry{
		Result:   r,
		Rendered: make([]string, r.TotalPages()),
	}
}

// IsRendered reports whether page n has been rendered.
func (e Entry) IsRendered(n int) bool {
	return n >= 0 && n < len(e.Rendered) && e.Rendered[n] != ""
}

// ForVariant returns e prepared to hold pages rendered for v. Pages
// rendered for another variant are dropped; the result is kept.
func (e Entry) ForVariant(v string) Entry {
	if e.Variant == v {
		return e
	}
	e.Variant = v
	e.Rendered = make([]string, e.Result.TotalPages())
	return e
}

func (e Entry) clone() Entry {
	e.Rendered = slices.Clone(e.Rendered)
	return e
}

type item struct {
	entry   Entry
	expires time.Time
}

// Cache is a bounded, expiring map from Key to Entry. Entries are evicted in
// insertion order once the capacity is exceeded. It is safe for concurrent
// use.
type Cache struct {
	capacity int
	ttl      time.Duration
	store    Store
	logger   *log.Logger
	now      func() time.Time

	mu    sync.Mutex
	items map[Key]*item
	order []Key // oldest first
}

// Option configures a Cache.
type Option func(*Cache)

// WithCapacity sets the maximum number of entries kept in memory.
func WithCapacity(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithTTL sets the default time to live of new entries.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithStore adds a persistent tier behind the in-memory entries.
func WithStore(s Store) Option {
	return func(c *Cache) {
		c.store = s
	}
}

// WithLogger sets the logger used to report store failures.
func WithLogger(l *log.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New returns an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		capacity: DefaultCapacity,
		ttl:      DefaultTTL,
		logger:   log.Default(),
		now:      time.Now,
		items:    make(map[Key]*item),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithPrefix("cache")

	if c.store != nil {
		n, err := c.store.Prune(c.now().Add(-c.ttl))
		if err != nil {
			c.logger.Warn("could not prune store", "err", err)
		} else if n > 0 {
			c.logger.Debug("pruned expired entries", "count", n)
		}
	}
	return c
}

// Get returns the entry stored under key. Expired entries are dropped and
// reported as misses. The returned entry does not share its Rendered slice
// with the cache.
func (c *Cache) Get(key Key) (Entry, bool) {
	c.mu.Lock()
	it, ok := c.items[key]
	if ok && !c.now().Before(it.expires) {
		c.remove(key)
		ok = false
	}
	if ok {
		e := it.entry.clone()
		c.mu.Unlock()
		return e, true
	}
	c.mu.Unlock()

	if c.store == nil {
		return Entry{}, false
	}
	return c.load(key)
}

// load consults the persistent tier and promotes a fresh hit into memory.
func (c *Cache) load(key Key) (Entry, bool) {
	e, ok, err := c.store.Load(key)
	if err != nil {
		c.logger.Warn("could not load entry", "key", key, "err", err)
		return Entry{}, false
	}
	if !ok {
		return Entry{}, false
	}
	now := c.now()
	expires := e.CreatedAt.Add(c.ttl)
	if !now.Before(expires) || len(e.Rendered) != e.Result.TotalPages() {
		return Entry{}, false
	}

	c.mu.Lock()
	c.insert(key, e.clone(), expires)
	c.mu.Unlock()
	return e, true
}

// Set stores e under key for ttl, or for the cache's default TTL when ttl is
// not positive. Setting an existing key counts as a fresh insertion.
func (c *Cache) Set(key Key, e Entry, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	now := c.now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if len(e.Rendered) != e.Result.TotalPages() {
		rendered := make([]string, e.Result.TotalPages())
		copy(rendered, e.Rendered)
		e.Rendered = rendered
	}
	e = e.clone()

	c.mu.Lock()
	c.insert(key, e, now.Add(ttl))
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Save(key, e); err != nil {
			c.logger.Warn("could not save entry", "key", key, "err", err)
		}
	}
}

// Update applies fn to the entry under key while holding the cache lock.
// It reports whether a live entry was found.
func (c *Cache) Update(key Key, fn func(*Entry)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key]
	if !ok {
		return false
	}
	if !c.now().Before(it.expires) {
		c.remove(key)
		return false
	}
	e := it.entry.clone()
	fn(&e)
	it.entry = e
	return true
}

// SetRendered stores out as page n of the entry under key if that entry
// holds pages of variant v and page n is not rendered yet. It reports
// whether the page was stored.
func (c *Cache) SetRendered(key Key, v string, n int, out string) bool {
	stored := false
	c.Update(key, func(e *Entry) {
		if e.Variant != v || n < 0 || n >= len(e.Rendered) || e.Rendered[n] != "" {
			return
		}
		e.Rendered[n] = out
		stored = true
	})
	return stored
}

// Len returns the number of entries held in memory, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear drops every entry, including those in the persistent tier.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.items = make(map[Key]*item)
	c.order = nil
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Clear(); err != nil {
			c.logger.Warn("could not clear store", "err", err)
		}
	}
}

// Close releases the persistent tier.
func (c *Cache) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

// insert must be called with c.mu held.
func (c *Cache) insert(key Key, e Entry, expires time.Time) {
	if _, ok := c.items[key]; ok {
		c.order = slices.DeleteFunc(c.order, func(k Key) bool { return k == key })
	}
	c.items[key] = &item{entry: e, expires: expires}
	c.order = append(c.order, key)

	for len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.items, oldest)
	}
}

// remove must be called with c.mu held.
func (c *Cache) remove(key Key) {
	delete(c.items, key)
	c.order = slices.DeleteFunc(c.order, func(k Key) bool { return k == key })
}
