// Package session holds the client-side cache of server-owned entities.
//
// A Cache lives for exactly one session epoch: the interval during which a
// single resolved identity (possibly anonymous) is active. When the identity
// changes the Manager closes the cache and builds a new one, so nothing read
// under one identity can be observed under the next.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrUnresolved is returned before any identity has been resolved.
	ErrUnresolved = errors.New("identity not resolved")

	// ErrEpochClosed is returned by a cache whose epoch has been torn down.
	ErrEpochClosed = errors.New("session epoch closed")

	// ErrIdentityMismatch is returned when a key names another identity than the cache's.
	ErrIdentityMismatch = errors.New("key belongs to a different identity")

	// ErrNotLoaded is returned when a mutation targets an entry with no ready value.
	ErrNotLoaded = errors.New("entry not loaded")
)

// DefaultCacheSize bounds the number of entries one epoch keeps.
const DefaultCacheSize = 256

// Status is the load state of an entry.
type Status int

const (
	StatusPending Status = iota
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Key partitions the cache by resource path and identity.
type Key struct {
	Resource string
	Identity string
}

func (k Key) String() string {
	return k.Identity + "|" + k.Resource
}

// Entry is a snapshot of one cached value.
// Value is only meaningful when Status is StatusReady and must be treated as read-only.
type Entry struct {
	Key       Key
	Value     any
	Status    Status
	Err       error
	Epoch     uint64
	UpdatedAt time.Time
}

// FetchFunc loads the value for a key from the remote store.
type FetchFunc func(ctx context.Context) (any, error)

type record struct {
	entry Entry
	fetch FetchFunc
	stale bool
	held  int // Active optimistic transactions; fetch results are discarded while > 0
}

// Config configures a Cache.
type Config struct {
	// Size bounds the number of entries (0 = DefaultCacheSize).
	Size int

	// Logger for cache diagnostics (nil = nop).
	Logger *zap.SugaredLogger
}

// Cache is the entity cache for one session epoch.
type Cache struct {
	mu       sync.Mutex
	identity string
	epoch    uint64
	closed   bool
	entries  *lru.Cache[Key, *record]
	loads    singleflight.Group
	logger   *zap.SugaredLogger
	now      func() time.Time
}

// NewCache creates the cache for identity at the given epoch.
func NewCache(identity string, epoch uint64, config Config) *Cache {
	size := config.Size
	if size <= 0 {
		size = DefaultCacheSize
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	entries, err := lru.New[Key, *record](size)
	if err != nil {
		// Only returned for a non-positive size, excluded above.
		panic(err)
	}
	return &Cache{
		identity: identity,
		epoch:    epoch,
		entries:  entries,
		logger:   logger,
		now:      time.Now,
	}
}

// Identity returns the identity this cache serves.
func (c *Cache) Identity() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// Epoch returns the generation this cache belongs to.
func (c *Cache) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// Key builds a key for resource under this cache's identity.
func (c *Cache) Key(resource string) Key {
	return Key{Resource: resource, Identity: c.Identity()}
}

// Closed reports whether the epoch has been torn down.
func (c *Cache) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// check must be called with c.mu held.
func (c *Cache) check(key Key) error {
	if c.closed {
		return ErrEpochClosed
	}
	if key.Identity != c.identity {
		return errors.Wrapf(ErrIdentityMismatch, "key %s in cache for %q", key, c.identity)
	}
	return nil
}

// Get returns the entry for key without fetching.
// A key that was never loaded yields a pending entry with no value.
func (c *Cache) Get(key Key) (Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(key); err != nil {
		return Entry{}, err
	}
	if rec, ok := c.entries.Get(key); ok {
		return rec.entry, nil
	}
	return Entry{Key: key, Status: StatusPending, Epoch: c.epoch}, nil
}

// Load returns the cached entry for key, fetching it when absent, stale or
// previously failed. Concurrent loads of one key share a single fetch.
func (c *Cache) Load(ctx context.Context, key Key, fetch FetchFunc) (Entry, error) {
	c.mu.Lock()
	if err := c.check(key); err != nil {
		c.mu.Unlock()
		return Entry{}, err
	}
	rec, ok := c.entries.Get(key)
	if ok && rec.entry.Status == StatusReady && (!rec.stale || rec.held > 0) {
		entry := rec.entry
		c.mu.Unlock()
		return entry, nil
	}
	if !ok {
		rec = &record{entry: Entry{Key: key, Status: StatusPending, Epoch: c.epoch}}
		c.entries.Add(key, rec)
	}
	rec.fetch = fetch
	c.mu.Unlock()

	return c.fetch(ctx, key, fetch)
}

// Refresh re-runs the last fetch for key, if there is one.
// Keys held by an optimistic transaction are left alone.
func (c *Cache) Refresh(ctx context.Context, key Key) (Entry, error) {
	c.mu.Lock()
	if err := c.check(key); err != nil {
		c.mu.Unlock()
		return Entry{}, err
	}
	rec, ok := c.entries.Get(key)
	if !ok || rec.fetch == nil || rec.held > 0 {
		var entry Entry
		if ok {
			entry = rec.entry
		}
		c.mu.Unlock()
		return entry, nil
	}
	fetch := rec.fetch
	c.mu.Unlock()

	return c.fetch(ctx, key, fetch)
}

func (c *Cache) fetch(ctx context.Context, key Key, fetch FetchFunc) (Entry, error) {
	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()

	v, err, _ := c.loads.Do(key.String(), func() (any, error) {
		return fetch(ctx)
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	// The identity moved on while the fetch was in flight: drop the result.
	if c.closed || c.epoch != epoch {
		c.logger.Debugw("discarding fetch from previous epoch", "key", key.String(), "epoch", epoch)
		if err != nil {
			return Entry{}, err
		}
		return Entry{}, ErrEpochClosed
	}

	rec, ok := c.entries.Get(key)
	if !ok {
		rec = &record{fetch: fetch}
		c.entries.Add(key, rec)
	}

	// An optimistic write owns the value until its transaction settles.
	if rec.held > 0 {
		c.logger.Debugw("discarding fetch for held key", "key", key.String())
		return rec.entry, nil
	}

	if err != nil {
		// Keep the last good value visible; only a first load becomes an error entry.
		if rec.entry.Status != StatusReady {
			rec.entry = Entry{Key: key, Status: StatusError, Err: err, Epoch: epoch, UpdatedAt: c.now()}
		}
		return rec.entry, err
	}

	rec.entry = Entry{Key: key, Value: v, Status: StatusReady, Epoch: epoch, UpdatedAt: c.now()}
	rec.stale = false
	return rec.entry, nil
}

// Set writes value for key. Writes are last-write-wins.
func (c *Cache) Set(key Key, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(key); err != nil {
		return err
	}
	c.setLocked(key, value)
	return nil
}

func (c *Cache) setLocked(key Key, value any) {
	rec, ok := c.entries.Get(key)
	if !ok {
		rec = &record{}
		c.entries.Add(key, rec)
	}
	rec.entry = Entry{Key: key, Value: value, Status: StatusReady, Epoch: c.epoch, UpdatedAt: c.now()}
	rec.stale = false
}

// Invalidate marks key stale so the next Load fetches it again.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.check(key) != nil {
		return
	}
	if rec, ok := c.entries.Peek(key); ok {
		rec.stale = true
	}
}

// Reset discards every entry that does not belong to identity and starts a
// new epoch for it. Fetches begun before the reset are discarded on arrival.
func (c *Cache) Reset(identity string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for _, k := range c.entries.Keys() {
		if k.Identity != identity {
			c.entries.Remove(k)
		}
	}
	if identity != c.identity {
		c.identity = identity
		c.epoch++
	}
}

// Close tears the epoch down. Every later call fails with ErrEpochClosed.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.entries.Purge()
}

// Keys lists the keys currently cached.
func (c *Cache) Keys() []Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	return c.entries.Keys()
}

// Aliases returns the cached keys that view the same collection as key:
// same identity and same resource path once the query string is removed.
// key itself is always included.
func (c *Cache) Aliases(key Key) []Key {
	base := BaseResource(key.Resource)
	out := []Key{key}
	for _, k := range c.Keys() {
		if k != key && k.Identity == key.Identity && BaseResource(k.Resource) == base {
			out = append(out, k)
		}
	}
	return out
}

// BaseResource strips the query from a resource path.
func BaseResource(resource string) string {
	if i := strings.IndexByte(resource, '?'); i >= 0 {
		return resource[:i]
	}
	return resource
}

// hold pins key for an optimistic transaction and returns its current entry.
func (c *Cache) hold(key Key) (Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(key); err != nil {
		return Entry{}, err
	}
	rec, ok := c.entries.Get(key)
	if !ok || rec.entry.Status != StatusReady {
		return Entry{}, errors.Wrapf(ErrNotLoaded, "key %s", key)
	}
	rec.held++
	return rec.entry, nil
}

// write replaces the value of a held key.
func (c *Cache) write(key Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	rec, ok := c.entries.Get(key)
	held := 0
	if ok {
		held = rec.held
	}
	c.setLocked(key, value)
	if rec, ok := c.entries.Peek(key); ok {
		rec.held = held
	}
}

// release unpins key.
func (c *Cache) release(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rec, ok := c.entries.Peek(key); ok && rec.held > 0 {
		rec.held--
	}
}
