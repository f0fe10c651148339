// Package cache is an in-process read-through cache for cluster reads.
//
// Entries expire by TTL (see Policy), are grouped by tags for bulk invalidation,
// and are evicted in least-recently-used order when the store grows over its size limit.
//
// Expired entries are removed lazily by Get, and periodically by the sweep
// started with (*Store).Start.
package cache

import (
	"context"
	"log"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/opst/wlconf/pkg/loop"
)

const (
	DefaultMaxSize       = 1000
	DefaultSweepInterval = 60 * time.Second
)

// Store is a cache of configuration data.
//
// All methods are safe for concurrent use.
type Store struct {
	mu sync.Mutex

	entries map[string]*Entry

	// tag -> set of keys
	tags map[string]map[string]struct{}

	hits          uint64
	misses        uint64
	evictions     uint64
	invalidations uint64

	maxSize  int
	interval time.Duration
	now      func() time.Time
	logger   *log.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Store) *Store

// WithMaxSize sets the number of entries which the sweep keeps at most.
//
// Non positive value is ignored.
func WithMaxSize(n int) Option {
	return func(s *Store) *Store {
		if 0 < n {
			s.maxSize = n
		}
		return s
	}
}

// WithSweepInterval sets the interval of the background sweep.
//
// Non positive value is ignored.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Store) *Store {
		if 0 < d {
			s.interval = d
		}
		return s
	}
}

// WithClock replaces the clock of the store.
func WithClock(now func() time.Time) Option {
	return func(s *Store) *Store {
		s.now = now
		return s
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(s *Store) *Store {
		s.logger = logger
		return s
	}
}

// New creates an empty Store.
//
// The background sweep does not run until Start is called.
func New(options ...Option) *Store {
	s := &Store{
		entries:  map[string]*Entry{},
		tags:     map[string]map[string]struct{}{},
		maxSize:  DefaultMaxSize,
		interval: DefaultSweepInterval,
		now:      time.Now,
		logger:   log.Default(),
	}
	for _, opt := range options {
		s = opt(s)
	}
	return s
}

// Get returns data cached for key.
//
// The second return value is false when key is absent or expired.
// Expired entries found here are removed and counted as evictions.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[key]
	if !ok {
		s.misses += 1
		return nil, false
	}
	if e.Expired(now) {
		s.remove(key)
		s.evictions += 1
		s.misses += 1
		return nil, false
	}

	e.AccessCount += 1
	e.LastAccessedAt = now
	s.hits += 1
	return e.Data, true
}

// Set stores data for key with policy and tags, replacing the former entry if any.
//
// With NoCache policy, nothing is stored and it returns false.
//
// The store does not copy data. Callers should not modify data after Set.
func (s *Store) Set(key string, data any, policy Policy, tags ...string) bool {
	ttl := policy.TTLSeconds()
	if ttl == 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.remove(key)

	now := s.now()
	e := &Entry{
		Key:            key,
		Data:           data,
		CreatedAt:      now,
		TTLSeconds:     ttl,
		LastAccessedAt: now,
		Tags:           make(map[string]struct{}, len(tags)),
	}
	for _, t := range tags {
		e.Tags[t] = struct{}{}
		keys, ok := s.tags[t]
		if !ok {
			keys = map[string]struct{}{}
			s.tags[t] = keys
		}
		keys[key] = struct{}{}
	}
	s.entries[key] = e
	return true
}

// InvalidateByKey removes the entry for key.
//
// It returns true when an entry is removed.
func (s *Store) InvalidateByKey(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.remove(key) {
		return false
	}
	s.invalidations += 1
	return true
}

// InvalidateByTag removes all entries tagged with tag, and returns how many are removed.
func (s *Store) InvalidateByTag(tag string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.tags[tag]))
	for k := range s.tags[tag] {
		keys = append(keys, k)
	}
	return s.invalidate(keys)
}

// InvalidateByPattern removes entries with key matching pattern, and returns how many are removed.
//
// Patterns are:
//
// - "prefix*": keys starting with prefix
//
// - "*suffix": keys ending with suffix
//
// - otherwise: the key equals to pattern
func (s *Store) InvalidateByPattern(pattern string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var match func(string) bool
	switch {
	case strings.HasSuffix(pattern, "*"):
		prefix := strings.TrimSuffix(pattern, "*")
		match = func(k string) bool { return strings.HasPrefix(k, prefix) }
	case strings.HasPrefix(pattern, "*"):
		suffix := strings.TrimPrefix(pattern, "*")
		match = func(k string) bool { return strings.HasSuffix(k, suffix) }
	default:
		match = func(k string) bool { return k == pattern }
	}

	keys := []string{}
	for k := range s.entries {
		if match(k) {
			keys = append(keys, k)
		}
	}
	return s.invalidate(keys)
}

// ClearAll removes all entries and returns how many are removed.
func (s *Store) ClearAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.entries)
	s.entries = map[string]*Entry{}
	s.tags = map[string]map[string]struct{}{}
	s.invalidations += uint64(n)
	return n
}

// Stats returns a snapshot of statistics.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	rate := 0.0
	if total := s.hits + s.misses; 0 < total {
		rate = math.Round(float64(s.hits)/float64(total)*100*100) / 100
	}

	return Stats{
		Size:           len(s.entries),
		MaxSize:        s.maxSize,
		Hits:           s.hits,
		Misses:         s.misses,
		HitRatePercent: rate,
		Evictions:      s.evictions,
		Invalidations:  s.invalidations,
		DistinctTags:   len(s.tags),
	}
}

// Entries returns snapshots of all entries, ordered by key.
//
// Expired entries not swept yet are included, flagged as expired.
func (s *Store) Entries() []EntryInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	ret := make([]EntryInfo, 0, len(s.entries))
	for _, e := range s.entries {
		ret = append(ret, e.info(now))
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Key < ret[j].Key })
	return ret
}

// Sweep removes expired entries, and then evicts least recently used entries
// until the store fits in its size limit.
//
// It returns the numbers of entries removed for expiry and for size.
func (s *Store) Sweep() (expired int, evicted int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.entries {
		if e.Expired(now) {
			s.remove(k)
			expired += 1
		}
	}

	if over := len(s.entries) - s.maxSize; 0 < over {
		lru := make([]*Entry, 0, len(s.entries))
		for _, e := range s.entries {
			lru = append(lru, e)
		}
		sort.Slice(lru, func(i, j int) bool {
			a, b := lru[i], lru[j]
			if !a.LastAccessedAt.Equal(b.LastAccessedAt) {
				return a.LastAccessedAt.Before(b.LastAccessedAt)
			}
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.Key < b.Key
		})
		for _, e := range lru[:over] {
			s.remove(e.Key)
			evicted += 1
		}
	}

	s.evictions += uint64(expired + evicted)
	return expired, evicted
}

// Start runs Sweep periodically in background, until ctx is done or Close is called.
//
// Calling Start on a started store does nothing.
func (s *Store) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		runs := loop.Every(ctx, s.interval, func(context.Context) {
			expired, evicted := s.Sweep()
			if 0 < expired+evicted {
				s.logger.Printf("cache sweep: %d expired, %d evicted", expired, evicted)
			}
		})
		s.logger.Printf("cache sweep stopped after %d runs", runs)
	}()
}

// Close stops the background sweep and drops all entries.
//
// The store is still usable after Close, but the sweep is not running.
func (s *Store) Close() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = map[string]*Entry{}
	s.tags = map[string]map[string]struct{}{}
}

// invalidate removes entries for keys, counting each as an invalidation.
//
// The caller should hold the lock.
func (s *Store) invalidate(keys []string) int {
	n := 0
	for _, k := range keys {
		if s.remove(k) {
			n += 1
		}
	}
	s.invalidations += uint64(n)
	return n
}

// remove drops the entry for key together with its tag memberships.
//
// The caller should hold the lock.
func (s *Store) remove(key string) bool {
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	delete(s.entries, key)
	for t := range e.Tags {
		keys := s.tags[t]
		delete(keys, key)
		if len(keys) == 0 {
			delete(s.tags, t)
		}
	}
	return true
}
