// Package rollback retains configuration snapshots taken before applies.
//
// A snapshot is addressed by its rollback key:
//
//	{kind}:{namespace}:{name}:{timestamp}
//
// where timestamp is RFC3339 with nanoseconds, in UTC.
//
// The store is bounded. Each resource keeps at most MaxRecords snapshots
// (the oldest is dropped first), and snapshots older than MaxAge are pruned on Put.
package rollback

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/opst/wlconf/pkg/conftree"
	"github.com/opst/wlconf/pkg/domain"
)

const DefaultMaxRecords = 50

// Record is a snapshot retained for rollback.
type Record struct {
	Key       string
	Resource  domain.Identity
	Snapshot  conftree.Tree
	Actor     string
	CreatedAt time.Time
}

// Key makes the rollback key of a snapshot of the resource taken at t.
func Key(id domain.Identity, t time.Time) string {
	return id.Kind.String() + ":" + id.Namespace + ":" + id.Name + ":" + t.UTC().Format(time.RFC3339Nano)
}

type Store struct {
	mu sync.Mutex

	records map[string]*Record

	// keys per resource, oldest first
	byResource map[domain.Identity][]string

	maxRecords int
	maxAge     time.Duration
	now        func() time.Time
	logger     *log.Logger
}

type Option func(*Store) *Store

// WithMaxRecords sets the number of snapshots kept per resource.
//
// Non positive value is ignored.
func WithMaxRecords(n int) Option {
	return func(s *Store) *Store {
		if 0 < n {
			s.maxRecords = n
		}
		return s
	}
}

// WithMaxAge sets the lifetime of snapshots. 0 means unlimited.
func WithMaxAge(d time.Duration) Option {
	return func(s *Store) *Store {
		s.maxAge = d
		return s
	}
}

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

func New(options ...Option) *Store {
	s := &Store{
		records:    map[string]*Record{},
		byResource: map[domain.Identity][]string{},
		maxRecords: DefaultMaxRecords,
		now:        time.Now,
		logger:     log.Default(),
	}
	for _, opt := range options {
		s = opt(s)
	}
	return s
}

// Put retains a snapshot of the resource, and returns its record.
//
// The snapshot is cloned. When a record with the same key exists, it is replaced.
func (s *Store) Put(id domain.Identity, snapshot conftree.Tree, actor string) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec := &Record{
		Key:       Key(id, now),
		Resource:  id,
		Snapshot:  conftree.Clone(snapshot),
		Actor:     actor,
		CreatedAt: now,
	}

	if _, ok := s.records[rec.Key]; !ok {
		s.byResource[id] = append(s.byResource[id], rec.Key)
	}
	s.records[rec.Key] = rec

	s.prune(now)
	if keys := s.byResource[id]; s.maxRecords < len(keys) {
		drop := keys[:len(keys)-s.maxRecords]
		for _, k := range drop {
			delete(s.records, k)
		}
		s.byResource[id] = append([]string{}, keys[len(drop):]...)
		s.logger.Printf("rollback: %d old snapshot(s) of %s are dropped", len(drop), id)
	}

	return copyOf(rec)
}

// Get returns the record for key.
//
// The second return value is false when it is not retained.
func (s *Store) Get(key string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return Record{}, false
	}
	if s.maxAge > 0 && s.now().Sub(rec.CreatedAt) > s.maxAge {
		return Record{}, false
	}
	return copyOf(rec), true
}

// List returns records of the resource, newest first.
func (s *Store) List(id domain.Identity) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	keys := s.byResource[id]
	ret := make([]Record, 0, len(keys))
	for _, k := range keys {
		rec := s.records[k]
		if s.maxAge > 0 && now.Sub(rec.CreatedAt) > s.maxAge {
			continue
		}
		ret = append(ret, copyOf(rec))
	}
	sort.SliceStable(ret, func(i, j int) bool { return ret[i].CreatedAt.After(ret[j].CreatedAt) })
	return ret
}

// Len returns the number of retained records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// prune drops records older than maxAge. The caller should hold the lock.
func (s *Store) prune(now time.Time) {
	if s.maxAge <= 0 {
		return
	}
	for id, keys := range s.byResource {
		kept := keys[:0]
		for _, k := range keys {
			if now.Sub(s.records[k].CreatedAt) > s.maxAge {
				delete(s.records, k)
				continue
			}
			kept = append(kept, k)
		}
		if len(kept) == 0 {
			delete(s.byResource, id)
		} else {
			s.byResource[id] = kept
		}
	}
}

func copyOf(rec *Record) Record {
	r := *rec
	r.Snapshot = conftree.Clone(rec.Snapshot)
	return r
}
