package mixin

import (
	"runtime"
	"sync"
	"weak"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"
)

// Store memoizes (base, mixin) -> class.
//
// The first tier is one table per base class. The table hangs off the base
// itself, so it lives exactly as long as the base does. The store keeps only a
// weak index of those tables, striped over shards, for Reset and the counters.
// The second tier is keyed by a weak pointer to the mixin, so a cached result
// never keeps its mixin alive either.
type Store struct {
	shards []*shard
}

type shard struct {
	mu    sync.Mutex
	bases map[weak.Pointer[Class]]weak.Pointer[table]
}

type table struct {
	mu      sync.Mutex
	entries map[weak.Pointer[Mixin]]*Class
	swept   uint64

	// flight collapses concurrent misses on the same mixin into one call.
	flight singleflight.Group
}

// NewStore returns an empty store with the given number of index shards.
// A non-positive count falls back to 1.
func NewStore(shards int) *Store {
	if shards <= 0 {
		shards = 1
	}
	s := &Store{shards: make([]*shard, shards)}
	for i := range s.shards {
		s.shards[i] = &shard{bases: map[weak.Pointer[Class]]weak.Pointer[table]{}}
	}
	return s
}

// Lookup returns the class memoized for (base, m). It never creates anything.
func (s *Store) Lookup(base *Class, m *Mixin) (*Class, bool) {
	t := s.tableOf(base)
	if t == nil {
		return nil, false
	}
	return t.load(m)
}

// Store records c for (base, m) unless an entry already exists.
// It returns the class now held for the pair and whether this call inserted it.
// An existing entry is never overwritten.
func (s *Store) Store(base *Class, m *Mixin, c *Class) (*Class, bool) {
	return s.ensureTable(base).insert(m, c)
}

// Reset drops every table held by s. Classes already returned stay valid.
func (s *Store) Reset() {
	for _, sh := range s.shards {
		sh.mu.Lock()
		for wb := range sh.bases {
			if b := wb.Value(); b != nil {
				b.tables.Delete(s)
			}
		}
		clear(sh.bases)
		sh.mu.Unlock()
	}
}

// Bases returns the number of live base classes with a table in s.
func (s *Store) Bases() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for wb := range sh.bases {
			if wb.Value() != nil {
				n++
			}
		}
		sh.mu.Unlock()
	}
	return n
}

// Entries returns the number of cached results whose mixin is still alive.
func (s *Store) Entries() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		tables := make([]*table, 0, len(sh.bases))
		for _, wt := range sh.bases {
			if t := wt.Value(); t != nil {
				tables = append(tables, t)
			}
		}
		sh.mu.Unlock()
		for _, t := range tables {
			n += t.len()
		}
	}
	return n
}

func (s *Store) shardOf(base *Class) *shard {
	if len(s.shards) == 1 {
		return s.shards[0]
	}
	h := xxhash.Sum64(base.id[:])
	return s.shards[h%uint64(len(s.shards))]
}

func (s *Store) tableOf(base *Class) *table {
	if v, ok := base.tables.Load(s); ok {
		return v.(*table)
	}
	return nil
}

func (s *Store) ensureTable(base *Class) *table {
	if t := s.tableOf(base); t != nil {
		return t
	}
	fresh := &table{entries: map[weak.Pointer[Mixin]]*Class{}, swept: collected.Load()}
	v, loaded := base.tables.LoadOrStore(s, fresh)
	t := v.(*table)
	if loaded {
		return t
	}

	wb := weak.Make(base)
	sh := s.shardOf(base)
	sh.mu.Lock()
	sh.bases[wb] = weak.Make(t)
	sh.mu.Unlock()
	runtime.AddCleanup(base, func(wb weak.Pointer[Class]) {
		sh.mu.Lock()
		delete(sh.bases, wb)
		sh.mu.Unlock()
	}, wb)
	return t
}

func (t *table) load(m *Mixin) (*Class, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.entries[weak.Make(m)]
	return c, ok
}

func (t *table) insert(m *Mixin, c *Class) (*Class, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sweep()
	key := weak.Make(m)
	if existing, ok := t.entries[key]; ok {
		return existing, false
	}
	t.entries[key] = c
	return c, true
}

func (t *table) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for wm := range t.entries {
		if wm.Value() != nil {
			n++
		}
	}
	return n
}

// sweep drops entries whose mixin has been collected. It only walks the table
// when some mixin was collected since the last sweep. Callers hold t.mu.
func (t *table) sweep() {
	gen := collected.Load()
	if gen == t.swept {
		return
	}
	for wm := range t.entries {
		if wm.Value() == nil {
			delete(t.entries, wm)
		}
	}
	t.swept = gen
}
