package entity

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/mzalendo/darasa/core"
)

// Fetcher retrieves a full collection from the school API. List endpoints
// always return the whole (tenant-scoped) collection; narrowing happens
// client-side.
type Fetcher interface {
	FetchList(ctx context.Context, typ string) ([]Entity, error)
}

// State of a cached collection.
type State int

const (
	StateNotFetched State = iota
	StateFetched
	StateStale
)

// ErrSuperseded reports that the cache was reset while a fetch was in flight;
// the late result was discarded and the resolution should be re-issued.
var ErrSuperseded = errors.New("view superseded")

type table struct {
	state State
	rows  map[int]*Entity
	order []int // ids in API list order, appended-to by Put
	err   error // last fetch failure, cleared on success
}

// Cache holds fetched collections keyed by entity type and id. It is the only
// shared mutable resource; everything else derives from it.
type Cache struct {
	mu      sync.RWMutex
	fetcher Fetcher
	logger  core.Logger
	tables  map[string]*table
	gen     uint64
}

func NewCache(fetcher Fetcher, logger core.Logger) *Cache {
	return &Cache{
		fetcher: fetcher,
		logger:  logger,
		tables:  make(map[string]*table),
	}
}

// Generation increments whenever the cache is reset. Resolutions capture it
// before fetching and discard late results minted for an older view.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// Get returns the cached collection for typ, fetching it first if it was
// never fetched or was invalidated. When ids are given only those entities
// are returned, in the given order, skipping ids with no match.
//
// A failed refetch keeps prior contents: the stale entities are returned
// together with the FetchError so views can render old data with a warning.
func (c *Cache) Get(ctx context.Context, typ string, ids ...int) ([]Entity, error) {
	c.mu.RLock()
	tbl, ok := c.tables[typ]
	if ok && tbl.state == StateFetched {
		ents := c.snapshot(tbl, ids)
		c.mu.RUnlock()
		return ents, nil
	}
	gen := c.gen
	c.mu.RUnlock()

	ents, err := c.fetcher.FetchList(ctx, typ)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		if !core.IsFetchError(err) {
			err = core.NewFetchError(typ, 0, err)
		}
		tbl := c.table(typ)
		tbl.err = err
		if c.logger != nil {
			c.logger.Warn("cache: "+err.Error(), err)
		}
		if len(tbl.rows) > 0 {
			// stale-while-error: keep serving what we had
			return c.snapshot(tbl, ids), err
		}
		return nil, err
	}

	if c.gen != gen {
		return nil, ErrSuperseded
	}

	// a successful list fetch is authoritative for the whole collection
	tbl = c.table(typ)
	tbl.rows = make(map[int]*Entity, len(ents))
	tbl.order = make([]int, 0, len(ents))
	for i := range ents {
		e := ents[i]
		if _, dup := tbl.rows[e.ID]; !dup {
			tbl.order = append(tbl.order, e.ID)
		}
		tbl.rows[e.ID] = &e // later fetch wins
	}
	tbl.state = StateFetched
	tbl.err = nil

	return c.snapshot(tbl, ids), nil
}

// Put merges entities into the cache, keyed by id; the incoming entity wins
// on conflict. It does not change the collection's state.
func (c *Cache) Put(typ string, ents ...Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tbl := c.table(typ)
	if tbl.rows == nil {
		tbl.rows = make(map[int]*Entity, len(ents))
	}
	for i := range ents {
		e := ents[i]
		if _, ok := tbl.rows[e.ID]; !ok {
			tbl.order = append(tbl.order, e.ID)
		}
		tbl.rows[e.ID] = &e
	}
}

// Lookup returns a single cached entity without triggering a fetch.
func (c *Cache) Lookup(typ string, id int) (Entity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tbl, ok := c.tables[typ]
	if !ok {
		return Entity{}, false
	}
	e, ok := tbl.rows[id]
	if !ok {
		return Entity{}, false
	}
	return *e, true
}

// All returns a snapshot of the cached collection, in list order, without
// triggering a fetch.
func (c *Cache) All(typ string) []Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tbl, ok := c.tables[typ]
	if !ok {
		return nil
	}
	return c.snapshot(tbl, nil)
}

// Invalidate marks the given collections stale; the next Get refetches them.
func (c *Cache) Invalidate(types ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, typ := range types {
		tbl := c.table(typ)
		if tbl.state == StateFetched {
			tbl.state = StateStale
		}
	}
}

// Reset discards everything and bumps the generation so in-flight fetches for
// the previous view are dropped on arrival. Called when the consuming view
// unmounts or its key inputs change.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tables = make(map[string]*table)
	c.gen++
}

// State reports the fetch state of a collection.
func (c *Cache) State(typ string) State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if tbl, ok := c.tables[typ]; ok {
		return tbl.state
	}
	return StateNotFetched
}

// Err returns the last fetch failure recorded for a collection, nil if the
// last fetch succeeded.
func (c *Cache) Err(typ string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if tbl, ok := c.tables[typ]; ok {
		return tbl.err
	}
	return nil
}

// table returns the collection for typ, creating it if needed. Callers must
// hold the write lock.
func (c *Cache) table(typ string) *table {
	tbl, ok := c.tables[typ]
	if !ok {
		tbl = &table{rows: make(map[int]*Entity)}
		c.tables[typ] = tbl
	}
	return tbl
}

// snapshot copies entities out of a table. Callers must hold at least the
// read lock.
func (c *Cache) snapshot(tbl *table, ids []int) []Entity {
	if ids != nil {
		ents := make([]Entity, 0, len(ids))
		for _, id := range ids {
			if e, ok := tbl.rows[id]; ok {
				ents = append(ents, *e)
			}
		}
		return ents
	}
	ents := make([]Entity, 0, len(tbl.order))
	for _, id := range tbl.order {
		if e, ok := tbl.rows[id]; ok {
			ents = append(ents, *e)
		}
	}
	return ents
}
