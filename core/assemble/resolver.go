package assemble

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/mzalendo/darasa/core"
	"github.com/mzalendo/darasa/core/entity"
)

// Query declares everything a view needs resolved: the root collection, the
// static relation list, optional root narrowing and an optional row order.
type Query struct {
	Root       string
	RootIDs    []int                    // keep only these root ids (nil = all)
	RootFilter func(entity.Entity) bool // extra root predicate (nil = all)
	Relations  []Relation
	Less       func(a, b Row) bool // nil keeps collection order
}

// Resolver joins cached collections along declared relations.
type Resolver struct {
	cache  *entity.Cache
	logger core.Logger
}

func NewResolver(cache *entity.Cache, logger core.Logger) *Resolver {
	return &Resolver{cache: cache, logger: logger}
}

// Resolve fetches every collection the query touches (concurrently, through
// the cache) and joins them breadth-first. Root row order is preserved unless
// the query declares its own.
//
// A relation whose collection failed to load degrades to pending refs; only a
// root collection with no usable data at all fails the resolve. Late results
// that raced a cache reset return entity.ErrSuperseded.
func (r *Resolver) Resolve(ctx context.Context, q Query) ([]Row, error) {
	gen := r.cache.Generation()

	// fan-out: the root and every distinct relation target, fetched jointly
	types := []string{q.Root}
	seen := map[string]bool{q.Root: true}
	for _, rel := range q.Relations {
		if !seen[rel.Type] {
			seen[rel.Type] = true
			types = append(types, rel.Type)
		}
	}

	errs := make([]error, len(types))
	g, gctx := errgroup.WithContext(ctx)
	for i, typ := range types {
		i, typ := i, typ
		g.Go(func() error {
			_, errs[i] = r.cache.Get(gctx, typ)
			return nil
		})
	}
	_ = g.Wait()

	failed := make(map[string]bool, len(types))
	for i, typ := range types {
		switch err := errs[i]; {
		case err == nil:
		case err == entity.ErrSuperseded:
			return nil, err
		default:
			failed[typ] = true
		}
	}
	if r.cache.Generation() != gen {
		return nil, entity.ErrSuperseded
	}

	roots := r.cache.All(q.Root)
	if len(roots) == 0 && failed[q.Root] {
		return nil, errs[0]
	}
	if failed[q.Root] && r.logger != nil {
		r.logger.Warn("resolve: serving stale "+q.Root+" rows", errs[0])
	}

	rows := make([]Row, 0, len(roots))
	keep := rootKeeper(q)
	for _, root := range roots {
		if keep(root) {
			rows = append(rows, Row{Root: root, Rel: map[string]Ref{}})
		}
	}

	for _, rel := range q.Relations {
		if rel.Expand {
			rows = r.expand(rows, rel, failed[rel.Type])
		} else {
			r.attach(rows, rel, failed[rel.Type])
		}
	}

	if q.Less != nil {
		sort.SliceStable(rows, func(i, j int) bool { return q.Less(rows[i], rows[j]) })
	}
	return rows, nil
}

// attach resolves a many-to-one relation in place: each row gets exactly one
// Ref under the relation's alias.
func (r *Resolver) attach(rows []Row, rel Relation, typeFailed bool) {
	alias := rel.alias()
	for i := range rows {
		src, ok := source(rows[i], rel)
		if !ok {
			rows[i].Rel[alias] = Ref{Kind: RefAbsent, Type: rel.Type}
			continue
		}
		fk := src.FK(rel.Field)
		if !fk.Valid {
			rows[i].Rel[alias] = Ref{Kind: RefAbsent, Type: rel.Type}
			continue
		}
		id := int(fk.Int)
		if typeFailed {
			rows[i].Rel[alias] = Ref{Kind: RefPending, Type: rel.Type, ID: id}
			continue
		}
		if target, ok := r.cache.Lookup(rel.Type, id); ok {
			rows[i].Rel[alias] = Ref{Kind: RefLoaded, Type: rel.Type, ID: id, Entity: target}
		} else {
			rows[i].Rel[alias] = Ref{Kind: RefMissing, Type: rel.Type, ID: id}
		}
	}
}

// expand resolves a one-to-many relation: each row fans out into one row per
// child. Rows without children survive with an absent ref so nothing is
// silently dropped.
func (r *Resolver) expand(rows []Row, rel Relation, typeFailed bool) []Row {
	alias := rel.alias()

	// index children by their back-reference, preserving collection order
	children := map[int][]entity.Entity{}
	for _, child := range r.cache.All(rel.Type) {
		if fk := child.FK(rel.Field); fk.Valid {
			children[int(fk.Int)] = append(children[int(fk.Int)], child)
		}
	}

	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		src, ok := source(row, rel)
		if !ok {
			row.Rel[alias] = Ref{Kind: RefAbsent, Type: rel.Type}
			out = append(out, row)
			continue
		}
		if typeFailed {
			row.Rel[alias] = Ref{Kind: RefPending, Type: rel.Type}
			out = append(out, row)
			continue
		}
		kids := children[src.ID]
		if len(kids) == 0 {
			row.Rel[alias] = Ref{Kind: RefAbsent, Type: rel.Type}
			out = append(out, row)
			continue
		}
		for _, kid := range kids {
			next := Row{Root: row.Root, Rel: cloneRefs(row.Rel)}
			next.Rel[alias] = Ref{Kind: RefLoaded, Type: rel.Type, ID: kid.ID, Entity: kid}
			out = append(out, next)
		}
	}
	return out
}

// source picks the entity a relation reads its FK from: the root, or a
// previously joined alias.
func source(row Row, rel Relation) (entity.Entity, bool) {
	if rel.From == "" {
		return row.Root, true
	}
	ref, ok := row.Rel[rel.From]
	if !ok || ref.Kind != RefLoaded {
		return entity.Entity{}, false
	}
	return ref.Entity, true
}

func rootKeeper(q Query) func(entity.Entity) bool {
	var wanted map[int]bool
	if q.RootIDs != nil {
		wanted = make(map[int]bool, len(q.RootIDs))
		for _, id := range q.RootIDs {
			wanted[id] = true
		}
	}
	return func(e entity.Entity) bool {
		if wanted != nil && !wanted[e.ID] {
			return false
		}
		if q.RootFilter != nil && !q.RootFilter(e) {
			return false
		}
		return true
	}
}

func cloneRefs(rel map[string]Ref) map[string]Ref {
	out := make(map[string]Ref, len(rel)+1)
	for k, v := range rel {
		out[k] = v
	}
	return out
}
