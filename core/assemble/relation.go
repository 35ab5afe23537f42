package assemble

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mzalendo/darasa/core/entity"
)

// Relation declares one foreign-key join of a view. Relations are static per
// view; nothing is discovered at runtime.
//
// With Expand unset the relation is many-to-one: Field names the FK on the
// source entity and the matching target entity is attached under Alias.
// With Expand set it is one-to-many: Field names the FK on the target type
// pointing back at the source, and each source row fans out into one row per
// matching child (a row with no children is kept, with an absent ref).
type Relation struct {
	From   string // alias of the source entity; "" means the root
	Field  string // foreign-key field name
	Type   string // target entity type
	Alias  string // key the target is attached under; defaults to Type
	Expand bool
}

func (r Relation) alias() string {
	if r.Alias != "" {
		return r.Alias
	}
	return r.Type
}

// RefKind tells a renderer how to treat a joined target.
type RefKind int

const (
	// RefPending: the target collection could not be loaded (yet).
	RefPending RefKind = iota
	// RefLoaded: the matching entity was found.
	RefLoaded
	// RefMissing: the FK was set but no such entity exists; render a placeholder.
	RefMissing
	// RefAbsent: the FK itself was null; render "N/A", not "Loading".
	RefAbsent
)

// Ref is a resolved relation target attached to a row. It is never nil or
// missing: every declared relation resolves to exactly one Ref per row.
type Ref struct {
	Kind   RefKind
	Type   string
	ID     int           // FK value; 0 when absent
	Entity entity.Entity // zero unless Kind == RefLoaded
}

// Label renders the ref for display: the entity label, a "Student 42" style
// placeholder, "N/A" for an absent FK, or an em-free loading marker.
func (r Ref) Label() string {
	switch r.Kind {
	case RefLoaded:
		return r.Entity.Label()
	case RefMissing:
		return fmt.Sprintf("%s %d", strings.Title(r.Type), r.ID)
	case RefAbsent:
		return "N/A"
	}
	return "..."
}

func (r Ref) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case RefLoaded:
		return json.Marshal(r.Entity)
	case RefMissing:
		return json.Marshal(map[string]interface{}{"id": r.ID, "name": r.Label(), "missing": true})
	default:
		return []byte("null"), nil
	}
}

// Row is one joined result: a root entity plus one Ref per declared relation
// alias.
type Row struct {
	Root entity.Entity
	Rel  map[string]Ref
}

// Ref returns the resolved target for alias. The zero Ref (RefPending) comes
// back for aliases the view never declared.
func (row Row) Ref(alias string) Ref {
	return row.Rel[alias]
}

// Field reads a field off the root entity; kept so derivations read uniformly
// through the row.
func (row Row) Field(name string) interface{} {
	return row.Root.Fields[name]
}
