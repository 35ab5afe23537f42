package assemble

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/mzalendo/darasa/core"
)

// Derivation is a pure computed field of a view row.
type Derivation struct {
	Field string
	Fn    func(Row) (interface{}, error)
}

// unavailable marks a derived field whose computation failed for this row.
type unavailable struct{}

func (unavailable) String() string               { return "n/a" }
func (unavailable) MarshalJSON() ([]byte, error) { return []byte(`"n/a"`), nil }

// Unavailable is the value a failed derivation yields. The row itself is
// always kept.
var Unavailable unavailable

// IsUnavailable reports whether a derived value is the failure marker.
func IsUnavailable(v interface{}) bool {
	_, ok := v.(unavailable)
	return ok
}

// ViewRow is a joined row plus its derived fields: the final render-ready
// shape. Derived fields are recomputed on every build and never mutated.
type ViewRow struct {
	Row
	Derived map[string]interface{}
}

func (vr ViewRow) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		vr.Root.Type: vr.Root,
	}
	for alias, ref := range vr.Rel {
		out[alias] = ref
	}
	for field, v := range vr.Derived {
		out[field] = v
	}
	return json.Marshal(out)
}

// Build computes every derivation for every row. A derivation error (or
// panic) is isolated to its own field of its own row: the value becomes
// Unavailable and the row is still emitted, so len(out) == len(rows) always.
func Build(rows []Row, derivs []Derivation, logger core.Logger) []ViewRow {
	out := make([]ViewRow, 0, len(rows))
	for _, row := range rows {
		vr := ViewRow{Row: row, Derived: make(map[string]interface{}, len(derivs))}
		for _, d := range derivs {
			v, err := derive(d, row)
			if err != nil {
				if logger != nil {
					logger.Debug(core.DerivationError{Field: d.Field, Err: err}.Error())
				}
				v = Unavailable
			}
			vr.Derived[d.Field] = v
		}
		out = append(out, vr)
	}
	return out
}

func derive(d Derivation, row Row) (v interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()
	return d.Fn(row)
}
