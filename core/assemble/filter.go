package assemble

import (
	"fmt"
	"strings"

	"github.com/mzalendo/darasa/core"
)

// SearchField names one searchable field of a view: a root or joined entity
// field, or a derived field.
type SearchField struct {
	Rel     string // alias of the joined entity; "" reads the root
	Field   string
	Derived bool
}

// Search keeps the rows whose declared searchable fields contain the query,
// case-insensitively. An empty query keeps everything. Pure: the input slice
// is never modified.
func Search(rows []ViewRow, query string, fields ...SearchField) []ViewRow {
	query = core.CleanString(query, true /* lower */)
	if query == "" {
		return rows
	}

	out := make([]ViewRow, 0, len(rows))
	for _, row := range rows {
		if matches(row, query, fields) {
			out = append(out, row)
		}
	}
	return out
}

// Filter keeps the rows satisfying the predicate. Pure.
func Filter(rows []ViewRow, pred func(ViewRow) bool) []ViewRow {
	out := make([]ViewRow, 0, len(rows))
	for _, row := range rows {
		if pred(row) {
			out = append(out, row)
		}
	}
	return out
}

func matches(row ViewRow, query string, fields []SearchField) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(fieldText(row, f)), query) {
			return true
		}
	}
	return false
}

func fieldText(row ViewRow, f SearchField) string {
	if f.Derived {
		v, ok := row.Derived[f.Field]
		if !ok || IsUnavailable(v) {
			return ""
		}
		return fmt.Sprintf("%v", v)
	}
	if f.Rel != "" {
		ref := row.Ref(f.Rel)
		if f.Field == "" {
			return ref.Label()
		}
		if ref.Kind != RefLoaded {
			return ""
		}
		return ref.Entity.String(f.Field)
	}
	return row.Root.String(f.Field)
}
