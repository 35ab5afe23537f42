package entity

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
)

// Entity is a single fetched record of a given type (student, class, fee...).
// It is immutable once cached; mutations go through the remote API and
// invalidate the cache instead of touching fetched records.
type Entity struct {
	ID     int
	Type   string
	Fields map[string]interface{}
}

// New builds an Entity from a decoded JSON object. The "id" field is
// promoted; everything else stays in Fields as-is.
func New(typ string, fields map[string]interface{}) Entity {
	e := Entity{Type: typ, Fields: fields}
	if fields != nil {
		e.ID = toInt(fields["id"])
	}
	return e
}

func (e Entity) IsZero() bool { return e.Type == "" && e.ID == 0 && e.Fields == nil }

// String returns the named field as a string ("" when absent or not a string).
func (e Entity) String(field string) string {
	s, _ := e.Fields[field].(string)
	return s
}

// Int returns the named field as an int. JSON numbers decode as float64.
func (e Entity) Int(field string) int {
	return toInt(e.Fields[field])
}

func (e Entity) Float(field string) float64 {
	switch v := e.Fields[field].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	}
	return 0
}

func (e Entity) Bool(field string) bool {
	b, _ := e.Fields[field].(bool)
	return b
}

// Time parses the named field as RFC3339 or a bare "2006-01-02" date.
func (e Entity) Time(field string) time.Time {
	s, ok := e.Fields[field].(string)
	if !ok {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	return time.Time{}
}

// FK returns the named foreign-key field. A JSON null, a missing field or a
// non-numeric value all yield an invalid null.Int, which joins treat as an
// explicit "absent" target rather than an error.
func (e Entity) FK(field string) null.Int {
	v, ok := e.Fields[field]
	if !ok || v == nil {
		return null.Int{}
	}
	switch n := v.(type) {
	case float64:
		return null.IntFrom(int(n))
	case int:
		return null.IntFrom(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return null.Int{}
		}
		return null.IntFrom(int(i))
	}
	return null.Int{}
}

// Label returns a human identifier for the entity: the first of name, title,
// full_name or username, falling back to "Type ID".
func (e Entity) Label() string {
	for _, f := range []string{"name", "title", "full_name", "username"} {
		if s := e.String(f); s != "" {
			return s
		}
	}
	return fmt.Sprintf("%s %d", strings.Title(e.Type), e.ID)
}

// MarshalJSON renders the entity as its fields with "id" merged in, the shape
// dashboards expect.
func (e Entity) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(e.Fields)+1)
	for k, v := range e.Fields {
		out[k] = v
	}
	out["id"] = e.ID
	return json.Marshal(out)
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	}
	return 0
}
