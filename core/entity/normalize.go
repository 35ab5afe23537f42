package entity

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// NormalizeList decodes a list payload from the school API. List endpoints
// return either a bare JSON array or a {"results": [...]} envelope; both are
// accepted here so no caller ever branches on payload shape again.
func NormalizeList(typ string, body []byte) ([]Entity, error) {
	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, errors.Wrapf(err, "decoding %s list", typ)
	}

	var raw []interface{}
	switch v := decoded.(type) {
	case []interface{}:
		raw = v
	case map[string]interface{}:
		results, ok := v["results"].([]interface{})
		if !ok {
			return nil, errors.Errorf("decoding %s list: no results array", typ)
		}
		raw = results
	default:
		return nil, errors.Errorf("decoding %s list: unexpected payload shape", typ)
	}

	ents := make([]Entity, 0, len(raw))
	for _, item := range raw {
		fields, ok := item.(map[string]interface{})
		if !ok {
			return nil, errors.Errorf("decoding %s list: element is not an object", typ)
		}
		ents = append(ents, New(typ, fields))
	}
	return ents, nil
}

// NormalizeOne decodes a single resource payload, as returned by write
// endpoints.
func NormalizeOne(typ string, body []byte) (Entity, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return Entity{}, errors.Wrapf(err, "decoding %s", typ)
	}
	return New(typ, fields), nil
}
