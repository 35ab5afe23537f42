package testutil

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	"github.com/mzalendo/darasa/core/entity"
	"github.com/mzalendo/darasa/core/mutate"
)

// FakeAPI is an in-memory stand-in for the school REST API. It satisfies both
// entity.Fetcher and mutate.Writer so a whole cache + coordinator stack can
// run against it.
type FakeAPI struct {
	mu     sync.RWMutex
	tables map[string]map[int]map[string]interface{}
	order  map[string][]int
	pk     int

	// FailList makes FetchList fail for the given type.
	FailList map[string]error
	// FailWrite makes every write fail.
	FailWrite error
	// BlockWrites, when set, holds each write until the channel yields; used
	// to keep a mutation in flight.
	BlockWrites chan struct{}
	// WriteStarted, when set, receives once per write as it enters the fake,
	// before BlockWrites is consulted.
	WriteStarted chan struct{}

	writes int
}

var (
	_ entity.Fetcher = (*FakeAPI)(nil)
	_ mutate.Writer  = (*FakeAPI)(nil)
)

func NewFakeAPI() *FakeAPI {
	return &FakeAPI{
		tables:   make(map[string]map[int]map[string]interface{}),
		order:    make(map[string][]int),
		FailList: make(map[string]error),
	}
}

// Seed stores a record directly, bypassing the write path. A missing "id"
// gets the next free one. The stored entity is returned.
func (f *FakeAPI) Seed(typ string, fields map[string]interface{}) entity.Entity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.put(typ, fields)
}

func (f *FakeAPI) put(typ string, fields map[string]interface{}) entity.Entity {
	tbl, ok := f.tables[typ]
	if !ok {
		tbl = make(map[int]map[string]interface{})
		f.tables[typ] = tbl
	}

	id, _ := fields["id"].(int)
	if id == 0 {
		if n, ok := fields["id"].(float64); ok {
			id = int(n)
		}
	}
	if id == 0 {
		f.pk++
		id = f.pk
	} else if id > f.pk {
		f.pk = id
	}
	fields["id"] = float64(id) // JSON numbers decode as float64

	if _, exists := tbl[id]; !exists {
		f.order[typ] = append(f.order[typ], id)
	}
	tbl[id] = fields
	return entity.New(typ, fields)
}

// Writes reports how many write calls reached the fake; used to assert the
// one-write-per-submit contract.
func (f *FakeAPI) Writes() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.writes
}

func (f *FakeAPI) FetchList(_ context.Context, typ string) ([]entity.Entity, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if err := f.FailList[typ]; err != nil {
		return nil, err
	}
	ents := make([]entity.Entity, 0, len(f.order[typ]))
	for _, id := range f.order[typ] {
		ents = append(ents, entity.New(typ, clone(f.tables[typ][id])))
	}
	return ents, nil
}

func (f *FakeAPI) gate() {
	if f.WriteStarted != nil {
		f.WriteStarted <- struct{}{}
	}
	if f.BlockWrites != nil {
		<-f.BlockWrites
	}
}

func (f *FakeAPI) Create(_ context.Context, typ string, payload interface{}) (entity.Entity, error) {
	f.gate()
	f.mu.Lock()
	defer f.mu.Unlock()

	f.writes++
	if f.FailWrite != nil {
		return entity.Entity{}, f.FailWrite
	}
	fields, err := toFields(payload)
	if err != nil {
		return entity.Entity{}, err
	}
	return f.put(typ, fields), nil
}

func (f *FakeAPI) Update(_ context.Context, typ string, id int, payload interface{}) (entity.Entity, error) {
	f.gate()
	f.mu.Lock()
	defer f.mu.Unlock()

	f.writes++
	if f.FailWrite != nil {
		return entity.Entity{}, f.FailWrite
	}
	existing, ok := f.tables[typ][id]
	if !ok {
		return entity.Entity{}, errors.Errorf("%s %d not found", typ, id)
	}
	fields, err := toFields(payload)
	if err != nil {
		return entity.Entity{}, err
	}
	for k, v := range fields {
		existing[k] = v
	}
	existing["id"] = float64(id)
	return entity.New(typ, clone(existing)), nil
}

func (f *FakeAPI) Delete(_ context.Context, typ string, id int) error {
	f.gate()
	f.mu.Lock()
	defer f.mu.Unlock()

	f.writes++
	if f.FailWrite != nil {
		return f.FailWrite
	}
	if _, ok := f.tables[typ][id]; !ok {
		return errors.Errorf("%s %d not found", typ, id)
	}
	delete(f.tables[typ], id)
	ids := f.order[typ]
	for i, existing := range ids {
		if existing == id {
			f.order[typ] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

// toFields flattens any payload the way the JSON wire would.
func toFields(payload interface{}) (map[string]interface{}, error) {
	if fp, ok := payload.(*mutate.FilePayload); ok {
		fields, err := toFields(fp.Fields)
		if err != nil {
			return nil, err
		}
		fields[fp.File.Field] = fp.File.Filename
		return fields, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func clone(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// Seed helpers for the common school fixtures.

func SeedClass(f *FakeAPI, name string, capacity, enrolled int) entity.Entity {
	return f.Seed("class", map[string]interface{}{
		"name":               name,
		"capacity":           float64(capacity),
		"current_enrollment": float64(enrolled),
	})
}

func SeedStudent(f *FakeAPI, name string) entity.Entity {
	return f.Seed("student", map[string]interface{}{"name": name})
}

func SeedEnrollment(f *FakeAPI, studentID, classID int) entity.Entity {
	return f.Seed("enrollment", map[string]interface{}{
		"student_id": float64(studentID),
		"class_id":   float64(classID),
	})
}

func SeedAttendance(f *FakeAPI, studentID, classID int, date, status string) entity.Entity {
	return f.Seed("attendance", map[string]interface{}{
		"student_id": float64(studentID),
		"class_id":   float64(classID),
		"date":       date,
		"status":     status,
	})
}

func SeedFee(f *FakeAPI, studentID int, title string, amount float64, dueDate string, paid bool) entity.Entity {
	return f.Seed("fee", map[string]interface{}{
		"student_id": float64(studentID),
		"title":      title,
		"amount":     amount,
		"due_date":   dueDate,
		"paid":       paid,
	})
}
