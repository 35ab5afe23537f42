package mutate

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/mzalendo/darasa/core"
	"github.com/mzalendo/darasa/core/entity"
)

// Op is a write operation against the school API.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Writer performs exactly one network write per call against the school API.
type Writer interface {
	Create(ctx context.Context, typ string, payload interface{}) (entity.Entity, error)
	Update(ctx context.Context, typ string, id int, payload interface{}) (entity.Entity, error)
	Delete(ctx context.Context, typ string, id int) error
}

// Invalidator marks cached collections stale. *entity.Cache satisfies it.
type Invalidator interface {
	Invalidate(types ...string)
}

// Result reports a confirmed write: the returned resource (zero on delete)
// and the collections invalidated because of it.
type Result struct {
	Entity      entity.Entity
	Invalidated []string
}

type target struct {
	typ string
	id  int
}

// Coordinator funnels all writes. It serializes submissions per (type, id) —
// a second mutation on an in-flight target is rejected with a ConflictError
// rather than racing — and invalidates the cache strictly after the server
// acknowledges, never before.
type Coordinator struct {
	mu       sync.Mutex
	inflight map[target]bool

	writer     Writer
	cache      Invalidator
	dependents map[string][]string // type -> extra types invalidated with it
	logger     core.Logger
}

func NewCoordinator(writer Writer, cache Invalidator, dependents map[string][]string, logger core.Logger) *Coordinator {
	return &Coordinator{
		inflight:   make(map[target]bool),
		writer:     writer,
		cache:      cache,
		dependents: dependents,
		logger:     logger,
	}
}

// Submit performs one write. id is the mutated resource for update/delete and
// 0 for create (creates serialize per type). On success the mutated type and
// its declared dependents are invalidated; on failure the cache is untouched
// and the structured error is returned as-is.
func (c *Coordinator) Submit(ctx context.Context, op Op, typ string, id int, payload interface{}) (Result, error) {
	tgt := target{typ: typ, id: id}

	c.mu.Lock()
	if c.inflight[tgt] {
		c.mu.Unlock()
		return Result{}, &core.ConflictError{Type: typ, TargetID: id}
	}
	c.inflight[tgt] = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inflight, tgt)
		c.mu.Unlock()
	}()

	var res Result
	var err error
	switch op {
	case OpCreate:
		res.Entity, err = c.writer.Create(ctx, typ, payload)
	case OpUpdate:
		res.Entity, err = c.writer.Update(ctx, typ, id, payload)
	case OpDelete:
		err = c.writer.Delete(ctx, typ, id)
	default:
		return Result{}, errors.Errorf("unknown operation %q", op)
	}
	if err != nil {
		if c.logger != nil && !core.IsValidationError(err) {
			c.logger.Error("mutation "+string(op)+" "+typ+" failed", err)
		}
		return Result{}, err
	}

	// invalidate only once the write is confirmed
	res.Invalidated = c.invalidated(typ)
	c.cache.Invalidate(res.Invalidated...)
	return res, nil
}

func (c *Coordinator) invalidated(typ string) []string {
	out := []string{typ}
	seen := map[string]bool{typ: true}
	for _, dep := range c.dependents[typ] {
		if !seen[dep] {
			seen[dep] = true
			out = append(out, dep)
		}
	}
	return out
}
