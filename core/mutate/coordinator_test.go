package mutate_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"

	"github.com/mzalendo/darasa/core"
	"github.com/mzalendo/darasa/core/entity"
	"github.com/mzalendo/darasa/core/mutate"
	testutil "github.com/mzalendo/darasa/tests"
)

func setup(t *testing.T, dependents map[string][]string) (*testutil.FakeAPI, *entity.Cache, *mutate.Coordinator) {
	t.Helper()
	api := testutil.NewFakeAPI()
	cache := entity.NewCache(api, nil)
	return api, cache, mutate.NewCoordinator(api, cache, dependents, nil)
}

func TestSubmitCreateRoundTrip(t *testing.T) {
	ctx := context.Background()
	api, cache, coord := setup(t, nil)

	// warm the cache so the invalidation is observable
	if _, err := cache.Get(ctx, "fee"); err != nil {
		t.Fatalf("warm fetch failed: %v", err)
	}

	res, err := coord.Submit(ctx, mutate.OpCreate, "fee", 0, map[string]interface{}{
		"student_id": 5, "title": "Tuition", "amount": 100,
	})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if res.Entity.ID == 0 {
		t.Fatal("created entity has no id")
	}
	if got := api.Writes(); got != 1 {
		t.Errorf("api writes = %d, want exactly 1", got)
	}
	if got := cache.State("fee"); got != entity.StateStale {
		t.Errorf("fee cache state = %v, want StateStale after confirmed write", got)
	}

	// the next read refetches and includes the new record
	fees, err := cache.Get(ctx, "fee")
	if err != nil {
		t.Fatalf("refetch failed: %v", err)
	}
	if len(fees) != 1 || fees[0].String("title") != "Tuition" {
		t.Errorf("refetched fees = %v, want the created Tuition fee", fees)
	}
}

func TestSubmitFailureLeavesCacheUntouched(t *testing.T) {
	ctx := context.Background()
	api, cache, coord := setup(t, nil)
	testutil.SeedFee(api, 5, "Tuition", 100, "2026-01-01", false)

	if _, err := cache.Get(ctx, "fee"); err != nil {
		t.Fatalf("warm fetch failed: %v", err)
	}
	api.FailWrite = errors.New("server exploded")

	_, err := coord.Submit(ctx, mutate.OpUpdate, "fee", 1, map[string]interface{}{"paid": true})
	if err == nil {
		t.Fatal("Submit() succeeded despite the write failing")
	}
	if got := cache.State("fee"); got != entity.StateFetched {
		t.Errorf("fee cache state = %v, want StateFetched (failed writes must not invalidate)", got)
	}
}

func TestSubmitConflictOnBusyTarget(t *testing.T) {
	ctx := context.Background()
	api, _, coord := setup(t, nil)
	testutil.SeedFee(api, 5, "Tuition", 100, "2026-01-01", false)
	api.BlockWrites = make(chan struct{})
	api.WriteStarted = make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := coord.Submit(ctx, mutate.OpUpdate, "fee", 1, map[string]interface{}{"paid": true}); err != nil {
			t.Errorf("first submit failed: %v", err)
		}
	}()
	<-api.WriteStarted // the fee write is now held in flight

	// second mutation on the same target: rejected before it reaches the writer
	if _, err := coord.Submit(ctx, mutate.OpDelete, "fee", 1, nil); !core.IsConflict(err) {
		t.Errorf("second submit error = %v, want ConflictError", err)
	}

	go func() {
		defer wg.Done()
		// a different target is not serialized against the held fee write
		if _, err := coord.Submit(ctx, mutate.OpCreate, "announcement", 0, map[string]interface{}{"title": "hi"}); err != nil {
			t.Errorf("unrelated submit failed: %v", err)
		}
	}()
	<-api.WriteStarted // it reached the writer instead of conflicting

	// release both held writes
	api.BlockWrites <- struct{}{}
	api.BlockWrites <- struct{}{}
	wg.Wait()
	api.BlockWrites = nil
	api.WriteStarted = nil

	// the target frees up once the first write completes
	if _, err := coord.Submit(ctx, mutate.OpUpdate, "fee", 1, map[string]interface{}{"paid": false}); err != nil {
		t.Errorf("submit after release failed: %v", err)
	}
}

func TestSubmitInvalidatesDependents(t *testing.T) {
	ctx := context.Background()
	api, cache, coord := setup(t, map[string][]string{"enrollment": {"class"}})
	testutil.SeedClass(api, "SS1A", 30, 0)

	if _, err := cache.Get(ctx, "class"); err != nil {
		t.Fatalf("warm fetch failed: %v", err)
	}
	if _, err := cache.Get(ctx, "enrollment"); err != nil {
		t.Fatalf("warm fetch failed: %v", err)
	}

	res, err := coord.Submit(ctx, mutate.OpCreate, "enrollment", 0, map[string]interface{}{
		"student_id": 5, "class_id": 1,
	})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	want := []string{"enrollment", "class"}
	if len(res.Invalidated) != len(want) || res.Invalidated[0] != want[0] || res.Invalidated[1] != want[1] {
		t.Errorf("invalidated = %v, want %v", res.Invalidated, want)
	}
	for _, typ := range want {
		if got := cache.State(typ); got != entity.StateStale {
			t.Errorf("%s cache state = %v, want StateStale", typ, got)
		}
	}
}

func TestSubmitDelete(t *testing.T) {
	ctx := context.Background()
	api, cache, coord := setup(t, nil)
	testutil.SeedEnrollment(api, 5, 1)

	if _, err := cache.Get(ctx, "enrollment"); err != nil {
		t.Fatalf("warm fetch failed: %v", err)
	}

	if _, err := coord.Submit(ctx, mutate.OpDelete, "enrollment", 1, nil); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	rows, err := cache.Get(ctx, "enrollment")
	if err != nil {
		t.Fatalf("refetch failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("enrollments after delete = %v, want none", rows)
	}
}

func TestSubmitUnknownOp(t *testing.T) {
	_, _, coord := setup(t, nil)
	if _, err := coord.Submit(context.Background(), mutate.Op("patch"), "fee", 1, nil); err == nil {
		t.Fatal("Submit() accepted an unknown operation")
	}
}
