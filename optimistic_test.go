package planner

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/etnz/planner/remote"
	"github.com/google/go-cmp/cmp"
)

// spy wraps a collection and runs a check before every write reaches it,
// while the mutation is pending.
type spy struct {
	*remote.Memory
	beforeWrite func()
}

func (s *spy) Create(ctx context.Context, data remote.Record) (remote.Record, error) {
	s.beforeWrite()
	return s.Memory.Create(ctx, data)
}

func (s *spy) Update(ctx context.Context, id string, data remote.Record) (remote.Record, error) {
	s.beforeWrite()
	return s.Memory.Update(ctx, id, data)
}

func (s *spy) Delete(ctx context.Context, id string) error {
	s.beforeWrite()
	return s.Memory.Delete(ctx, id)
}

// seededTasks returns a task collection with two tasks, and a coordinator
// whose cache is loaded from it.
func seededTasks(t *testing.T, opts ...CoordinatorOption) (*remote.Memory, *Coordinator) {
	t.Helper()
	ctx := context.Background()
	tasks := remote.NewMemory(remote.Tasks, "user-1")
	for _, title := range []string{"buy milk", "call mom"} {
		if _, err := tasks.Create(ctx, remote.Record{"title": title}); err != nil {
			t.Fatal(err)
		}
	}
	c := NewCoordinator(tasks, NewCache(nil), opts...)
	if err := c.Settle(ctx); err != nil {
		t.Fatal(err)
	}
	return tasks, c
}

func states(ms []Mutation) []MutationState {
	var out []MutationState
	for _, m := range ms {
		out = append(out, m.State)
	}
	return out
}

func TestCoordinator_InsertCommits(t *testing.T) {
	ctx := context.Background()
	var seen []Mutation
	tasks, c := seededTasks(t, WithStateHook(func(m Mutation) { seen = append(seen, m) }))

	var tentativeID string
	s := &spy{Memory: tasks, beforeWrite: func() {
		// the cache shows the insert before the remote answers.
		rs := c.Cache().Records()
		last := rs[len(rs)-1]
		if last["title"] != "write report" || !IsTempID(last.ID()) {
			t.Errorf("pending cache = %v, want the tentative record last", rs)
		}
		tentativeID = last.ID()
	}}
	c.col = s

	created, err := c.Insert(ctx, remote.Record{"title": "write report"})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if IsTempID(created.ID()) {
		t.Errorf("Insert() returned temporary id %q", created.ID())
	}
	if diff := cmp.Diff([]MutationState{Pending, Committed}, states(seen)); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}

	rs := c.Cache().Records()
	if len(rs) != 3 {
		t.Fatalf("cache has %d records, want 3", len(rs))
	}
	if slices.ContainsFunc(rs, func(r remote.Record) bool { return IsTempID(r.ID()) }) {
		t.Errorf("cache still holds a temporary id: %v", rs)
	}

	// the temporary id keeps working after settle, translated to the real one.
	s.beforeWrite = func() {}
	if _, err := c.Update(ctx, tentativeID, remote.Record{"completed": true}); err != nil {
		t.Fatalf("Update(temporary id) error = %v", err)
	}
	got, _ := tasks.Get(ctx, created.ID())
	if got["completed"] != true {
		t.Errorf("record = %v, want it completed", got)
	}
}

func TestCoordinator_InsertRollsBack(t *testing.T) {
	ctx := context.Background()
	var seen []Mutation
	tasks, c := seededTasks(t, WithStateHook(func(m Mutation) { seen = append(seen, m) }))
	before := c.Cache().Records()

	var tentativeID string
	c.col = &spy{Memory: tasks, beforeWrite: func() {
		rs := c.Cache().Records()
		tentativeID = rs[len(rs)-1].ID()
	}}
	tasks.Fail(remote.OpCreate, remote.ErrOffline)

	if _, err := c.Insert(ctx, remote.Record{"title": "doomed"}); !errors.Is(err, remote.ErrOffline) {
		t.Fatalf("Insert() error = %v, want %v", err, remote.ErrOffline)
	}
	if diff := cmp.Diff(before, c.Cache().Records()); diff != "" {
		t.Errorf("cache after rollback mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]MutationState{Pending, RolledBack}, states(seen)); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}
	if seen[1].Err == nil {
		t.Error("rolled back mutation has no error")
	}

	if n := len(c.tempIDs); n != 0 {
		t.Errorf("coordinator keeps %d temporary ids after a rollback, want 0", n)
	}
	// the temporary id never leaks into a later mutation.
	if _, err := c.Update(ctx, tentativeID, remote.Record{"title": "x"}); !errors.Is(err, ErrTemporaryID) {
		t.Errorf("Update(temporary id) error = %v, want %v", err, ErrTemporaryID)
	}
	if err := c.Remove(ctx, tentativeID); !errors.Is(err, ErrTemporaryID) {
		t.Errorf("Remove(temporary id) error = %v, want %v", err, ErrTemporaryID)
	}
}

func TestCoordinator_UpdateRollsBack(t *testing.T) {
	ctx := context.Background()
	tasks, c := seededTasks(t)
	before := c.Cache().Records()
	id := before[0].ID()

	c.col = &spy{Memory: tasks, beforeWrite: func() {
		if r, _ := c.Cache().Get(id); r["title"] != "buy oat milk" {
			t.Errorf("pending cache record = %v, want the tentative title", r)
		}
	}}
	tasks.Fail(remote.OpUpdate, errors.New("boom"))

	if _, err := c.Update(ctx, id, remote.Record{"title": "buy oat milk"}); err == nil {
		t.Fatal("Update() succeeded, want an error")
	}
	if diff := cmp.Diff(before, c.Cache().Records()); diff != "" {
		t.Errorf("cache after rollback mismatch (-want +got):\n%s", diff)
	}
}

func TestCoordinator_RemoveRollsBack(t *testing.T) {
	ctx := context.Background()
	tasks, c := seededTasks(t)
	before := c.Cache().Records()
	id := before[0].ID()

	c.col = &spy{Memory: tasks, beforeWrite: func() {
		if _, ok := c.Cache().Get(id); ok {
			t.Error("pending cache still shows the removed record")
		}
	}}
	tasks.Fail(remote.OpDelete, remote.ErrOffline)

	if err := c.Remove(ctx, id); err == nil {
		t.Fatal("Remove() succeeded, want an error")
	}
	// same records in the same order, settle unable to help.
	tasks.Fail(remote.OpAll, remote.ErrOffline)
	_ = c.Settle(ctx)
	if diff := cmp.Diff(before, c.Cache().Records()); diff != "" {
		t.Errorf("cache after rollback mismatch (-want +got):\n%s", diff)
	}
}

func TestCoordinator_RemoveCommits(t *testing.T) {
	ctx := context.Background()
	tasks, c := seededTasks(t)
	id := c.Cache().Records()[1].ID()

	if err := c.Remove(ctx, id); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, ok := c.Cache().Get(id); ok {
		t.Error("cache still holds the removed record")
	}
	if n := len(tasks.Records()); n != 1 {
		t.Errorf("remote holds %d records, want 1", n)
	}
}

func TestCoordinator_SettleHeals(t *testing.T) {
	ctx := context.Background()
	tasks, c := seededTasks(t)

	// someone else added a task meanwhile.
	if _, err := tasks.Create(ctx, remote.Record{"title": "from another device"}); err != nil {
		t.Fatal(err)
	}
	tasks.Fail(remote.OpUpdate, remote.ErrOffline)
	id := c.Cache().Records()[0].ID()
	_, _ = c.Update(ctx, id, remote.Record{"title": "x"})

	if n := len(c.Cache().Records()); n != 3 {
		t.Errorf("cache has %d records after settle, want 3", n)
	}
}

func TestCoordinator_ForgetsOldTemporaryIDs(t *testing.T) {
	ctx := context.Background()
	var tmps []string
	_, c := seededTasks(t, WithStateHook(func(m Mutation) {
		if m.Kind == InsertMutation && m.State == Pending {
			tmps = append(tmps, m.ID)
		}
	}))
	for i := 0; i <= maxTempIDs; i++ {
		if _, err := c.Insert(ctx, remote.Record{"title": "chore"}); err != nil {
			t.Fatal(err)
		}
	}
	if got, want := len(c.tempIDs), maxTempIDs; got != want {
		t.Errorf("coordinator keeps %d temporary ids, want %d", got, want)
	}
	if _, err := c.Update(ctx, tmps[0], remote.Record{"title": "x"}); !errors.Is(err, ErrTemporaryID) {
		t.Errorf("Update(oldest temporary id) error = %v, want %v", err, ErrTemporaryID)
	}
	if _, err := c.Update(ctx, tmps[len(tmps)-1], remote.Record{"title": "x"}); err != nil {
		t.Errorf("Update(latest temporary id) error = %v", err)
	}
}

func TestCoordinator_Filter(t *testing.T) {
	ctx := context.Background()
	tasks := remote.NewMemory(remote.Tasks, "user-1")
	for _, r := range []remote.Record{
		{"title": "rent", "due_date": "2025-03-31", "position": float64(2)},
		{"title": "taxes", "due_date": "2025-04-01"},
		{"title": "gift", "due_date": "2025-03-01", "position": float64(1)},
	} {
		if _, err := tasks.Create(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	c := NewCoordinator(tasks, NewCache(nil), WithOrder("position"), WithFilter(func(q *remote.Query) {
		q.Gte("due_date", "2025-03-01").Lte("due_date", "2025-03-31")
	}))
	if err := c.Settle(ctx); err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, r := range c.Cache().Records() {
		got = append(got, r.String("title"))
	}
	if diff := cmp.Diff([]string{"gift", "rent"}, got); diff != "" {
		t.Errorf("settled titles mismatch (-want +got):\n%s", diff)
	}
}
