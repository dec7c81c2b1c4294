package remote

import (
	"context"
	"errors"
	"testing"
)

func TestMemory_CRUD(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(Tasks, "user-1")

	created, err := m.Create(ctx, Record{"title": "write tests", "id": "forged", "user_id": "someone"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	id := created.ID()
	if id == "" || id == "forged" {
		t.Errorf("Create() id = %q, want a server id", id)
	}
	if got := created.String(FieldUserID); got != "user-1" {
		t.Errorf("Create() user_id = %q, want user-1", got)
	}

	updated, err := m.Update(ctx, id, Record{"completed": true})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated["title"] != "write tests" || updated["completed"] != true {
		t.Errorf("Update() = %v", updated)
	}

	got, err := m.Get(ctx, id)
	if err != nil || got["completed"] != true {
		t.Errorf("Get() = %v, %v", got, err)
	}

	if _, err := m.Update(ctx, "nope", Record{"completed": true}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update(unknown) error = %v, want %v", err, ErrNotFound)
	}

	if err := m.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := m.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(deleted) error = %v, want %v", err, ErrNotFound)
	}
}

func TestMemory_Upsert(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(HabitLogs, "user-1")

	first, err := m.Upsert(ctx, Record{"habit_id": "h1", "date": "2025-03-01", "completed": true}, "date")
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.Upsert(ctx, Record{"habit_id": "h1", "date": "2025-03-01", "completed": false}, "date")
	if err != nil {
		t.Fatal(err)
	}
	if first.ID() != second.ID() {
		t.Errorf("Upsert() created a second record: %s != %s", first.ID(), second.ID())
	}
	if n := len(m.Records()); n != 1 {
		t.Errorf("got %d records, want 1", n)
	}
	if second["completed"] != false {
		t.Errorf("Upsert() did not merge: %v", second)
	}
}

func TestMemory_DeleteBy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(HabitLogs, "user-1")
	for _, h := range []string{"h1", "h2", "h1"} {
		if _, err := m.Create(ctx, Record{"habit_id": h, "date": "2025-03-01"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.DeleteBy(ctx, "habit_id", "h1"); err != nil {
		t.Fatal(err)
	}
	rs, _ := m.List(ctx, "", 0)
	if len(rs) != 1 || rs[0]["habit_id"] != "h2" {
		t.Errorf("List() after DeleteBy = %v", rs)
	}
}

func TestMemory_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("no session", func(t *testing.T) {
		m := NewMemory(Tasks, "")
		if _, err := m.Create(ctx, Record{"title": "x"}); !errors.Is(err, ErrAuthRequired) {
			t.Errorf("Create() error = %v, want %v", err, ErrAuthRequired)
		}
	})

	t.Run("schema", func(t *testing.T) {
		m := NewMemory(MonthlyBudgets, "u")
		_, err := m.Create(ctx, Record{"month": "2025-03", "category": "total_balance"})
		if !IsSchemaError(err) {
			t.Errorf("Create() error = %v, want a schema error", err)
		}
	})

	t.Run("injected", func(t *testing.T) {
		m := NewMemory(Tasks, "u")
		m.Fail(OpAll, ErrOffline)
		if _, err := m.List(ctx, "", 0); !errors.Is(err, ErrOffline) {
			t.Errorf("List() error = %v, want %v", err, ErrOffline)
		}
		m.Fail(OpAll, nil)
		m.Fail(OpCreate, ErrOffline)
		if _, err := m.List(ctx, "", 0); err != nil {
			t.Errorf("List() error = %v, want nil", err)
		}
		if _, err := m.Create(ctx, Record{"title": "x"}); !errors.Is(err, ErrOffline) {
			t.Errorf("Create() error = %v, want %v", err, ErrOffline)
		}
	})
}
