package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// testStorage runs the behaviour every Storage must have.
func testStorage(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want %v", err, ErrNotFound)
	}

	values := map[string]string{
		"finance_data_u1_2025-01":  "blob-1",
		"finance_data_u1_2025-02":  "blob-2",
		"finance_data_u10_2025-01": "other user",
		"total_balance_u1_2025-01": "1000",
		"theme":                    "dark",
		"odd/key with spaces":      "x",
	}
	for k, v := range values {
		if err := s.Set(ctx, k, v); err != nil {
			t.Fatalf("Set(%q) error = %v", k, err)
		}
	}
	for k, want := range values {
		if got, err := s.Get(ctx, k); err != nil || got != want {
			t.Errorf("Get(%q) = %q, %v, want %q", k, got, err, want)
		}
	}

	// overwrite
	if err := s.Set(ctx, "theme", "light"); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Get(ctx, "theme"); got != "light" {
		t.Errorf("Get(theme) = %q, want %q", got, "light")
	}

	keys, err := s.Keys(ctx, "finance_data_u1_")
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	want := []string{"finance_data_u1_2025-01", "finance_data_u1_2025-02"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}

	if err := s.Delete(ctx, "theme"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, "theme"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(deleted) error = %v, want %v", err, ErrNotFound)
	}
	if err := s.Delete(ctx, "theme"); err != nil {
		t.Errorf("Delete(absent) error = %v", err)
	}
}

func TestMemory(t *testing.T) {
	testStorage(t, NewMemory())
}

func TestDir(t *testing.T) {
	d, err := NewDir(filepath.Join(t.TempDir(), "store"))
	if err != nil {
		t.Fatal(err)
	}
	testStorage(t, d)
}

func TestSQLite(t *testing.T) {
	s, err := OpenSQL(context.Background(), "sqlite", filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	testStorage(t, s)
}

func TestRebind(t *testing.T) {
	tests := []struct {
		postgres bool
		in, want string
	}{
		{false, "a = ? AND b = ?", "a = ? AND b = ?"},
		{true, "a = ? AND b = ?", "a = $1 AND b = $2"},
		{true, "no args", "no args"},
	}
	for _, tt := range tests {
		if got := Rebind(tt.postgres, tt.in); got != tt.want {
			t.Errorf("Rebind(%v, %q) = %q, want %q", tt.postgres, tt.in, got, tt.want)
		}
	}
}
