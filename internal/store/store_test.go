package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path, Options{StrictOrdering: true})
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path, Options{StrictOrdering: true})
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	var name string
	err = s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='items'").Scan(&name)
	if err != nil {
		t.Errorf("items table not found after idempotent opens: %v", err)
	}
	if err := s.verifyPragma("user_version", "1"); err != nil {
		t.Error(err)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db", Options{})
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestDB_ReturnsUnderlyingConnection(t *testing.T) {
	s := createTestStore(t)

	db := s.DB()
	if db == nil {
		t.Fatal("DB() returned nil")
	}
	if err := db.Ping(); err != nil {
		t.Errorf("DB() connection not usable: %v", err)
	}
}

// Pragma tests

func TestPragmas(t *testing.T) {
	s := createTestStoreWith(t, Options{BusyTimeout: 250 * time.Millisecond})

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "250"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		if err := s.verifyPragma(tt.name, tt.expected); err != nil {
			t.Error(err)
		}
	}
}

func TestPragma_DefaultBusyTimeout(t *testing.T) {
	s := createTestStoreWith(t, Options{})
	if err := s.verifyPragma("busy_timeout", "5000"); err != nil {
		t.Error(err)
	}
}

// Strict ordering constraint

func indexExists(t *testing.T, s *Store, name string) bool {
	t.Helper()
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", name).Scan(&n)
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	return n == 1
}

func TestStrictOrdering_FollowsOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path, Options{StrictOrdering: true})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if !s.Strict() || !indexExists(t, s, "idx_items_position_unique") {
		t.Error("strict store should have the unique position index")
	}
	if !indexExists(t, s, "idx_items_subset") {
		t.Error("subset index missing")
	}
	s.Close()

	s, err = Open(path, Options{StrictOrdering: false})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()
	if s.Strict() || indexExists(t, s, "idx_items_position_unique") {
		t.Error("lenient store should drop the unique position index")
	}
}

func TestStrictOrdering_RejectsDuplicatePosition(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seedSubset(t, s, "groceries", "todo", "milk")
	err := s.InsertItem(ctx, &Item{ListID: ListRef("groceries"), Category: "todo", Title: "eggs", Index: 0})
	if err == nil {
		t.Fatal("expected unique violation, got nil")
	}
	if !IsConflict(err) {
		t.Errorf("IsConflict(%v) = false, want true", err)
	}

	// Same position in another subset is fine, and so is the sentinel.
	seedSubset(t, s, "groceries", "done", "bread")
	seedSubset(t, s, "", "todo", "call mom")
	for i := 0; i < 2; i++ {
		if err := s.InsertItem(ctx, &Item{ListID: ListRef("groceries"), Category: "todo", Title: "old", Index: -1}); err != nil {
			t.Fatalf("archived insert %d failed: %v", i, err)
		}
	}
}

func TestStrictOrdering_NullListIsOneSubset(t *testing.T) {
	s := createTestStore(t)

	seedSubset(t, s, "", "todo", "a")
	err := s.InsertItem(context.Background(), &Item{Category: "todo", Title: "b", Index: 0})
	if !IsConflict(err) {
		t.Errorf("expected conflict for duplicate position in the no-list subset, got %v", err)
	}
}

func TestIsConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"busy", sqlite3.Error{Code: sqlite3.ErrBusy}, true},
		{"locked", sqlite3.Error{Code: sqlite3.ErrLocked}, true},
		{"unique", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, true},
		{"not null", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintNotNull}, false},
		{"io", sqlite3.Error{Code: sqlite3.ErrIoErr}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsConflict(tt.err); got != tt.want {
				t.Errorf("IsConflict() = %v, want %v", got, tt.want)
			}
		})
	}
}
