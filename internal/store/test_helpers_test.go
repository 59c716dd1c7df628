package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/ordset/internal/testutil"
)

// createTestStore creates a new strict store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	return createTestStoreWith(t, Options{StrictOrdering: true})
}

func createTestStoreWith(t *testing.T, opts Options) *Store {
	t.Helper()
	if opts.IDs == nil {
		opts.IDs = testutil.NewSequenceGenerator("item")
	}
	if opts.Now == nil {
		opts.Now = testutil.NewStepClock(time.Time{}, time.Second).Now
	}
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedSubset inserts titles into one subset at indices 0..n-1.
func seedSubset(t *testing.T, s *Store, list, category string, titles ...string) []*Item {
	t.Helper()
	items := make([]*Item, len(titles))
	for i, title := range titles {
		items[i] = &Item{ListID: ListRef(list), Category: category, Title: title, Index: i}
		if err := s.InsertItem(context.Background(), items[i]); err != nil {
			t.Fatalf("InsertItem(%q) failed: %v", title, err)
		}
	}
	return items
}

// indexOf reads the stored idx of an item.
func indexOf(t *testing.T, s *Store, id string) int {
	t.Helper()
	item, err := s.GetItem(context.Background(), id)
	if err != nil {
		t.Fatalf("GetItem(%s) failed: %v", id, err)
	}
	return item.Index
}
