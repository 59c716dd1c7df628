package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when an item ID does not exist.
var ErrNotFound = errors.New("item not found")

// Item is one row of the items table.
type Item struct {
	ID         string
	ListID     *string // nil: the item is in no list
	Category   string
	Title      string
	Labels     []string
	Index      int // dense within (ListID, Category); -1 when archived
	ArchivedAt *time.Time
	CreatedAt  time.Time
}

// GetIndex implements ordering.Sorted.
func (i *Item) GetIndex() int { return i.Index }

// SetIndex implements ordering.Sorted.
func (i *Item) SetIndex(idx int) { i.Index = idx }

// Archived reports whether the item was archived.
func (i *Item) Archived() bool { return i.ArchivedAt != nil }

// List returns the list ID, or "" when the item is in no list.
func (i *Item) List() string {
	if i.ListID == nil {
		return ""
	}
	return *i.ListID
}

// ListRef converts a list ID to the ListID field form; "" means no list.
func ListRef(list string) *string {
	if list == "" {
		return nil
	}
	return &list
}

var itemColumns = []string{"id", "list_id", "category", "title", "labels", "idx", "archived_at", "created_at"}
