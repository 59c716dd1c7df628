package crud

import (
	"time"

	"github.com/roach88/ordset/internal/monitor"
	"github.com/roach88/ordset/internal/store"
)

// ItemKeys monitors the columns that make up an item's subset.
func ItemKeys() monitor.Set[*store.Item] {
	return monitor.Set[*store.Item]{
		monitor.NewProperty("list_id", func(i *store.Item) *string { return i.ListID }),
		monitor.NewProperty("category", func(i *store.Item) string { return i.Category }),
	}
}

// ItemWatched monitors the item properties that are not subset keys.
func ItemWatched() monitor.Set[*store.Item] {
	return monitor.Set[*store.Item]{
		monitor.NewProperty("title", func(i *store.Item) string { return i.Title }),
		monitor.NewList("labels", func(i *store.Item) []string { return i.Labels }),
	}
}

// NewItems creates a Service for store items over repo, which is either a
// store.ItemOrdering or a memstore item table.
func NewItems(repo Repository[*store.Item], opts ...Option[*store.Item]) *Service[*store.Item] {
	opts = append([]Option[*store.Item]{WithWatched[*store.Item](ItemWatched)}, opts...)
	return New(repo, store.ItemSubset, ItemKeys, opts...)
}

// ArchivedAt returns a mark func for Archive that stamps the item with at.
func ArchivedAt(at time.Time) func(*store.Item) {
	return func(i *store.Item) {
		at := at.UTC()
		i.ArchivedAt = &at
	}
}

// Unarchive is the unmark func for Restore.
func Unarchive(i *store.Item) {
	i.ArchivedAt = nil
}
