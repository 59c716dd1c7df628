package memstore

import (
	"slices"

	"github.com/roach88/ordset/internal/ir"
	"github.com/roach88/ordset/internal/store"
)

// ItemSchema describes store.Item rows with the same column names the
// SQLite store uses, so subset predicates work unchanged on both.
func ItemSchema() Schema[*store.Item] {
	return Schema[*store.Item]{
		Key:    func(i *store.Item) string { return i.ID },
		Fields: itemFields,
		Clone:  cloneItem,
	}
}

// NewItemTable creates an empty table of items.
func NewItemTable() *Table[*store.Item] {
	return New(ItemSchema())
}

func itemFields(i *store.Item) ir.IRObject {
	list := ir.IRValue(ir.IRNull{})
	if i.ListID != nil && *i.ListID != "" {
		list = ir.IRString(*i.ListID)
	}
	archived := ir.IRValue(ir.IRNull{})
	if i.ArchivedAt != nil {
		archived = ir.MustValueOf(*i.ArchivedAt)
	}
	return ir.IRObject{
		"id":          ir.IRString(i.ID),
		"list_id":     list,
		"category":    ir.IRString(i.Category),
		"title":       ir.IRString(i.Title),
		"idx":         ir.IRInt(i.Index),
		"archived_at": archived,
	}
}

func cloneItem(i *store.Item) *store.Item {
	c := *i
	if i.ListID != nil {
		list := *i.ListID
		c.ListID = &list
	}
	if i.ArchivedAt != nil {
		at := *i.ArchivedAt
		c.ArchivedAt = &at
	}
	c.Labels = slices.Clone(i.Labels)
	return &c
}
