package store

import (
	"context"
	"fmt"
)

// InsertItem inserts item, assigning ID and CreatedAt when unset.
// item.Index is written as given; callers that maintain ordering assign it
// first with ordering.Maintainer.AssignOnCreate.
func (s *Store) InsertItem(ctx context.Context, item *Item) error {
	if item.ID == "" {
		item.ID = s.ids.Generate()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now().UTC()
	}
	if item.ListID != nil && *item.ListID == "" {
		item.ListID = nil
	}

	labels, err := marshalLabels(item.Labels)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}

	_, err = s.conn(ctx).ExecContext(ctx, `
		INSERT INTO items
		(id, list_id, category, title, labels, idx, archived_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		item.ID,
		nullableList(item.ListID),
		item.Category,
		item.Title,
		labels,
		item.Index,
		nullableTime(item.ArchivedAt),
		formatTime(item.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert item %s: %w", item.ID, err)
	}
	return nil
}

// UpdateItem writes every mutable column of item.
// Returns ErrNotFound if no row has item.ID.
func (s *Store) UpdateItem(ctx context.Context, item *Item) error {
	if item.ListID != nil && *item.ListID == "" {
		item.ListID = nil
	}
	labels, err := marshalLabels(item.Labels)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}

	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE items
		SET list_id = ?, category = ?, title = ?, labels = ?, idx = ?, archived_at = ?
		WHERE id = ?
	`,
		nullableList(item.ListID),
		item.Category,
		item.Title,
		labels,
		item.Index,
		nullableTime(item.ArchivedAt),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("update item %s: %w", item.ID, err)
	}
	return expectOneRow(res, item.ID)
}

// DeleteItem removes the row with the given ID.
// Returns ErrNotFound if no row has that ID.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item %s: %w", id, err)
	}
	return expectOneRow(res, id)
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

func expectOneRow(res rowsAffected, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
