package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/ordset/internal/ir"
	"github.com/roach88/ordset/internal/queryir"
)

const itemsTable = "items"

// GetItem returns the item with the given ID, or ErrNotFound.
func (s *Store) GetItem(ctx context.Context, id string) (*Item, error) {
	query, args, err := s.compiler.Compile(queryir.Select{
		From:    itemsTable,
		Columns: itemColumns,
		Filter:  queryir.Equals{Field: "id", Value: ir.IRString(id)},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	item, err := scanItem(s.conn(ctx).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", id, err)
	}
	return item, nil
}

// ListItems returns the items matching filter (nil: all items), ordered
// by list, category, idx and then ID. Archived items (idx -1) sort first
// within their subset.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ListItems(ctx context.Context, filter queryir.Predicate) ([]*Item, error) {
	query, args, err := s.compiler.Compile(queryir.Select{
		From:    itemsTable,
		Columns: itemColumns,
		Filter:  filter,
		OrderBy: []queryir.Order{{Field: "list_id"}, {Field: "category"}, {Field: "idx"}},
	})
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := []*Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*Item, error) {
	var (
		item       Item
		listID     sql.NullString
		labels     string
		archivedAt sql.NullString
		createdAt  string
	)
	if err := row.Scan(&item.ID, &listID, &item.Category, &item.Title, &labels, &item.Index, &archivedAt, &createdAt); err != nil {
		return nil, err
	}

	if listID.Valid {
		item.ListID = &listID.String
	}
	var err error
	if item.Labels, err = unmarshalLabels(labels); err != nil {
		return nil, err
	}
	if archivedAt.Valid {
		t, err := parseTime(archivedAt.String)
		if err != nil {
			return nil, err
		}
		item.ArchivedAt = &t
	}
	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &item, nil
}
