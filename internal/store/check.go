package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/ordset/internal/queryir"
)

// SubsetReport describes the ordering state of one (list, category) subset.
type SubsetReport struct {
	List     string `json:"list,omitempty"`
	Category string `json:"category"`
	Active   int    `json:"active"`
	Archived int    `json:"archived"`
	// Indices lists the active idx values in ascending order.
	Indices []int `json:"indices"`
	Dense   bool  `json:"dense"`
}

// CheckOrdering verifies that every subset matching filter holds exactly
// the indices 0..n-1. Reports are ordered by list, then category.
func (s *Store) CheckOrdering(ctx context.Context, filter queryir.Predicate) ([]SubsetReport, error) {
	items, err := s.ListItems(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("check ordering: %w", err)
	}

	var reports []SubsetReport
	var cur *SubsetReport
	for _, item := range items {
		if cur == nil || cur.List != item.List() || cur.Category != item.Category {
			reports = append(reports, SubsetReport{List: item.List(), Category: item.Category})
			cur = &reports[len(reports)-1]
		}
		if item.Index < 0 {
			cur.Archived++
			continue
		}
		cur.Active++
		cur.Indices = append(cur.Indices, item.Index)
	}

	for i := range reports {
		reports[i].Dense = isDense(reports[i].Indices)
	}
	return reports, nil
}

func isDense(indices []int) bool {
	sorted := slices.Clone(indices)
	slices.Sort(sorted)
	for i, idx := range sorted {
		if idx != i {
			return false
		}
	}
	return true
}
