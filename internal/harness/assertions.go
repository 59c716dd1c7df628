package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/ordset/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes the final state to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	State    State
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFinal state:\n")
	keys := make([]string, 0, len(e.State))
	for k := range e.State {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&buf, "  %s: %s\n", k, strings.Join(e.State[k], " "))
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against the final items and
// returns one message per failure.
func EvaluateAssertions(items []*store.Item, assertions []Assertion) []string {
	state := StateOf(items)
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertOrder:
			err = assertOrder(state, a)
		case AssertIndex:
			err = assertIndex(items, state, a)
		case AssertDense:
			err = assertDense(items, state)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// assertOrder checks that the active items of one subset are exactly the
// listed IDs, in Index order.
func assertOrder(state State, a Assertion) error {
	label := SubsetLabel(a.List, a.Category)
	got := state[label]
	if slices.Equal(got, a.IDs) {
		return nil
	}
	return &AssertionError{
		Type:     AssertOrder,
		Expected: fmt.Sprintf("%s = %v", label, a.IDs),
		Actual:   fmt.Sprintf("%s = %v", label, got),
		State:    state,
	}
}

func assertIndex(items []*store.Item, state State, a Assertion) error {
	i := slices.IndexFunc(items, func(it *store.Item) bool { return it.ID == a.ID })
	actual := "item not found"
	if i >= 0 {
		if items[i].Index == *a.Index {
			return nil
		}
		actual = fmt.Sprintf("index %d", items[i].Index)
	}
	return &AssertionError{
		Type:     AssertIndex,
		Expected: fmt.Sprintf("%s at index %d", a.ID, *a.Index),
		Actual:   actual,
		State:    state,
	}
}

// assertDense checks every subset holds exactly the indices 0..n-1.
func assertDense(items []*store.Item, state State) error {
	subsets := map[string][]int{}
	for _, it := range items {
		if it.Index >= 0 {
			label := SubsetLabel(it.List(), it.Category)
			subsets[label] = append(subsets[label], it.Index)
		}
	}

	labels := make([]string, 0, len(subsets))
	for label := range subsets {
		labels = append(labels, label)
	}
	slices.Sort(labels)
	for _, label := range labels {
		indices := subsets[label]
		slices.Sort(indices)
		for i, idx := range indices {
			if idx != i {
				return &AssertionError{
					Type:     AssertDense,
					Expected: fmt.Sprintf("%s indices 0..%d", label, len(indices)-1),
					Actual:   fmt.Sprintf("%s indices %v", label, indices),
					State:    state,
				}
			}
		}
	}
	return nil
}
