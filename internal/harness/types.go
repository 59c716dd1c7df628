package harness

import (
	"slices"
	"strings"

	"github.com/roach88/ordset/internal/crud"
	"github.com/roach88/ordset/internal/ir"
	"github.com/roach88/ordset/internal/store"
)

// Outcome codes recorded for steps that did not fail with a dberr.Error.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "NOT_FOUND"
	OutcomeError    = "ERROR"
)

// detachedKey groups the items of every subset whose Index is -1.
const detachedKey = "detached"

// State maps a subset label ("list/category") to the IDs of its active
// items in Index order. Items with Index -1 are listed under "detached",
// sorted by ID.
type State map[string][]string

// StateOf groups items into a State.
func StateOf(items []*store.Item) State {
	type pos struct {
		id  string
		idx int
	}
	groups := map[string][]pos{}
	for _, it := range items {
		key := detachedKey
		if it.Index >= 0 {
			key = SubsetLabel(it.List(), it.Category)
		}
		groups[key] = append(groups[key], pos{it.ID, it.Index})
	}

	state := State{}
	for key, group := range groups {
		slices.SortFunc(group, func(a, b pos) int {
			if a.idx != b.idx {
				return a.idx - b.idx
			}
			return strings.Compare(a.id, b.id)
		})
		ids := make([]string, len(group))
		for i, p := range group {
			ids[i] = p.id
		}
		state[key] = ids
	}
	return state
}

// SubsetLabel names a subset in traces. Items in no list use "-".
func SubsetLabel(list, category string) string {
	if list == "" {
		list = "-"
	}
	return list + "/" + category
}

func (s State) value() ir.IRObject {
	obj := ir.IRObject{}
	for key, ids := range s {
		obj[key] = irStrings(ids)
	}
	return obj
}

// Event is one traced step.
type Event struct {
	Seq     int64
	Op      string
	ID      string
	Args    ir.IRObject
	Outcome string
	Change  *crud.Change
	State   State
}

func (e Event) value() ir.IRObject {
	obj := ir.IRObject{
		"seq":   ir.IRInt(e.Seq),
		"op":    ir.IRString(e.Op),
		"state": e.State.value(),
	}
	if e.ID != "" {
		obj["id"] = ir.IRString(e.ID)
	}
	if len(e.Args) > 0 {
		obj["args"] = e.Args
	}
	if e.Outcome != "" {
		obj["outcome"] = ir.IRString(e.Outcome)
	}
	if e.Change != nil {
		obj["change"] = ir.IRObject{
			"keys":        irStrings(e.Change.Keys),
			"watched":     irStrings(e.Change.Watched),
			"transferred": ir.IRBool(e.Change.Transferred),
		}
	}
	return obj
}

func irStrings(values []string) ir.IRArray {
	arr := make(ir.IRArray, len(values))
	for i, v := range values {
		arr[i] = ir.IRString(v)
	}
	return arr
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step matched its expectation and every assertion held.
	Pass bool

	// Trace contains one event for the setup and one per step.
	Trace []Event

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string

	// State is the final state.
	State State
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []Event{},
		Errors: []string{},
		State:  State{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddEvent appends e to the trace.
func (r *Result) AddEvent(e Event) {
	r.Trace = append(r.Trace, e)
}
