package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/ordset/internal/crud"
	"github.com/roach88/ordset/internal/dberr"
	"github.com/roach88/ordset/internal/ir"
	"github.com/roach88/ordset/internal/memstore"
	"github.com/roach88/ordset/internal/ordering"
	"github.com/roach88/ordset/internal/store"
	"github.com/roach88/ordset/internal/testutil"
)

// Options configures Run.
type Options struct {
	// Backend is BackendSQLite or BackendMemory. Empty means BackendSQLite.
	Backend string

	// Path is the SQLite database file. Empty means a private in-memory
	// database.
	Path string

	// Logger receives maintainer logs. Nil discards them.
	Logger *slog.Logger
}

// Harness is the test execution engine.
// It runs one scenario against one backend with a deterministic clock.
type Harness struct {
	items  *crud.Service[*store.Item]
	get    func(ctx context.Context, id string) (*store.Item, error)
	all    func(ctx context.Context) ([]*store.Item, error)
	close  func() error
	clock  *testutil.StepClock
	logger *slog.Logger
	seq    int64
}

// Run executes a test scenario and returns the result.
//
// Each run starts from an empty backend. Execution flow:
// 1. Create the setup items and trace the starting state
// 2. Execute steps, checking each outcome against its expect clause
// 3. Evaluate assertions against the final state
//
// A step that fails as expected is traced like any other; an error is only
// returned when the harness itself cannot proceed.
func Run(ctx context.Context, scenario *Scenario, opts Options) (*Result, error) {
	h, err := newHarness(scenario, opts)
	if err != nil {
		return nil, err
	}
	defer h.close()

	result := NewResult()
	for i, step := range scenario.Setup {
		if err := h.create(ctx, step); err != nil {
			return nil, fmt.Errorf("setup step %d (%s): %w", i, step.ID, err)
		}
	}
	if err := h.trace(ctx, result, Event{Op: "setup"}); err != nil {
		return nil, err
	}

	for i, step := range scenario.Steps {
		change, err := h.execute(ctx, step)
		event := Event{
			Op:      step.Op,
			ID:      step.ID,
			Args:    stepArgs(step),
			Outcome: outcomeOf(err),
			Change:  change,
		}
		if err := h.trace(ctx, result, event); err != nil {
			return nil, err
		}
		for _, msg := range checkExpect(step, event, err) {
			result.AddError(fmt.Sprintf("steps[%d] %s %s: %s", i, step.Op, step.ID, msg))
		}
		h.logger.Info("step completed", "step", i, "op", step.Op, "id", step.ID, "outcome", event.Outcome)
	}

	items, err := h.all(ctx)
	if err != nil {
		return nil, fmt.Errorf("read final state: %w", err)
	}
	result.State = StateOf(items)
	for _, msg := range EvaluateAssertions(items, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(scenario *Scenario, opts Options) (*Harness, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	h := &Harness{
		clock:  testutil.NewStepClock(time.Time{}, time.Second),
		logger: logger,
	}

	var orderOpts []ordering.Option
	if scenario.CompactMoves {
		orderOpts = append(orderOpts, ordering.WithCompactMoves())
	}
	svcOpts := []crud.Option[*store.Item]{
		crud.WithLogger[*store.Item](logger),
		crud.WithOrdering[*store.Item](orderOpts...),
	}

	switch opts.Backend {
	case BackendSQLite, "":
		path := opts.Path
		if path == "" {
			path = ":memory:"
		}
		st, err := store.Open(path, store.Options{
			StrictOrdering: scenario.IsStrict(),
			Now:            h.clock.Now,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		h.items = crud.NewItems(st.Ordering(), svcOpts...)
		h.get = st.GetItem
		h.all = func(ctx context.Context) ([]*store.Item, error) { return st.ListItems(ctx, nil) }
		h.close = st.Close
	case BackendMemory:
		tbl := memstore.NewItemTable()
		h.items = crud.NewItems(tbl, svcOpts...)
		h.get = tbl.Get
		h.all = func(ctx context.Context) ([]*store.Item, error) { return tbl.Select(ctx, nil) }
		h.close = func() error { return nil }
	default:
		return nil, fmt.Errorf("unknown backend %q", opts.Backend)
	}
	return h, nil
}

// execute runs one step. Only update returns a Change.
func (h *Harness) execute(ctx context.Context, step Step) (*crud.Change, error) {
	if step.Op == OpCreate {
		return nil, h.create(ctx, step)
	}

	item, err := h.get(ctx, step.ID)
	if err != nil {
		return nil, err
	}

	switch step.Op {
	case OpMove:
		var moveOpts []ordering.MoveOption
		if step.Compact {
			moveOpts = append(moveOpts, ordering.Compact())
		}
		return nil, h.items.Move(ctx, item, *step.Target, moveOpts...)
	case OpArchive:
		return nil, h.items.Archive(ctx, item, crud.ArchivedAt(h.clock.Now()))
	case OpRestore:
		return nil, h.items.Restore(ctx, item, crud.Unarchive)
	case OpDelete:
		return nil, h.items.Delete(ctx, item)
	case OpUpdate:
		change, err := h.items.Update(ctx, item, func(i *store.Item) error {
			apply(i, step)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &change, nil
	default:
		return nil, fmt.Errorf("unknown op %q", step.Op)
	}
}

func (h *Harness) create(ctx context.Context, step Step) error {
	item := &store.Item{ID: step.ID, Title: step.ID, CreatedAt: h.clock.Now()}
	apply(item, step)
	return h.items.Create(ctx, item)
}

// apply copies the fields a step sets onto item.
func apply(item *store.Item, step Step) {
	if step.List != nil {
		item.ListID = store.ListRef(*step.List)
	}
	if step.Category != nil {
		item.Category = *step.Category
	}
	if step.Title != nil {
		item.Title = *step.Title
	}
	if step.Labels != nil {
		item.Labels = slices.Clone(step.Labels)
	}
}

// trace records e with the next sequence number and the current state.
func (h *Harness) trace(ctx context.Context, result *Result, e Event) error {
	items, err := h.all(ctx)
	if err != nil {
		return fmt.Errorf("read state after %s: %w", e.Op, err)
	}
	h.seq++
	e.Seq = h.seq
	e.State = StateOf(items)
	result.AddEvent(e)
	return nil
}

func stepArgs(step Step) ir.IRObject {
	args := ir.IRObject{}
	if step.List != nil {
		args["list"] = ir.IRString(*step.List)
	}
	if step.Category != nil {
		args["category"] = ir.IRString(*step.Category)
	}
	if step.Title != nil {
		args["title"] = ir.IRString(*step.Title)
	}
	if step.Labels != nil {
		args["labels"] = irStrings(step.Labels)
	}
	if step.Target != nil {
		args["target"] = ir.IRInt(*step.Target)
	}
	if step.Compact {
		args["compact"] = ir.IRBool(true)
	}
	return args
}

// outcomeOf maps err to the code traces and expect clauses use.
func outcomeOf(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, memstore.ErrNotFound) {
		return OutcomeNotFound
	}
	var e *dberr.Error
	if errors.As(err, &e) {
		return string(e.Code)
	}
	return OutcomeError
}

func checkExpect(step Step, event Event, err error) []string {
	want := OutcomeOK
	if step.Expect != nil && step.Expect.Error != "" {
		want = step.Expect.Error
	}
	if event.Outcome != want {
		msg := fmt.Sprintf("expected outcome %s, got %s", want, event.Outcome)
		if err != nil {
			msg += ": " + err.Error()
		}
		return []string{msg}
	}
	if step.Expect == nil || event.Change == nil {
		return nil
	}

	var errs []string
	if step.Expect.Keys != nil && !slices.Equal(step.Expect.Keys, event.Change.Keys) {
		errs = append(errs, fmt.Sprintf("expected changed keys %v, got %v", step.Expect.Keys, event.Change.Keys))
	}
	if step.Expect.Watched != nil && !slices.Equal(step.Expect.Watched, event.Change.Watched) {
		errs = append(errs, fmt.Sprintf("expected changed watched %v, got %v", step.Expect.Watched, event.Change.Watched))
	}
	if step.Expect.Transferred != nil && *step.Expect.Transferred != event.Change.Transferred {
		errs = append(errs, fmt.Sprintf("expected transferred=%t", *step.Expect.Transferred))
	}
	return errs
}
