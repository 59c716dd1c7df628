package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/ordset/internal/ir"
	"github.com/roach88/ordset/internal/queryir"
)

// Statement is one compiled SQL statement with its positional arguments.
type Statement struct {
	SQL  string
	Args []any
}

// SQLCompiler compiles QueryIR to parameterized SQL for SQLite.
//
// Values are always bound as ? parameters, never interpolated. Identifiers
// are interpolated only after queryir.Validate has accepted them.
// Every SELECT ends with a deterministic tiebreaker on the primary key.
type SQLCompiler struct {
	// KeyColumn is the primary key used as the final ORDER BY tiebreaker.
	KeyColumn string
}

// NewSQLCompiler creates a new SQLCompiler keyed on "id".
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{KeyColumn: "id"}
}

// Compile converts a QueryIR query to parameterized SQL.
// Returns (sql, params, error) tuple.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}
	if err := queryir.Validate(q); err != nil {
		return "", nil, fmt.Errorf("invalid query: %w", err)
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	case queryir.Max:
		return c.compileMax(query)
	case *queryir.Max:
		return c.compileMax(*query)
	case queryir.Shift:
		return c.compileShift(query)
	case *queryir.Shift:
		return c.compileShift(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

// CompilePredicate compiles a predicate to a WHERE fragment.
// A nil predicate compiles to "1 = 1".
func (c *SQLCompiler) CompilePredicate(p queryir.Predicate) (string, []any, error) {
	if err := queryir.Validate(p); err != nil {
		return "", nil, fmt.Errorf("invalid predicate: %w", err)
	}
	return c.compilePredicate(p)
}

// ScratchShift compiles a Shift into two statements that never let two
// matched rows share a value mid-update, even when SQLite checks a unique
// index row by row.
//
// The first statement parks every matched row at -(v+delta)-2, which is
// always <= -2 for a non-negative result and so collides with neither live
// indices nor the -1 sentinel. The second flips the parked rows back.
// Both statements must run in the same transaction.
func (c *SQLCompiler) ScratchShift(q queryir.Shift) ([]Statement, error) {
	if err := queryir.Validate(q); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}
	where, params, err := c.compilePredicate(q.Filter)
	if err != nil {
		return nil, fmt.Errorf("compile filter: %w", err)
	}

	park := Statement{
		SQL: fmt.Sprintf("UPDATE %s SET %s = -(%s + ?) - 2 WHERE %s",
			q.Table, q.Field, q.Field, where),
		Args: append([]any{q.Delta}, params...),
	}

	// The subset filter is reused for the flip, minus any range terms on
	// the shifted field: those matched the old values, not the parked ones.
	subset := withoutField(q.Filter, q.Field)
	subsetSQL, subsetParams, err := c.compilePredicate(queryir.All(subset,
		queryir.Compare{Field: q.Field, Op: queryir.OpLessEqual, Value: -2}))
	if err != nil {
		return nil, fmt.Errorf("compile flip filter: %w", err)
	}
	flip := Statement{
		SQL:  fmt.Sprintf("UPDATE %s SET %s = -(%s + 2) WHERE %s", q.Table, q.Field, q.Field, subsetSQL),
		Args: subsetParams,
	}
	return []Statement{park, flip}, nil
}

func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	cols := "*"
	if len(q.Columns) > 0 {
		cols = strings.Join(q.Columns, ", ")
	}

	where, params, err := c.compileWhere(q.Filter)
	if err != nil {
		return "", nil, err
	}

	sql := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s", cols, q.From, where, c.orderBy(q.OrderBy))
	return sql, params, nil
}

// orderBy always ends with the key column so results are deterministic.
func (c *SQLCompiler) orderBy(orders []queryir.Order) string {
	parts := make([]string, 0, len(orders)+1)
	for _, o := range orders {
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		parts = append(parts, o.Field+" "+dir)
	}
	key := c.KeyColumn
	if key == "" {
		key = "id"
	}
	parts = append(parts, key+" ASC COLLATE BINARY")
	return strings.Join(parts, ", ")
}

// compileMax returns -1 for an empty match so callers can treat "no rows"
// and "max index" uniformly.
func (c *SQLCompiler) compileMax(q queryir.Max) (string, []any, error) {
	where, params, err := c.compileWhere(q.Filter)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("SELECT COALESCE(MAX(%s), -1) FROM %s%s", q.Field, q.From, where)
	return sql, params, nil
}

func (c *SQLCompiler) compileShift(q queryir.Shift) (string, []any, error) {
	where, params, err := c.compileWhere(q.Filter)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("UPDATE %s SET %s = %s + ?%s", q.Table, q.Field, q.Field, where)
	return sql, append([]any{q.Delta}, params...), nil
}

func (c *SQLCompiler) compileWhere(p queryir.Predicate) (string, []any, error) {
	if p == nil {
		return "", nil, nil
	}
	sql, params, err := c.compilePredicate(p)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	return " WHERE " + sql, params, nil
}

// compilePredicate compiles a queryir.Predicate to SQL WHERE clause fragment.
// Values NEVER interpolated - always use ? placeholders.
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	if p == nil {
		return "1 = 1", nil, nil
	}

	switch pred := p.(type) {
	case queryir.Equals:
		return c.compileEquals(pred)
	case *queryir.Equals:
		return c.compileEquals(*pred)
	case queryir.Compare:
		return fmt.Sprintf("%s %s ?", pred.Field, pred.Op), []any{pred.Value}, nil
	case *queryir.Compare:
		return c.compilePredicate(*pred)
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileEquals compiles "field = ?", or "field IS NULL" for a null value.
func (c *SQLCompiler) compileEquals(eq queryir.Equals) (string, []any, error) {
	if ir.IsNull(eq.Value) {
		return eq.Field + " IS NULL", nil, nil
	}
	param, err := ir.Native(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("convert value for %s: %w", eq.Field, err)
	}
	return eq.Field + " = ?", []any{param}, nil
}

func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	var sqlParts []string
	var allParams []any
	for _, pred := range and.Predicates {
		sql, params, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		if _, nested := pred.(queryir.And); nested {
			sql = "(" + sql + ")"
		}
		sqlParts = append(sqlParts, sql)
		allParams = append(allParams, params...)
	}
	return strings.Join(sqlParts, " AND "), allParams, nil
}

// withoutField drops Compare terms on field from a conjunction.
func withoutField(p queryir.Predicate, field string) queryir.Predicate {
	switch pred := p.(type) {
	case queryir.Compare:
		if pred.Field == field {
			return nil
		}
	case *queryir.Compare:
		if pred.Field == field {
			return nil
		}
	case queryir.And:
		kept := make([]queryir.Predicate, 0, len(pred.Predicates))
		for _, inner := range pred.Predicates {
			kept = append(kept, withoutField(inner, field))
		}
		return queryir.All(kept...)
	case *queryir.And:
		return withoutField(*pred, field)
	}
	return p
}
