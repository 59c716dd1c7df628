// Package queryir provides the predicate and statement IR used to scope
// ordering work to a subset of rows.
//
// QueryIR is the abstraction boundary between the ordering engine and the
// persistence adapters. The engine only ever builds IR; adapters translate
// it:
//
//	[subset templates] → [Query IR] → [SQL backend]   (internal/querysql)
//	                                → [memory backend] (Eval)
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed with marker methods, so backends can switch
// exhaustively:
//
//	switch p := pred.(type) {
//	case Equals:
//	case Compare:
//	case And:
//	}
//
// NULL SEMANTICS:
//
// Equals with an ir.IRNull value means "IS NULL", not SQL's always-false
// "= NULL". Nullable subset keys (an item with no list) therefore form a
// subset of their own, the same way in SQL and in memory.
//
// IDENTIFIERS:
//
// Field and table names are interpolated into SQL by the backend and must be
// plain identifiers. Validate rejects anything else before compilation.
package queryir
