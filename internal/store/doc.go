// Package store provides SQLite-backed storage for ordered items.
//
// Items belong to a subset identified by (list_id, category); a NULL
// list_id is a subset of its own. Within each subset active items carry a
// dense idx 0..n-1 and archived items carry -1.
//
// # Ordering Adapter
//
// ItemOrdering adapts the store to ordering.Maintainer: it shifts ranges
// with set-based UPDATE statements, loads subsets for verification, and
// classifies SQLite constraint and lock errors as conflicts.
//
// Shifts are issued as two statements (park the range in negative scratch
// space, then flip it back) because SQLite checks UNIQUE indexes row by
// row, not at statement end.
//
// # Strict Ordering
//
// With Options.StrictOrdering a partial unique index on
// (list_id, category, idx) WHERE idx >= 0 rejects any write that would put
// two active items on the same position. NULL list_id is indexed as the empty string.
// Empty list IDs are therefore stored as NULL.
//
// # Transactions
//
// Every method joins the ambient transaction carried by ctx (see
// txscope). Without one it runs directly on the database.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout: Wait for locks (default 5 seconds)
//   - foreign_keys=ON: Enforce referential integrity
//   - _txlock=immediate: Transactions take the write lock at BEGIN
//   - One open connection: SQLite has a single writer
package store
