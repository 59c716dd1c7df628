// Package ordering maintains a dense, zero-based Index over subsets of rows.
//
// Within every subset the active rows hold exactly the indices 0..n-1.
// Rows outside the ordering (archived, detached) hold Detached (-1).
// The Maintainer keeps that invariant across creation, removal, restore,
// relocation and transfer between subsets.
//
// Storage is reached through an Adapter. An adapter that can shift many
// rows in one statement implements Shifter; otherwise it implements Loader
// and the maintainer applies the same arithmetic row by row.
//
// Every multi-step operation runs inside one txscope.Scope, so it either
// lands completely or not at all, and it nests inside a caller's
// transaction when ctx already carries one.
//
// Concurrency: operations on the same subset are serialized in-process by a
// lock keyed on the subset's canonical hash. The lock is taken after the
// transaction begins. Across processes the store's own write locking and
// unique constraints are relied on; a violation surfaces as a CONFLICT
// error and is never retried here.
package ordering
