// Package crud orchestrates index maintenance around the create, archive,
// restore, delete, move and update of sorted rows.
//
// A Service owns one ordering.Maintainer and runs every operation in one
// transaction scope, so callers may nest Service calls inside their own
// scope (see txscope.Run) and commit them together.
//
// Updates are watched by subset-key monitors: when a key column changes,
// the row leaves its old ordering and is appended to the new one.
package crud
