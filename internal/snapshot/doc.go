// Package snapshot captures values so a later state can be compared against
// an earlier one.
//
// Three flavours exist:
//   - OfValue: plain value equality
//   - OfEntity: a shallow copy of a struct's own data fields; references to
//     other entities, maps and callbacks are not part of the comparison
//   - OfList: one snapshot per element, compared pairwise
//
// Of picks OfEntity for struct types (other than time.Time) and OfValue
// otherwise. A snapshot never observes mutations made to its source after
// capture.
package snapshot
