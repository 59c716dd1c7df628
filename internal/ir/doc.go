// Package ir provides the constrained value types used for subset keys.
//
// Subset keys are the column values that partition ordered rows into groups.
// They are carried through predicates, compiled into SQL parameters and
// hashed into lock keys, so they are limited to a small closed set of types:
// null, string, int64, bool, and arrays/objects of those.
//
// This package imports nothing internal. Every other package may import it.
//
// Key design constraints:
//   - NO float types anywhere; a float subset key cannot be compared for equality reliably
//   - IRNull is an explicit value so nullable key columns (ListID) stay representable
//   - Canonical encoding is RFC 8785 with NFC-normalised strings
package ir
