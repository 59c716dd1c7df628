package testutil

import (
	"slices"

	"github.com/stretchr/testify/assert"
)

// TestingT is the part of testing.TB the assertions need.
type TestingT interface {
	Helper()
	Errorf(format string, args ...any)
}

// AssertDense fails the test unless indices, in any order, are exactly
// 0..len(indices)-1.
func AssertDense(t TestingT, indices []int, msgAndArgs ...any) bool {
	t.Helper()
	if len(indices) == 0 {
		return true
	}
	sorted := slices.Clone(indices)
	slices.Sort(sorted)
	want := make([]int, len(sorted))
	for i := range want {
		want[i] = i
	}
	return assert.Equal(t, want, sorted, msgAndArgs...)
}
