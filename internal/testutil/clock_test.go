package testutil

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepClock_StartsAtEpoch(t *testing.T) {
	clock := NewStepClock(time.Time{}, time.Second)
	assert.Equal(t, Epoch, clock.Now())
	assert.Equal(t, Epoch.Add(time.Second), clock.Now())
}

func TestStepClock_Reset(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	clock := NewStepClock(start, time.Minute)

	clock.Now()
	clock.Now()
	assert.Equal(t, start.Add(2*time.Minute), clock.Peek())

	clock.Reset()
	assert.Equal(t, start, clock.Now())
}

func TestStepClock_ConcurrentCallsAreDistinct(t *testing.T) {
	clock := NewStepClock(time.Time{}, time.Millisecond)

	var mu sync.Mutex
	seen := map[time.Time]bool{}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			now := clock.Now()
			mu.Lock()
			seen[now] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 50)
}

func TestSequenceGenerator(t *testing.T) {
	gen := NewSequenceGenerator("")
	assert.Equal(t, "item-001", gen.Generate())
	assert.Equal(t, "item-002", gen.Generate())

	other := NewSequenceGenerator("task")
	assert.Equal(t, "task-001", other.Generate())
}

func TestAssertDense(t *testing.T) {
	assert.True(t, AssertDense(t, []int{2, 0, 1}))
	assert.True(t, AssertDense(t, nil))

	fake := &recordingT{}
	assert.False(t, AssertDense(fake, []int{0, 2}, "list %s", "inbox"))
	require.Len(t, fake.errors, 1)
	assert.Contains(t, fake.errors[0], "list inbox")
}

type recordingT struct {
	errors []string
}

func (r *recordingT) Helper() {}

func (r *recordingT) Errorf(format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}
