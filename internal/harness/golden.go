package harness

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/ordset/internal/ir"
)

// MarshalTrace renders a trace as one canonical JSON object per line.
// ir.MarshalCanonical sorts keys, so equal traces give equal bytes.
func MarshalTrace(trace []Event) ([]byte, error) {
	var buf bytes.Buffer
	for _, event := range trace {
		line, err := ir.MarshalCanonical(event.value())
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", event.Seq, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// The result is returned so callers can also check Pass and Errors.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts Options) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, opts)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := MarshalTrace(result.Trace)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
