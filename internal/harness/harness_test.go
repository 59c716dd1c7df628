package harness

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ordset/internal/store"
)

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		scenario, err := LoadScenario(path)
		require.NoError(t, err, path)

		for _, backend := range AllBackends {
			if !scenario.RunsOn(backend) {
				continue
			}
			t.Run(scenario.Name+"/"+backend, func(t *testing.T) {
				opts := Options{Backend: backend}
				if backend == BackendSQLite {
					opts.Path = filepath.Join(t.TempDir(), "harness.db")
				}

				result, err := RunWithGolden(t, scenario, opts)
				require.NoError(t, err)
				assert.True(t, result.Pass, "errors: %v", result.Errors)
			})
		}
	}
}

func TestRun_InMemorySQLite(t *testing.T) {
	scenario := mustParse(t, `
name: in_memory
description: "Runs without a database file"
setup:
  - {op: create, id: a, list: inbox, category: todo}
  - {op: create, id: b, list: inbox, category: todo}
steps:
  - {op: move, id: b, target: 0}
assertions:
  - {type: order, list: inbox, category: todo, ids: [b, a]}
`)

	result, err := Run(context.Background(), scenario, Options{})
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, State{"inbox/todo": {"b", "a"}}, result.State)
}

func TestRun_UnexpectedOutcome(t *testing.T) {
	scenario := mustParse(t, `
name: unexpected
description: "Moving a missing item is reported"
steps:
  - {op: move, id: ghost, target: 0}
assertions: []
`)

	result, err := Run(context.Background(), scenario, Options{Backend: BackendMemory})
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected outcome ok, got NOT_FOUND")
	require.Len(t, result.Trace, 2)
	assert.Equal(t, OutcomeNotFound, result.Trace[1].Outcome)
}

func TestRun_WrongExpectedChange(t *testing.T) {
	scenario := mustParse(t, `
name: wrong_change
description: "A title change is not a key change"
setup:
  - {op: create, id: a, list: inbox, category: todo}
steps:
  - op: update
    id: a
    title: renamed
    expect:
      keys: [category]
assertions: []
`)

	result, err := Run(context.Background(), scenario, Options{Backend: BackendMemory})
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected changed keys [category]")
}

func TestRun_FailedAssertions(t *testing.T) {
	scenario := mustParse(t, `
name: failing
description: "Assertions that do not hold"
setup:
  - {op: create, id: a, list: inbox, category: todo}
  - {op: create, id: b, list: inbox, category: todo}
steps:
  - {op: archive, id: a}
assertions:
  - {type: order, list: inbox, category: todo, ids: [a, b]}
  - {type: index, id: a, index: 0}
  - {type: index, id: missing, index: 0}
  - {type: dense}
`)

	result, err := Run(context.Background(), scenario, Options{Backend: BackendMemory})
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "assertions[0]")
	assert.Contains(t, result.Errors[0], "Expected: inbox/todo = [a b]")
	assert.Contains(t, result.Errors[0], "detached: a")
	assert.Contains(t, result.Errors[1], "Actual: index -1")
	assert.Contains(t, result.Errors[2], "item not found")
}

func TestRun_UnknownBackend(t *testing.T) {
	scenario := mustParse(t, `
name: unknown
description: "Bad backend"
steps:
  - {op: create, id: a, category: todo}
assertions: []
`)

	_, err := Run(context.Background(), scenario, Options{Backend: "postgres"})
	assert.ErrorContains(t, err, `unknown backend "postgres"`)
}

func TestAssertDense_ReportsGap(t *testing.T) {
	items := []*store.Item{
		{ID: "a", ListID: store.ListRef("inbox"), Category: "todo", Index: 0},
		{ID: "b", ListID: store.ListRef("inbox"), Category: "todo", Index: 2},
		{ID: "c", Category: "todo", Index: 0},
	}

	errs := EvaluateAssertions(items, []Assertion{{Type: AssertDense}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "inbox/todo indices [0 2]")
}

func TestStateOf(t *testing.T) {
	items := []*store.Item{
		{ID: "b", ListID: store.ListRef("inbox"), Category: "todo", Index: 1},
		{ID: "z", ListID: store.ListRef("inbox"), Category: "todo", Index: -1},
		{ID: "a", ListID: store.ListRef("inbox"), Category: "todo", Index: 0},
		{ID: "y", Category: "todo", Index: -1},
		{ID: "c", Category: "todo", Index: 0},
	}

	assert.Equal(t, State{
		"inbox/todo": {"a", "b"},
		"-/todo":     {"c"},
		"detached":   {"y", "z"},
	}, StateOf(items))
}

func TestMarshalTrace(t *testing.T) {
	trace := []Event{
		{Seq: 1, Op: "setup", State: State{}},
		{
			Seq:     2,
			Op:      OpMove,
			ID:      "b",
			Args:    stepArgs(Step{Target: ptr(0), Compact: true}),
			Outcome: "CONFLICT",
			State:   State{"inbox/todo": {"a", "b"}},
		},
	}

	data, err := MarshalTrace(trace)
	require.NoError(t, err)
	assert.Equal(t,
		`{"op":"setup","seq":1,"state":{}}`+"\n"+
			`{"args":{"compact":true,"target":0},"id":"b","op":"move","outcome":"CONFLICT","seq":2,"state":{"inbox/todo":["a","b"]}}`+"\n",
		string(data))
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario file")
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: s
description: "d"
strict: false
backends: [memory]
steps:
  - {op: create, id: a, list: "", category: todo, labels: [x]}
assertions:
  - {type: dense}
`), 0644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.False(t, scenario.IsStrict())
	assert.True(t, scenario.RunsOn(BackendMemory))
	assert.False(t, scenario.RunsOn(BackendSQLite))
	require.Len(t, scenario.Steps, 1)
	assert.Equal(t, "", *scenario.Steps[0].List)
	assert.Equal(t, []string{"x"}, scenario.Steps[0].Labels)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown field",
			yaml: "name: s\ndescription: d\nstep:\n  - {op: archive, id: a}\n",
			want: "field step not found",
		},
		{
			name: "missing name",
			yaml: "description: d\nsteps:\n  - {op: archive, id: a}\n",
			want: "name is required",
		},
		{
			name: "missing steps",
			yaml: "name: s\ndescription: d\n",
			want: "steps list is required",
		},
		{
			name: "unknown op",
			yaml: "name: s\ndescription: d\nsteps:\n  - {op: rename, id: a}\n",
			want: `steps[0]: unknown op "rename"`,
		},
		{
			name: "move without target",
			yaml: "name: s\ndescription: d\nsteps:\n  - {op: move, id: a}\n",
			want: "target is required",
		},
		{
			name: "create without category",
			yaml: "name: s\ndescription: d\nsteps:\n  - {op: create, id: a}\n",
			want: "category is required",
		},
		{
			name: "empty update",
			yaml: "name: s\ndescription: d\nsteps:\n  - {op: update, id: a}\n",
			want: "needs at least one of",
		},
		{
			name: "setup is create only",
			yaml: "name: s\ndescription: d\nsetup:\n  - {op: archive, id: a}\nsteps:\n  - {op: archive, id: a}\n",
			want: "setup[0]: only create is allowed",
		},
		{
			name: "unknown backend",
			yaml: "name: s\ndescription: d\nbackends: [postgres]\nsteps:\n  - {op: archive, id: a}\n",
			want: `unknown backend "postgres"`,
		},
		{
			name: "bad assertion",
			yaml: "name: s\ndescription: d\nsteps:\n  - {op: archive, id: a}\nassertions:\n  - {type: index, id: a}\n",
			want: "assertions[0]: id and index are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), "got %v", err)
		})
	}
}

func mustParse(t *testing.T, yaml string) *Scenario {
	t.Helper()
	scenario, err := ParseScenario([]byte(yaml))
	require.NoError(t, err)
	return scenario
}

func ptr[V any](v V) *V { return &v }
