// Package harness runs ordering scenarios against an item backend and
// records a deterministic trace of the resulting orderings.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	strict: true               # SQLite unique (subset, idx) index; default true
//	compact_moves: false       # Maintainer default move algorithm
//	backends: [sqlite, memory] # default: both
//	setup:
//	  - op: create
//	    id: a
//	    list: inbox
//	    category: todo
//	steps:
//	  - op: move
//	    id: a
//	    target: 2
//	    expect:
//	      error: CONFLICT
//	assertions:
//	  - type: order
//	    list: inbox
//	    category: todo
//	    ids: [b, a, c]
//	  - type: index
//	    id: a
//	    index: 1
//	  - type: dense
//
// Step ops are create, move, archive, restore, delete and update. Every op
// except create re-reads the item from the backend first, the way the CLI
// does.
//
// # Traces
//
// Each step appends an Event holding the op, its arguments, its outcome and
// the ordering of every subset afterwards. Traces are compared against golden
// files as one canonical JSON object per line:
//
//	go test ./internal/harness -update
//
// rewrites them. The same golden file serves every backend, so a scenario
// also checks that the batched SQLite path and the in-memory fallback path
// agree step by step.
package harness
