package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Scenario represents a test case definition loaded from YAML.
type Scenario struct {
	// Name is the scenario identifier and the golden file name.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Strict enables the unique (subset, idx) index on SQLite. Nil means true.
	Strict *bool `yaml:"strict,omitempty"`

	// CompactMoves makes the compact algorithm the Maintainer default.
	CompactMoves bool `yaml:"compact_moves,omitempty"`

	// Backends lists the backends the scenario runs on. Empty means all.
	Backends []string `yaml:"backends,omitempty"`

	// Setup creates the starting rows. It is not traced step by step.
	Setup []Step `yaml:"setup,omitempty"`

	// Steps are the traced operations.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operation on an item.
type Step struct {
	// Op is one of the Op constants.
	Op string `yaml:"op"`

	// ID identifies the item.
	ID string `yaml:"id"`

	// List and Category set the subset keys (create, update). An empty
	// List means no list.
	List     *string `yaml:"list,omitempty"`
	Category *string `yaml:"category,omitempty"`

	// Title and Labels set watched properties (create, update).
	Title  *string  `yaml:"title,omitempty"`
	Labels []string `yaml:"labels,omitempty"`

	// Target is the move destination.
	Target *int `yaml:"target,omitempty"`

	// Compact selects the compact move algorithm for this step.
	Compact bool `yaml:"compact,omitempty"`

	// Expect describes the expected outcome. Nil means success.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect is the expected outcome of a step.
type Expect struct {
	// Error is the expected outcome code (CONFLICT, NOT_FOUND, ...).
	Error string `yaml:"error,omitempty"`

	// Keys and Watched are the changed property names an update reports.
	// Nil means not checked.
	Keys    []string `yaml:"keys,omitempty"`
	Watched []string `yaml:"watched,omitempty"`

	// Transferred is whether an update moved the item to another subset.
	Transferred *bool `yaml:"transferred,omitempty"`
}

// Assertion validates the final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "order": the active items of (list, category) are exactly IDs, in order
	// - "index": item ID has Index
	// - "dense": every subset holds exactly the indices 0..n-1
	Type string `yaml:"type"`

	List     string   `yaml:"list,omitempty"`
	Category string   `yaml:"category,omitempty"`
	IDs      []string `yaml:"ids,omitempty"`

	ID    string `yaml:"id,omitempty"`
	Index *int   `yaml:"index,omitempty"`
}

// Step op constants.
const (
	OpCreate  = "create"
	OpMove    = "move"
	OpArchive = "archive"
	OpRestore = "restore"
	OpDelete  = "delete"
	OpUpdate  = "update"
)

// Assertion type constants.
const (
	AssertOrder = "order"
	AssertIndex = "index"
	AssertDense = "dense"
)

// Backend names.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// AllBackends lists every backend a scenario can run on.
var AllBackends = []string{BackendSQLite, BackendMemory}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Reject unknown fields so "assertion:" vs "assertions:" is caught
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// IsStrict reports whether the SQLite backend enforces unique positions.
func (s *Scenario) IsStrict() bool {
	return s.Strict == nil || *s.Strict
}

// RunsOn reports whether the scenario runs on backend.
func (s *Scenario) RunsOn(backend string) bool {
	return len(s.Backends) == 0 || slices.Contains(s.Backends, backend)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for _, b := range s.Backends {
		if !slices.Contains(AllBackends, b) {
			return fmt.Errorf("unknown backend %q", b)
		}
	}
	for i, step := range s.Setup {
		if step.Op != OpCreate {
			return fmt.Errorf("setup[%d]: only %s is allowed, got %q", i, OpCreate, step.Op)
		}
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	if step.ID == "" {
		return fmt.Errorf("id is required")
	}
	switch step.Op {
	case OpCreate:
		if step.Category == nil || *step.Category == "" {
			return fmt.Errorf("category is required for %s", step.Op)
		}
	case OpMove:
		if step.Target == nil {
			return fmt.Errorf("target is required for %s", step.Op)
		}
	case OpUpdate:
		if step.List == nil && step.Category == nil && step.Title == nil && step.Labels == nil {
			return fmt.Errorf("%s needs at least one of list, category, title, labels", step.Op)
		}
	case OpArchive, OpRestore, OpDelete:
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	if step.Expect != nil && step.Expect.Error == "" && step.Op != OpUpdate {
		return fmt.Errorf("expect: error is required for %s", step.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertOrder:
		if a.Category == "" {
			return fmt.Errorf("category is required for order")
		}
	case AssertIndex:
		if a.ID == "" || a.Index == nil {
			return fmt.Errorf("id and index are required for index")
		}
	case AssertDense:
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
