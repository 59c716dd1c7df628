package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ordset/internal/harness"
)

// ScenarioOptions holds flags for the scenario command.
type ScenarioOptions struct {
	*RootOptions
	Backend string // run on one backend only
	Filter  string // scenario filter (glob pattern)
	Trace   bool   // print each step's trace line
}

// ScenarioResult holds the result of one scenario on one backend.
type ScenarioResult struct {
	Name    string   `json:"name"`
	Backend string   `json:"backend"`
	Pass    bool     `json:"pass"`
	Errors  []string `json:"errors,omitempty"`
	Trace   []string `json:"trace,omitempty"`
}

// ScenarioReport holds the overall result.
type ScenarioReport struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

func (r ScenarioReport) String() string {
	var b strings.Builder
	for _, s := range r.Scenarios {
		mark := "✓"
		if !s.Pass {
			mark = "✗"
		}
		fmt.Fprintf(&b, "%s %s [%s]\n", mark, s.Name, s.Backend)
		for _, line := range s.Trace {
			fmt.Fprintf(&b, "    %s\n", line)
		}
		for _, e := range s.Errors {
			fmt.Fprintf(&b, "  %s\n", e)
		}
	}
	fmt.Fprintf(&b, "\n%d passed, %d failed, %d total", r.Passed, r.Failed, r.Total)
	return b.String()
}

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScenarioOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scenario <file-or-dir>...",
		Short: "Run ordering scenarios",
		Long: `Run YAML ordering scenarios against a scratch SQLite database and the
in-memory backend. Scenarios never touch the configured database.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, unknown backend)

Examples:
  ordset scenario ./scenarios
  ordset scenario ./scenarios --filter "move-*" --backend memory
  ordset scenario lifecycle.yaml --trace`,
		Args:          cobra.MinimumNArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Backend, "backend", "", "run on one backend (sqlite|memory)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "print the trace of every step")

	return cmd
}

func runScenarios(opts *ScenarioOptions, args []string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)
	if opts.Backend != "" && !slices.Contains(harness.AllBackends, opts.Backend) {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown backend %q: must be one of %v", opts.Backend, harness.AllBackends))
	}

	var files []string
	for _, arg := range args {
		found, err := findScenarioFiles(arg, opts.Filter)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to find scenarios", err)
		}
		files = append(files, found...)
	}

	report := ScenarioReport{Scenarios: []ScenarioResult{}}
	for _, file := range files {
		for _, res := range runScenarioFile(cmd, opts, file) {
			report.Scenarios = append(report.Scenarios, res)
			report.Total++
			if res.Pass {
				report.Passed++
			} else {
				report.Failed++
			}
		}
	}

	if err := out.Success(report); err != nil {
		return err
	}
	if report.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario run(s) failed", report.Failed))
	}
	return nil
}

// findScenarioFiles returns path itself when it is a file, or the YAML
// files below it.
func findScenarioFiles(path, filter string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		// Only process .yaml and .yml files
		ext := filepath.Ext(p)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(p), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, p)
		return nil
	})
	return files, err
}

// runScenarioFile runs one scenario file on every backend it selects.
func runScenarioFile(cmd *cobra.Command, opts *ScenarioOptions, file string) []ScenarioResult {
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return []ScenarioResult{{
			Name:   filepath.Base(file),
			Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)},
		}}
	}

	var results []ScenarioResult
	for _, backend := range harness.AllBackends {
		if !scenario.RunsOn(backend) || (opts.Backend != "" && opts.Backend != backend) {
			continue
		}
		res := ScenarioResult{Name: scenario.Name, Backend: backend}

		result, err := harness.Run(cmd.Context(), scenario, harness.Options{Backend: backend})
		if err != nil {
			res.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
			results = append(results, res)
			continue
		}
		res.Pass = result.Pass
		res.Errors = result.Errors
		if opts.Trace {
			data, err := harness.MarshalTrace(result.Trace)
			if err != nil {
				res.Pass = false
				res.Errors = append(res.Errors, fmt.Sprintf("failed to marshal trace: %v", err))
			} else {
				res.Trace = strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
			}
		}
		results = append(results, res)
	}
	return results
}
