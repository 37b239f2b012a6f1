package harness

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ScenarioNotFoundError is returned when a requested scenario path doesn't exist.
type ScenarioNotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("scenario path %q does not exist", e.Path)
}

// Discover expands paths into scenario files. A file is taken as-is; a
// directory is searched recursively for *.yaml and *.yml files. The
// result is sorted and free of duplicates.
func Discover(paths ...string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			return nil, &ScenarioNotFoundError{Path: p}
		}
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ext := filepath.Ext(path); !d.IsDir() && (ext == ".yaml" || ext == ".yml") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	slices.Sort(files)
	return slices.Compact(files), nil
}

// GoldenPath returns the trace golden file of a scenario file:
// golden/<name>.golden next to it.
func GoldenPath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

// SuiteOptions controls RunSuite.
type SuiteOptions struct {
	// Filter is a glob matched against scenario file names without
	// extension. Empty matches everything.
	Filter string

	// Update rewrites golden files instead of comparing against them.
	Update bool
}

// ScenarioResult is the outcome of one scenario file.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"` // "match" or "updated" when a golden file was involved
	Errors []string `json:"errors,omitempty"`
}

// SuiteResult summarises a run over many scenarios.
type SuiteResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Total     int              `json:"total"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
}

// OK reports whether every scenario passed.
func (r *SuiteResult) OK() bool { return r.Failed == 0 }

// RunSuite discovers and runs every scenario under paths. Scenarios with
// a golden file (see GoldenPath) must also reproduce its trace.
//
// A scenario that cannot be loaded or set up counts as failed; RunSuite
// itself only fails when discovery does.
func RunSuite(ctx context.Context, opts SuiteOptions, paths ...string) (*SuiteResult, error) {
	files, err := Discover(paths...)
	if err != nil {
		return nil, err
	}

	res := &SuiteResult{Scenarios: []ScenarioResult{}}
	for _, path := range files {
		if opts.Filter != "" {
			base := filepath.Base(path)
			matched, err := filepath.Match(opts.Filter, strings.TrimSuffix(base, filepath.Ext(base)))
			if err != nil {
				return nil, fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				continue
			}
		}

		sr := runFile(ctx, path, opts.Update)
		res.Scenarios = append(res.Scenarios, sr)
		res.Total++
		if sr.Pass {
			res.Passed++
		} else {
			res.Failed++
		}
	}
	return res, nil
}

func runFile(ctx context.Context, path string, update bool) ScenarioResult {
	sr := ScenarioResult{Name: filepath.Base(path), Path: path}

	scenario, err := LoadScenario(path)
	if err != nil {
		sr.Errors = []string{err.Error()}
		return sr
	}
	sr.Name = scenario.Name

	result, err := Run(ctx, scenario)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return sr
	}
	sr.Errors = result.Errors

	snapshot := TraceSnapshot{ScenarioName: scenario.Name, Trace: result.Trace}
	data, err := snapshot.Marshal()
	if err != nil {
		sr.Errors = append(sr.Errors, fmt.Sprintf("failed to marshal trace: %v", err))
		return sr
	}

	golden := GoldenPath(path)
	switch {
	case update:
		if err := os.MkdirAll(filepath.Dir(golden), 0o755); err != nil {
			sr.Errors = append(sr.Errors, fmt.Sprintf("failed to create golden directory: %v", err))
			return sr
		}
		if err := os.WriteFile(golden, data, 0o644); err != nil {
			sr.Errors = append(sr.Errors, fmt.Sprintf("failed to write golden file: %v", err))
			return sr
		}
		sr.Golden = "updated"

	default:
		want, err := os.ReadFile(golden)
		if os.IsNotExist(err) {
			break
		}
		if err != nil {
			sr.Errors = append(sr.Errors, fmt.Sprintf("failed to read golden file: %v", err))
			return sr
		}
		if !bytes.Equal(want, data) {
			sr.Errors = append(sr.Errors, fmt.Sprintf("trace does not match %s (run with --update to regenerate)", golden))
			return sr
		}
		sr.Golden = "match"
	}

	sr.Pass = len(sr.Errors) == 0
	return sr
}
