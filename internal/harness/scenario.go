package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Scenario defines a query-set conformance scenario: a database to build
// and a sequence of query-set operations with expected outcomes.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Models is the directory of CUE model declarations.
	// Relative paths resolve against the scenario file.
	Models string `yaml:"models"`

	// SchemaFile is a SQL script run before Schema and Fixtures.
	// Relative paths resolve against the scenario file.
	SchemaFile string `yaml:"schema_file,omitempty"`

	// Schema holds DDL statements run after SchemaFile.
	Schema []string `yaml:"schema,omitempty"`

	// Fixtures are inserted in order, so referenced rows can come first.
	Fixtures []Fixture `yaml:"fixtures,omitempty"`

	// BatchSize overrides the query-set page size.
	BatchSize int `yaml:"batch_size,omitempty"`

	// Steps run in order against the same database.
	Steps []Step `yaml:"steps"`
}

// Fixture is a list of rows for one table, keyed by column name.
type Fixture struct {
	Table string           `yaml:"table"`
	Rows  []map[string]any `yaml:"rows"`
}

// Step builds a query-set from Chain and runs one operation on it.
type Step struct {
	// Name labels the step in failure messages; defaults to "steps[i]".
	Name string `yaml:"name,omitempty"`

	// Model is the model the query-set starts from.
	Model string `yaml:"model"`

	// Chain is applied in order to the model's full set.
	Chain []Link `yaml:"chain,omitempty"`

	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	// Args holds the operation's arguments:
	//   at:                index
	//   get:               lookups (map)
	//   values/values_list: fields (list)
	//   update:            set (map)
	Args map[string]any `yaml:"args,omitempty"`

	Expect Expect `yaml:"expect"`
}

// Link is one chained call. Exactly one field is set.
type Link struct {
	Filter        map[string]any `yaml:"filter,omitempty"`
	Exclude       map[string]any `yaml:"exclude,omitempty"`
	OrderBy       []string       `yaml:"order_by,omitempty"`
	Limit         []int          `yaml:"limit,omitempty"`
	None          bool           `yaml:"none,omitempty"`
	SelectRelated bool           `yaml:"select_related,omitempty"`
}

// Expect lists the checks for a step. Unset fields are not checked.
type Expect struct {
	// Count is the scalar result of count, size, update and remove, or
	// the number of rows of the list-returning ops.
	Count *int `yaml:"count,omitempty"`

	// Exists is the result of exists.
	Exists *bool `yaml:"exists,omitempty"`

	// Rows is compared in canonical JSON form against the result rows.
	// Single-object ops (at, get) produce one row.
	Rows []any `yaml:"rows,omitempty"`

	// Error is an error kind (see errorKinds) or a substring of the
	// error message. When set the step must fail.
	Error string `yaml:"error,omitempty"`

	// Queries is the number of statements the step sent to the database.
	Queries *int `yaml:"queries,omitempty"`
}

// Operations a step can run.
const (
	OpCount      = "count"
	OpSize       = "size"
	OpExists     = "exists"
	OpAt         = "at"
	OpGet        = "get"
	OpValues     = "values"
	OpValuesList = "values_list"
	OpUpdate     = "update"
	OpRemove     = "remove"
	OpIterate    = "iterate"
)

var ops = []string{OpCount, OpSize, OpExists, OpAt, OpGet, OpValues, OpValuesList, OpUpdate, OpRemove, OpIterate}

// LoadScenario reads and parses a scenario YAML file, resolving relative
// paths against the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	if s.Models != "" && !filepath.IsAbs(s.Models) {
		s.Models = filepath.Join(base, s.Models)
	}
	if s.SchemaFile != "" && !filepath.IsAbs(s.SchemaFile) {
		s.SchemaFile = filepath.Join(base, s.SchemaFile)
	}

	if err := validateScenario(s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return s, nil
}

// ParseScenario decodes a scenario without resolving or validating paths.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &s, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Models == "" {
		return fmt.Errorf("models directory is required")
	}
	if _, err := os.Stat(s.Models); os.IsNotExist(err) {
		return fmt.Errorf("models directory not found: %s", s.Models)
	}
	if s.SchemaFile != "" {
		if _, err := os.Stat(s.SchemaFile); os.IsNotExist(err) {
			return fmt.Errorf("schema file not found: %s", s.SchemaFile)
		}
	}
	if s.BatchSize < 0 {
		return fmt.Errorf("batch_size must be non-negative")
	}

	for i, f := range s.Fixtures {
		if f.Table == "" {
			return fmt.Errorf("fixtures[%d]: table is required", i)
		}
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	if step.Model == "" {
		return fmt.Errorf("model is required")
	}
	if !slices.Contains(ops, step.Op) {
		return fmt.Errorf("unknown op %q", step.Op)
	}

	for i, l := range step.Chain {
		set := 0
		for _, on := range []bool{l.Filter != nil, l.Exclude != nil, l.OrderBy != nil, l.Limit != nil, l.None, l.SelectRelated} {
			if on {
				set++
			}
		}
		if set != 1 {
			return fmt.Errorf("chain[%d]: exactly one of filter, exclude, order_by, limit, none, select_related is required", i)
		}
		if l.Limit != nil && len(l.Limit) != 2 {
			return fmt.Errorf("chain[%d]: limit takes [offset, length]", i)
		}
	}

	switch step.Op {
	case OpAt:
		if _, ok := step.Args["index"]; !ok {
			return fmt.Errorf("at requires args.index")
		}
	case OpGet:
		if _, ok := step.Args["lookups"]; !ok {
			return fmt.Errorf("get requires args.lookups")
		}
	case OpUpdate:
		if _, ok := step.Args["set"]; !ok {
			return fmt.Errorf("update requires args.set")
		}
	}
	return nil
}
