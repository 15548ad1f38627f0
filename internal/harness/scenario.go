package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/linql/internal/compiler"
)

// Scenario defines a search conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog lists CUE files or directories defining the record types,
	// loaded in order.
	Catalog []string `yaml:"catalog"`

	// BinaryScope selects the compiler's binary scope policy. Empty means
	// isolated.
	BinaryScope string `yaml:"binary_scope,omitempty"`

	// Records are imported before any search runs.
	Records []RecordSet `yaml:"records,omitempty"`

	// Searches run in order.
	Searches []SearchStep `yaml:"searches"`

	// Assertions validate the audit log and store after all searches.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// RecordSet is a batch of records of one type, given inline or as a JSON
// array file.
type RecordSet struct {
	Type  string           `yaml:"type"`
	Items []map[string]any `yaml:"items,omitempty"`
	File  string           `yaml:"file,omitempty"`
}

// SearchStep is one search with its expected outcome.
type SearchStep struct {
	Name string `yaml:"name"`

	// Search is wire JSON text or the equivalent YAML document.
	Search any `yaml:"search"`

	// Expect is optional; without it the search only has to succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected search outcome.
type ExpectClause struct {
	// Error is the expected error code, e.g. MEMBER_NOT_FOUND. Empty
	// means the search must succeed.
	Error string `yaml:"error,omitempty"`

	// ResultType is the expected compiled result type.
	ResultType string `yaml:"result_type,omitempty"`

	// Count is the expected number of result rows.
	Count *int `yaml:"count,omitempty"`

	// Result is compared with the drained result as canonical JSON.
	Result any `yaml:"result,omitempty"`
}

// Assertion validates the final audit log or store contents.
type Assertion struct {
	// Type is one of audit_count, same_fingerprint, record_count.
	Type string `yaml:"type"`

	// Status filters audit entries (audit_count).
	Status string `yaml:"status,omitempty"`

	// Count is the expected number of entries or records.
	Count int `yaml:"count,omitempty"`

	// Searches names the steps to compare (same_fingerprint).
	Searches []string `yaml:"searches,omitempty"`

	// RecordType is the type whose records are counted (record_count).
	RecordType string `yaml:"record_type,omitempty"`
}

// Assertion type constants.
const (
	AssertAuditCount      = "audit_count"
	AssertSameFingerprint = "same_fingerprint"
	AssertRecordCount     = "record_count"
)

// LoadScenario reads and parses a scenario YAML file, resolving catalog
// and record file paths relative to the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving relative paths against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, basePath)
}

// ParseScenario decodes a scenario document.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if basePath != "" {
		for i, p := range scenario.Catalog {
			scenario.Catalog[i] = resolve(basePath, p)
		}
		for i := range scenario.Records {
			if f := scenario.Records[i].File; f != "" {
				scenario.Records[i].File = resolve(basePath, f)
			}
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// SearchJSON returns the step's search as wire JSON.
func (s *SearchStep) SearchJSON() ([]byte, error) {
	switch v := s.Search.(type) {
	case string:
		return []byte(v), nil
	case map[string]any:
		return json.Marshal(v)
	default:
		return nil, fmt.Errorf("search %q: expected JSON text or a mapping, got %T", s.Name, s.Search)
	}
}

// validateScenario checks required fields and assertion shapes.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Catalog) == 0 {
		return fmt.Errorf("catalog requires at least one path")
	}
	if _, err := compiler.ParseBinaryScope(s.BinaryScope); err != nil {
		return err
	}

	for i, r := range s.Records {
		if r.Type == "" {
			return fmt.Errorf("records[%d]: type is required", i)
		}
		if r.File != "" && len(r.Items) > 0 {
			return fmt.Errorf("records[%d]: use items or file, not both", i)
		}
	}

	if len(s.Searches) == 0 {
		return fmt.Errorf("searches must contain at least one step")
	}
	seen := make(map[string]bool, len(s.Searches))
	for i, step := range s.Searches {
		if step.Name == "" {
			return fmt.Errorf("searches[%d]: name is required", i)
		}
		if seen[step.Name] {
			return fmt.Errorf("searches[%d]: duplicate name %q", i, step.Name)
		}
		seen[step.Name] = true
		if step.Search == nil {
			return fmt.Errorf("searches[%d]: search is required", i)
		}
		if step.Expect != nil && step.Expect.Error != "" && (step.Expect.Result != nil || step.Expect.Count != nil) {
			return fmt.Errorf("searches[%d]: an expected error excludes result and count", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a, i, seen); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(a Assertion, index int, steps map[string]bool) error {
	switch a.Type {
	case AssertAuditCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for audit_count", index)
		}
	case AssertSameFingerprint:
		if len(a.Searches) < 2 {
			return fmt.Errorf("assertions[%d]: same_fingerprint needs at least two searches", index)
		}
		for _, name := range a.Searches {
			if !steps[name] {
				return fmt.Errorf("assertions[%d]: unknown search %q", index, name)
			}
		}
	case AssertRecordCount:
		if a.RecordType == "" {
			return fmt.Errorf("assertions[%d]: record_type is required for record_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for record_count", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
