// Package differ provides semantic comparison of CloudFormation templates.
package differ

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"sort"

	"gopkg.in/yaml.v3"

	exporter "github.com/lex00/security-findings-exporter-go"
	"github.com/lex00/security-findings-exporter-go/internal/serialize"
)

// Options configures the differ.
type Options struct {
	// IgnoreOrder ignores array element order in comparisons.
	IgnoreOrder bool
}

// Result contains the difference between two templates.
type Result struct {
	Diff    exporter.TemplateDiff
	Summary exporter.DiffSummary
	// Outputs lists added, removed and modified outputs.
	Outputs []string
}

// Compare compares two CloudFormation templates and returns the changes
// that turn base into target.
func Compare(base, target *exporter.Template, opts Options) (*Result, error) {
	res1, err := normalizeResources(base.Resources)
	if err != nil {
		return nil, fmt.Errorf("normalizing base template: %w", err)
	}
	res2, err := normalizeResources(target.Resources)
	if err != nil {
		return nil, fmt.Errorf("normalizing target template: %w", err)
	}

	result := &Result{}

	for name, def := range res2 {
		if _, exists := res1[name]; !exists {
			result.Diff.Added = append(result.Diff.Added, exporter.DiffEntry{Resource: name, Type: def.Type})
		}
	}

	for name, def := range res1 {
		def2, exists := res2[name]
		if !exists {
			result.Diff.Removed = append(result.Diff.Removed, exporter.DiffEntry{Resource: name, Type: def.Type})
			continue
		}
		if changes := compareResources(def, def2, opts); len(changes) > 0 {
			result.Diff.Modified = append(result.Diff.Modified, exporter.DiffEntry{
				Resource: name,
				Type:     def2.Type,
				Changes:  changes,
			})
		}
	}

	sortEntries(result.Diff.Added)
	sortEntries(result.Diff.Removed)
	sortEntries(result.Diff.Modified)

	outputs, err := compareOutputs(base.Outputs, target.Outputs, opts)
	if err != nil {
		return nil, err
	}
	result.Outputs = outputs

	result.Summary = exporter.DiffSummary{
		Added:    len(result.Diff.Added),
		Removed:  len(result.Diff.Removed),
		Modified: len(result.Diff.Modified),
	}
	result.Summary.Total = result.Summary.Added + result.Summary.Removed + result.Summary.Modified

	return result, nil
}

// CompareFiles compares two template files.
func CompareFiles(file1, file2 string, opts Options) (*Result, error) {
	t1, err := LoadTemplate(file1)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file1, err)
	}

	t2, err := LoadTemplate(file2)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file2, err)
	}

	return Compare(t1, t2, opts)
}

// LoadTemplate loads a CloudFormation template from a JSON or YAML file.
func LoadTemplate(path string) (*exporter.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var template exporter.Template
	if err := json.Unmarshal(data, &template); err != nil {
		if err := yaml.Unmarshal(data, &template); err != nil {
			return nil, fmt.Errorf("failed to parse as JSON or YAML: %w", err)
		}
	}
	return &template, nil
}

// normalizeResources brings property values into their JSON shape, so a
// freshly built template compares equal to the same template read from disk.
func normalizeResources(resources map[string]exporter.ResourceDef) (map[string]exporter.ResourceDef, error) {
	out := make(map[string]exporter.ResourceDef, len(resources))
	for name, def := range resources {
		props, err := serialize.Value(def.Properties)
		if err != nil {
			return nil, fmt.Errorf("resource %s: %w", name, err)
		}
		normalized, _ := props.(map[string]any)
		out[name] = exporter.ResourceDef{Type: def.Type, Properties: normalized, DependsOn: def.DependsOn}
	}
	return out, nil
}

func compareResources(def1, def2 exporter.ResourceDef, opts Options) []string {
	var changes []string

	if def1.Type != def2.Type {
		changes = append(changes, fmt.Sprintf("Type changed: %s → %s", def1.Type, def2.Type))
	}

	changes = append(changes, compareProperties("", def1.Properties, def2.Properties, opts)...)

	if !equalStringSlices(sortedCopy(def1.DependsOn), sortedCopy(def2.DependsOn)) {
		changes = append(changes, "DependsOn changed")
	}

	return changes
}

// compareProperties recursively compares property maps. Nested maps are
// descended into so a change is reported at the deepest differing key.
func compareProperties(prefix string, props1, props2 map[string]any, opts Options) []string {
	var changes []string

	for key, val2 := range props2 {
		path := joinPath(prefix, key)

		val1, exists := props1[key]
		if !exists {
			changes = append(changes, fmt.Sprintf("%s added", path))
			continue
		}

		m1, ok1 := val1.(map[string]any)
		m2, ok2 := val2.(map[string]any)
		if ok1 && ok2 && !isIntrinsic(m1) && !isIntrinsic(m2) {
			changes = append(changes, compareProperties(path, m1, m2, opts)...)
			continue
		}

		if !deepEqual(val1, val2, opts) {
			changes = append(changes, describeChange(path, val1, val2))
		}
	}

	for key := range props1 {
		if _, exists := props2[key]; !exists {
			changes = append(changes, fmt.Sprintf("%s removed", joinPath(prefix, key)))
		}
	}

	sort.Strings(changes)
	return changes
}

func compareOutputs(o1, o2 map[string]exporter.Output, opts Options) ([]string, error) {
	norm := func(outputs map[string]exporter.Output) (map[string]any, error) {
		v, err := serialize.Value(outputs)
		if err != nil {
			return nil, err
		}
		m, _ := v.(map[string]any)
		return m, nil
	}
	n1, err := norm(o1)
	if err != nil {
		return nil, fmt.Errorf("normalizing outputs: %w", err)
	}
	n2, err := norm(o2)
	if err != nil {
		return nil, fmt.Errorf("normalizing outputs: %w", err)
	}

	var changes []string
	for name, v2 := range n2 {
		v1, exists := n1[name]
		switch {
		case !exists:
			changes = append(changes, fmt.Sprintf("%s added", name))
		case !deepEqual(v1, v2, opts):
			changes = append(changes, fmt.Sprintf("%s modified", name))
		}
	}
	for name := range n1 {
		if _, exists := n2[name]; !exists {
			changes = append(changes, fmt.Sprintf("%s removed", name))
		}
	}
	sort.Strings(changes)
	return changes, nil
}

func describeChange(path string, from, to any) string {
	if isScalar(from) && isScalar(to) {
		return fmt.Sprintf("%s modified: %v → %v", path, from, to)
	}
	return fmt.Sprintf("%s modified", path)
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, float64, bool, nil:
		return true
	default:
		return false
	}
}

// isIntrinsic reports whether m is a single-key intrinsic function such as
// {"Ref": ...} or {"Fn::GetAtt": ...}; those compare as a whole.
func isIntrinsic(m map[string]any) bool {
	if len(m) != 1 {
		return false
	}
	for k := range m {
		return k == "Ref" || (len(k) > 4 && k[:4] == "Fn::")
	}
	return false
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// deepEqual compares two values deeply, optionally ignoring order.
func deepEqual(a, b any, opts Options) bool {
	if opts.IgnoreOrder {
		a = normalizeValue(a)
		b = normalizeValue(b)
	}
	return reflect.DeepEqual(a, b)
}

// normalizeValue sorts slices by their JSON encoding, recursively.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []any:
		result := make([]any, len(val))
		keys := make([]string, len(val))
		for i, elem := range val {
			result[i] = normalizeValue(elem)
			data, _ := json.Marshal(result[i])
			keys[i] = string(data)
		}
		sort.Sort(byKey{values: result, keys: keys})
		return result
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v := range val {
			result[k] = normalizeValue(v)
		}
		return result
	default:
		return v
	}
}

type byKey struct {
	values []any
	keys   []string
}

func (s byKey) Len() int           { return len(s.values) }
func (s byKey) Less(i, j int) bool { return s.keys[i] < s.keys[j] }
func (s byKey) Swap(i, j int) {
	s.values[i], s.values[j] = s.values[j], s.values[i]
	s.keys[i], s.keys[j] = s.keys[j], s.keys[i]
}

func sortedCopy(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

// equalStringSlices compares two string slices for equality.
func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// sortEntries sorts diff entries by resource name.
func sortEntries(entries []exporter.DiffEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Resource < entries[j].Resource
	})
}
