// Package template builds CloudFormation templates from stack declarations.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	exporter "github.com/lex00/security-findings-exporter-go"
	"github.com/lex00/security-findings-exporter-go/internal/serialize"
)

// ErrUndefinedReference is returned when a declaration references a logical
// name that is neither a resource nor a parameter of the template.
var ErrUndefinedReference = errors.New("undefined reference")

// Builder constructs CloudFormation templates from declarations.
type Builder struct {
	description  string
	declarations map[string]exporter.Declaration
	parameters   map[string]exporter.Parameter
	outputs      map[string]exporter.Output

	props map[string]map[string]any // serialized properties, filled lazily
}

// NewBuilder creates a template builder from declarations.
func NewBuilder(declarations []exporter.Declaration) *Builder {
	b := &Builder{
		declarations: make(map[string]exporter.Declaration, len(declarations)),
		parameters:   make(map[string]exporter.Parameter),
		outputs:      make(map[string]exporter.Output),
	}
	for _, d := range declarations {
		b.declarations[d.Name] = d
	}
	return b
}

// SetDescription sets the template Description.
func (b *Builder) SetDescription(description string) {
	b.description = description
}

// SetParameter adds a template parameter.
func (b *Builder) SetParameter(name string, p exporter.Parameter) {
	b.parameters[name] = p
}

// SetOutput adds a template output. Value and Export.Name may be intrinsics.
func (b *Builder) SetOutput(name string, o exporter.Output) {
	b.outputs[name] = o
}

// Build constructs the CloudFormation template.
func (b *Builder) Build() (*exporter.Template, error) {
	if err := b.serializeAll(); err != nil {
		return nil, err
	}

	deps, err := b.Dependencies()
	if err != nil {
		return nil, err
	}

	order, err := b.topologicalSort(deps)
	if err != nil {
		return nil, err
	}

	tmpl := &exporter.Template{
		AWSTemplateFormatVersion: "2010-09-09",
		Description:              b.description,
		Resources:                make(map[string]exporter.ResourceDef, len(order)),
	}

	if len(b.parameters) > 0 {
		tmpl.Parameters = make(map[string]exporter.Parameter, len(b.parameters))
		for name, p := range b.parameters {
			tmpl.Parameters[name] = p
		}
	}

	for _, name := range order {
		decl := b.declarations[name]
		var dependsOn []string
		if len(decl.Dependencies) > 0 {
			dependsOn = append([]string(nil), decl.Dependencies...)
			sort.Strings(dependsOn)
		}
		tmpl.Resources[name] = exporter.ResourceDef{
			Type:       decl.Value.ResourceType(),
			Properties: b.props[name],
			DependsOn:  dependsOn,
		}
	}

	if len(b.outputs) > 0 {
		tmpl.Outputs = make(map[string]exporter.Output, len(b.outputs))
		for name, o := range b.outputs {
			out, err := b.serializeOutput(o)
			if err != nil {
				return nil, fmt.Errorf("serializing output %s: %w", name, err)
			}
			if err := b.checkRefs(name, out.Value); err != nil {
				return nil, err
			}
			tmpl.Outputs[name] = out
		}
	}

	return tmpl, nil
}

// Dependencies returns, per resource, the sorted logical names it depends on:
// explicit dependencies plus every Ref, Fn::GetAtt and ${Name.Attr} reference
// found in its properties that points at another declared resource.
func (b *Builder) Dependencies() (map[string][]string, error) {
	if err := b.serializeAll(); err != nil {
		return nil, err
	}

	deps := make(map[string][]string, len(b.declarations))
	for name, decl := range b.declarations {
		set := make(map[string]bool)
		for _, dep := range decl.Dependencies {
			if _, ok := b.declarations[dep]; !ok {
				return nil, fmt.Errorf("%s depends on %q: %w", name, dep, ErrUndefinedReference)
			}
			set[dep] = true
		}

		refs := References(b.props[name])
		for _, ref := range refs {
			if _, ok := b.declarations[ref]; ok {
				set[ref] = true
				continue
			}
			if _, ok := b.parameters[ref]; ok || strings.HasPrefix(ref, "AWS::") {
				continue
			}
			return nil, fmt.Errorf("%s references %q: %w", name, ref, ErrUndefinedReference)
		}
		delete(set, name)

		list := make([]string, 0, len(set))
		for dep := range set {
			list = append(list, dep)
		}
		sort.Strings(list)
		deps[name] = list
	}
	return deps, nil
}

func (b *Builder) serializeAll() error {
	if b.props != nil {
		return nil
	}
	props := make(map[string]map[string]any, len(b.declarations))
	for name, decl := range b.declarations {
		if decl.Value == nil {
			return fmt.Errorf("serializing %s: nil resource", name)
		}
		p, err := serialize.Resource(decl.Value)
		if err != nil {
			return fmt.Errorf("serializing %s: %w", name, err)
		}
		props[name] = p
	}
	b.props = props
	return nil
}

func (b *Builder) serializeOutput(o exporter.Output) (exporter.Output, error) {
	value, err := serialize.Value(o.Value)
	if err != nil {
		return exporter.Output{}, err
	}
	out := exporter.Output{Description: o.Description, Value: value}
	if o.Export != nil {
		exportName, err := serialize.Value(o.Export.Name)
		if err != nil {
			return exporter.Output{}, err
		}
		out.Export = &exporter.OutputExport{Name: exportName}
	}
	return out, nil
}

func (b *Builder) checkRefs(owner string, value any) error {
	for _, ref := range References(value) {
		if _, ok := b.declarations[ref]; ok {
			continue
		}
		if _, ok := b.parameters[ref]; ok || strings.HasPrefix(ref, "AWS::") {
			continue
		}
		return fmt.Errorf("%s references %q: %w", owner, ref, ErrUndefinedReference)
	}
	return nil
}

var subVariable = regexp.MustCompile(`\$\{([A-Za-z0-9:]+)(\.[A-Za-z0-9.]+)?\}`)

// References collects the logical names referenced by a serialized value
// through Ref, Fn::GetAtt or an Fn::Sub variable.
func References(value any) []string {
	return collectReferences(value, false)
}

// AttributeReferences collects the logical names whose attributes a
// serialized value reads, through Fn::GetAtt or ${Name.Attr} in Fn::Sub.
func AttributeReferences(value any) []string {
	return collectReferences(value, true)
}

func collectReferences(value any, attributesOnly bool) []string {
	seen := make(map[string]bool)
	var walk func(v any)
	walk = func(v any) {
		switch val := v.(type) {
		case map[string]any:
			if ref, ok := val["Ref"].(string); ok && len(val) == 1 {
				if !attributesOnly {
					seen[ref] = true
				}
				return
			}
			if getAtt, ok := val["Fn::GetAtt"].([]any); ok && len(getAtt) > 0 {
				if name, ok := getAtt[0].(string); ok {
					seen[name] = true
				}
				return
			}
			if sub, ok := val["Fn::Sub"].(string); ok {
				for _, m := range subVariable.FindAllStringSubmatch(sub, -1) {
					if !attributesOnly || m[2] != "" {
						seen[m[1]] = true
					}
				}
				return
			}
			for _, elem := range val {
				walk(elem)
			}
		case []any:
			for _, elem := range val {
				walk(elem)
			}
		}
	}
	walk(value)

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// topologicalSort returns resources in dependency order.
func (b *Builder) topologicalSort(deps map[string][]string) ([]string, error) {
	graph := make(map[string][]string)
	inDegree := make(map[string]int)

	for name := range b.declarations {
		graph[name] = nil
		inDegree[name] = 0
	}
	for name, list := range deps {
		for _, dep := range list {
			graph[dep] = append(graph[dep], name)
			inDegree[name]++
		}
	}

	// Kahn's algorithm
	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range graph[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
				sort.Strings(queue)
			}
		}
	}

	if len(result) != len(b.declarations) {
		return nil, detectCycle(deps)
	}
	return result, nil
}

// detectCycle finds and reports a cycle in the dependency graph.
func detectCycle(deps map[string][]string) error {
	visited := make(map[string]bool)
	path := make(map[string]bool)

	var cycle []string
	var findCycle func(node string) bool
	findCycle = func(node string) bool {
		visited[node] = true
		path[node] = true

		for _, dep := range deps[node] {
			if !visited[dep] {
				if findCycle(dep) {
					cycle = append([]string{node}, cycle...)
					return true
				}
			} else if path[dep] {
				cycle = append([]string{dep, node}, cycle...)
				return true
			}
		}

		path[node] = false
		return false
	}

	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !visited[name] && findCycle(name) {
			break
		}
	}

	if len(cycle) > 0 {
		return fmt.Errorf("circular dependency detected: %s", strings.Join(cycle, " → "))
	}
	return errors.New("circular dependency detected")
}

// ToJSON serializes the template to JSON.
func ToJSON(t *exporter.Template) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// ToYAML serializes the template to YAML.
func ToYAML(t *exporter.Template) ([]byte, error) {
	return yaml.Marshal(t)
}
