// Package graph renders the resource dependency graph of a template in DOT
// or Mermaid format.
package graph

import (
	"io"
	"sort"
	"strings"

	"github.com/emicklei/dot"

	exporter "github.com/lex00/security-findings-exporter-go"
	"github.com/lex00/security-findings-exporter-go/internal/template"
)

// Format specifies the output format for the graph.
type Format string

const (
	// FormatDOT outputs Graphviz DOT format.
	FormatDOT Format = "dot"
	// FormatMermaid outputs Mermaid format for GitHub/markdown rendering.
	FormatMermaid Format = "mermaid"
)

// Generator creates dependency graphs from templates.
type Generator struct {
	// IncludeParameters includes parameter nodes and the edges to them.
	IncludeParameters bool

	// Format specifies the output format (dot or mermaid). Defaults to dot.
	Format Format

	// ClusterByType groups resources by AWS service.
	ClusterByType bool
}

// Generate creates a dependency graph of tmpl and writes it to w.
//
// Edges point from a resource to what it depends on. Fn::GetAtt edges are
// blue, DependsOn edges are dashed.
func (g *Generator) Generate(tmpl *exporter.Template, w io.Writer) error {
	graph := g.buildGraph(tmpl)

	var output string
	if g.Format == FormatMermaid {
		output = dot.MermaidGraph(graph, dot.MermaidTopToBottom)
	} else {
		output = graph.String()
	}

	_, err := io.WriteString(w, output)
	return err
}

// GenerateString is a convenience method that returns the graph as a string.
func (g *Generator) GenerateString(tmpl *exporter.Template) (string, error) {
	var sb strings.Builder
	if err := g.Generate(tmpl, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (g *Generator) buildGraph(tmpl *exporter.Template) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "TB")

	graph.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})
	graph.EdgeInitializer(func(e dot.Edge) {
		e.Attr("fontname", "Arial")
		e.Attr("fontsize", "10")
	})

	names := sortedKeys(tmpl.Resources)
	if g.ClusterByType {
		g.addClusteredNodes(graph, tmpl.Resources, names)
	} else {
		for _, name := range names {
			graph.Node(name).Label(nodeLabel(name, tmpl.Resources[name].Type))
		}
	}

	if g.IncludeParameters {
		for _, name := range sortedKeys(tmpl.Parameters) {
			n := graph.Node(name)
			n.Attr("shape", "ellipse")
			n.Attr("style", "dashed")
			n.Label(name)
		}
	}

	for _, name := range names {
		res := tmpl.Resources[name]
		attrRefs := make(map[string]bool)
		for _, ref := range template.AttributeReferences(res.Properties) {
			attrRefs[ref] = true
		}
		explicit := make(map[string]bool)
		for _, dep := range res.DependsOn {
			explicit[dep] = true
		}

		targets := template.References(res.Properties)
		targets = append(targets, res.DependsOn...)
		drawn := make(map[string]bool)
		for _, dep := range targets {
			if drawn[dep] || dep == name {
				continue
			}
			_, isResource := tmpl.Resources[dep]
			_, isParam := tmpl.Parameters[dep]
			if !isResource && !(isParam && g.IncludeParameters) {
				continue
			}
			drawn[dep] = true

			e := graph.Edge(graph.Node(name), graph.Node(dep))
			switch {
			case attrRefs[dep]:
				e.Attr("color", "blue")
			case explicit[dep]:
				e.Attr("style", "dashed")
			}
		}
	}

	return graph
}

// addClusteredNodes adds resource nodes grouped by AWS service.
func (g *Generator) addClusteredNodes(graph *dot.Graph, resources map[string]exporter.ResourceDef, names []string) {
	serviceResources := make(map[string][]string)
	var services []string
	for _, name := range names {
		service := extractService(resources[name].Type)
		if _, ok := serviceResources[service]; !ok {
			services = append(services, service)
		}
		serviceResources[service] = append(serviceResources[service], name)
	}
	sort.Strings(services)

	for _, service := range services {
		resNames := serviceResources[service]
		parent := graph
		if len(resNames) > 1 {
			cluster := graph.Subgraph("cluster_"+service, dot.ClusterOption{})
			cluster.Attr("label", service)
			cluster.Attr("style", "rounded")
			cluster.Attr("bgcolor", "lightyellow")
			parent = cluster
		}
		for _, name := range resNames {
			parent.Node(name).Label(nodeLabel(name, resources[name].Type))
		}
	}
}

func nodeLabel(name, cfType string) string {
	return name + "\\n[" + cfType + "]"
}

// extractService extracts the service name from a CloudFormation type.
// e.g., "AWS::Lambda::Function" -> "LAMBDA"
func extractService(cfType string) string {
	parts := strings.Split(cfType, "::")
	if len(parts) == 3 {
		return strings.ToUpper(parts[1])
	}
	return "OTHER"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
