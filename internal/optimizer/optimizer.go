// Package optimizer provides CloudFormation optimization suggestions.
// It analyzes synthesized resources for security, cost, performance, and
// reliability improvements.
package optimizer

import (
	"fmt"
	"sort"

	exporter "github.com/lex00/security-findings-exporter-go"
	"github.com/lex00/security-findings-exporter-go/internal/serialize"
)

// Options configures the optimizer.
type Options struct {
	// Category filters suggestions: "all", "security", "cost", "performance", "reliability"
	Category string
}

// Result contains optimization suggestions.
type Result struct {
	Suggestions []exporter.OptimizeSuggestion `json:"suggestions"`
	Summary     exporter.OptimizeSummary      `json:"summary"`
}

// Optimize analyzes the resources of tmpl and returns optimization suggestions,
// ordered by resource name then rule.
func Optimize(tmpl *exporter.Template, opts Options) (*Result, error) {
	result := &Result{}

	names := make([]string, 0, len(tmpl.Resources))
	for name := range tmpl.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		def := tmpl.Resources[name]
		props, err := serialize.Value(def.Properties)
		if err != nil {
			return nil, fmt.Errorf("resource %s: %w", name, err)
		}
		properties, _ := props.(map[string]any)
		result.Suggestions = append(result.Suggestions, analyzeResource(name, def.Type, properties, opts.Category)...)
	}

	result.Summary = calculateSummary(result.Suggestions)
	return result, nil
}

// analyzeResource applies the rules for resourceType to one resource.
func analyzeResource(name, resourceType string, props map[string]any, category string) []exporter.OptimizeSuggestion {
	var suggestions []exporter.OptimizeSuggestion

	for _, rule := range getRulesForType(resourceType) {
		if category != "" && category != "all" && rule.Category != category {
			continue
		}
		if suggestion := rule.Check(props); suggestion != nil {
			suggestion.Resource = name
			suggestion.Rule = rule.ID
			suggestion.Category = rule.Category
			if suggestion.Title == "" {
				suggestion.Title = rule.Title
			}
			suggestions = append(suggestions, *suggestion)
		}
	}

	return suggestions
}

// calculateSummary tallies suggestions by category.
func calculateSummary(suggestions []exporter.OptimizeSuggestion) exporter.OptimizeSummary {
	summary := exporter.OptimizeSummary{}
	for _, s := range suggestions {
		switch s.Category {
		case "security":
			summary.Security++
		case "cost":
			summary.Cost++
		case "performance":
			summary.Performance++
		case "reliability":
			summary.Reliability++
		}
		summary.Total++
	}
	return summary
}

// Rule represents an optimization rule. Check receives the resource
// properties in their JSON form and returns nil when nothing applies.
type Rule struct {
	ID          string
	Category    string
	Title       string
	Description string
	Check       func(props map[string]any) *exporter.OptimizeSuggestion
}

// getRulesForType returns applicable rules for a CloudFormation resource type.
func getRulesForType(resourceType string) []Rule {
	switch resourceType {
	case "AWS::Lambda::Function":
		return lambdaFunctionRules
	case "AWS::Logs::LogGroup":
		return logGroupRules
	case "AWS::IAM::Policy":
		return iamPolicyRules
	case "AWS::IAM::Role":
		return iamRoleRules
	}
	return nil
}
