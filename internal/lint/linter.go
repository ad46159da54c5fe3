// Package lint checks a resolved function environment for configuration
// mistakes the template itself cannot reveal.
package lint

import (
	"sort"

	"github.com/lex00/security-findings-exporter-go/securityfindings"
)

// Severity is the severity of an Issue.
type Severity string

// Severity levels.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is a single lint finding.
type Issue struct {
	Rule       string   `json:"rule"`
	Variable   string   `json:"variable"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
	Severity   Severity `json:"severity"`
}

// Rule checks an environment.
type Rule interface {
	ID() string
	Description() string
	Check(env securityfindings.Environment) []Issue
}

// Result contains the outcome of linting.
type Result struct {
	// Success is false only when an error-level issue was found.
	Success bool
	Issues  []Issue
}

// Options configures the linter.
type Options struct {
	// Rules to enable. If empty, all rules are enabled.
	EnabledRules []string
}

// LintEnvironment runs the enabled rules against env. Issues are ordered by
// rule, then variable.
func LintEnvironment(env securityfindings.Environment, opts Options) Result {
	var issues []Issue
	for _, rule := range getRules(opts) {
		issues = append(issues, rule.Check(env)...)
	}

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Rule != issues[j].Rule {
			return issues[i].Rule < issues[j].Rule
		}
		return issues[i].Variable < issues[j].Variable
	})

	success := true
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			success = false
		}
	}
	return Result{Success: success, Issues: issues}
}

func getRules(opts Options) []Rule {
	all := AllRules()
	if len(opts.EnabledRules) == 0 {
		return all
	}

	enabled := make(map[string]bool)
	for _, id := range opts.EnabledRules {
		enabled[id] = true
	}

	var rules []Rule
	for _, r := range all {
		if enabled[r.ID()] {
			rules = append(rules, r)
		}
	}
	return rules
}
