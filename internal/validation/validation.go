// Package validation checks a composed stack before it is deployed.
//
// Three checks run:
//   - lint: the function environment (internal/lint)
//   - schema: required properties and property types (internal/schema)
//   - cfn-lint-go: the synthesized CloudFormation template
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cfnlint "github.com/lex00/cfn-lint-go/pkg/lint"

	exporter "github.com/lex00/security-findings-exporter-go"
	"github.com/lex00/security-findings-exporter-go/internal/lint"
	"github.com/lex00/security-findings-exporter-go/internal/schema"
	"github.com/lex00/security-findings-exporter-go/internal/template"
	"github.com/lex00/security-findings-exporter-go/securityfindings"
	"github.com/lex00/security-findings-exporter-go/stack"
)

// CfnLintResult contains the result of running cfn-lint.
type CfnLintResult struct {
	Passed        bool     `json:"passed"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	Informational []string `json:"informational"`
}

// TotalIssues returns the total number of issues found.
func (r CfnLintResult) TotalIssues() int {
	return len(r.Errors) + len(r.Warnings) + len(r.Informational)
}

// Result contains all validation results for a stack.
type Result struct {
	Resources     int            `json:"resources"`
	LintResult    lint.Result    `json:"lint_result"`
	SchemaResult  *schema.Result `json:"schema_result"`
	CfnLintResult *CfnLintResult `json:"cfn_lint_result"`
}

// Passed reports whether no check found an error.
func (r *Result) Passed() bool {
	if r.SchemaResult != nil && !r.SchemaResult.Valid {
		return false
	}
	return r.LintResult.Success && r.CfnLintResult != nil && r.CfnLintResult.Passed
}

// ValidateResult flattens r into the command result contract.
func (r *Result) ValidateResult() exporter.ValidateResult {
	out := exporter.ValidateResult{
		Success:   r.Passed(),
		Resources: r.Resources,
	}
	for _, issue := range r.LintResult.Issues {
		msg := fmt.Sprintf("%s: %s", issue.Rule, issue.Message)
		switch issue.Severity {
		case lint.SeverityError:
			out.Errors = append(out.Errors, msg)
		case lint.SeverityWarning:
			out.Warnings = append(out.Warnings, msg)
		default:
			out.Info = append(out.Info, msg)
		}
	}
	if r.SchemaResult != nil {
		for _, e := range r.SchemaResult.Errors {
			out.Errors = append(out.Errors, "schema: "+e.String())
		}
		for _, w := range r.SchemaResult.Warnings {
			out.Warnings = append(out.Warnings, "schema: "+w.String())
		}
	}
	if r.CfnLintResult != nil {
		out.Errors = append(out.Errors, r.CfnLintResult.Errors...)
		out.Warnings = append(out.Warnings, r.CfnLintResult.Warnings...)
		out.Info = append(out.Info, r.CfnLintResult.Informational...)
	}
	return out
}

// Validate lints env, then checks the template synthesized from st against
// the resource schemas and cfn-lint.
// A stack that fails to synthesize is an error; lint findings are not.
func Validate(st *stack.Stack, env securityfindings.Environment) (*Result, error) {
	tmpl, err := st.Synth()
	if err != nil {
		return nil, err
	}

	result := &Result{
		Resources:  len(tmpl.Resources),
		LintResult: lint.LintEnvironment(env, lint.Options{}),
	}

	schemaResult, err := schema.ValidateTemplate(tmpl, schema.Options{})
	if err != nil {
		return nil, fmt.Errorf("checking schema: %w", err)
	}
	result.SchemaResult = schemaResult

	cfnResult, err := LintTemplate(tmpl)
	if err != nil {
		return nil, fmt.Errorf("running cfn-lint: %w", err)
	}
	result.CfnLintResult = cfnResult
	return result, nil
}

// LintTemplate writes tmpl to a temporary file and runs cfn-lint on it.
func LintTemplate(tmpl *exporter.Template) (*CfnLintResult, error) {
	data, err := template.ToJSON(tmpl)
	if err != nil {
		return nil, fmt.Errorf("serializing template: %w", err)
	}

	dir, err := os.MkdirTemp("", "security-findings-exporter-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "template.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing template: %w", err)
	}
	return RunCfnLint(path)
}

// RunCfnLint runs cfn-lint-go on the given template file.
func RunCfnLint(templatePath string) (*CfnLintResult, error) {
	if _, err := os.Stat(templatePath); err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Template file not found: %s", templatePath)},
		}, nil
	}

	linter := cfnlint.New(cfnlint.Options{})
	matches, err := linter.LintFile(templatePath)
	if err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Linter error: %v", err)},
		}, nil
	}

	result := &CfnLintResult{
		Errors:        []string{},
		Warnings:      []string{},
		Informational: []string{},
	}

	for _, match := range matches {
		formatted := formatMatch(match)

		switch match.Level {
		case "Error":
			result.Errors = append(result.Errors, formatted)
		case "Warning":
			result.Warnings = append(result.Warnings, formatted)
		default:
			result.Informational = append(result.Informational, formatted)
		}
	}

	// Warnings are acceptable.
	result.Passed = len(result.Errors) == 0
	return result, nil
}

func formatMatch(match cfnlint.Match) string {
	if len(match.Location.Path) == 0 {
		return fmt.Sprintf("%s: %s", match.Rule.ID, match.Message)
	}
	parts := make([]string, len(match.Location.Path))
	for i, p := range match.Location.Path {
		parts[i] = fmt.Sprintf("%v", p)
	}
	return fmt.Sprintf("%s: %s (at %s)", match.Rule.ID, match.Message, strings.Join(parts, "/"))
}
