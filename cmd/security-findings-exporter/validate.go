package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	exporter "github.com/lex00/security-findings-exporter-go"
	"github.com/lex00/security-findings-exporter-go/internal/validation"
)

var errValidationFailed = errors.New("validation failed")

// newValidateCmd creates the "validate" subcommand.
func newValidateCmd() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and the generated template",
		Long: `Validate loads the configuration and checks it before deployment.

Checks performed:
  - Configuration schema: the file matches its schema version
  - Environment lint: plaintext credentials, empty values, malformed lists
  - cfn-lint: the synthesized CloudFormation template

Warnings and informational findings do not fail validation.

Examples:
    security-findings-exporter validate -c exporter.yaml
    security-findings-exporter validate -c exporter.yaml --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func runValidate(cmd *cobra.Command, format string) error {
	p, err := loadProject(cmd)
	if err != nil {
		return outputValidateResult(cmd, exporter.ValidateResult{Errors: []string{err.Error()}}, format)
	}

	st, exp, err := p.compose()
	if err != nil {
		return outputValidateResult(cmd, exporter.ValidateResult{Errors: []string{err.Error()}}, format)
	}

	result, err := validation.Validate(st, exp.Environment())
	if err != nil {
		return outputValidateResult(cmd, exporter.ValidateResult{Errors: []string{err.Error()}}, format)
	}
	p.logger.Debug("validation finished",
		"lintIssues", len(result.LintResult.Issues),
		"cfnLintIssues", result.CfnLintResult.TotalIssues())

	return outputValidateResult(cmd, result.ValidateResult(), format)
}

func outputValidateResult(cmd *cobra.Command, result exporter.ValidateResult, format string) error {
	out := cmd.OutOrStdout()

	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))

	case "text":
		if result.Success {
			fmt.Fprintf(out, "Validation passed: %d resources OK\n", result.Resources)
		} else {
			fmt.Fprintln(out, "Validation FAILED:")
		}
		for _, msg := range result.Errors {
			fmt.Fprintf(out, "  ERROR: %s\n", msg)
		}
		for _, msg := range result.Warnings {
			fmt.Fprintf(out, "  WARNING: %s\n", msg)
		}
		for _, msg := range result.Info {
			fmt.Fprintf(out, "  INFO: %s\n", msg)
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if !result.Success {
		return errValidationFailed
	}
	return nil
}
