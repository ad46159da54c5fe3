package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lex00/security-findings-exporter-go/internal/optimizer"
)

func newOptimizeCmd() *cobra.Command {
	var (
		category     string
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Suggest security, cost and reliability improvements",
		Long: `Optimize synthesizes the template and reports improvements per resource.

Suggestions never fail the command.

Examples:
    security-findings-exporter optimize -c exporter.yaml
    security-findings-exporter optimize -c exporter.yaml --category security --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			s, err := p.synth()
			if err != nil {
				return err
			}

			result, err := optimizer.Optimize(s.template, optimizer.Options{Category: category})
			if err != nil {
				return err
			}
			return outputOptimize(cmd, result, outputFormat)
		},
	}

	cmd.Flags().StringVar(&category, "category", "all", "Category: all, security, cost, performance or reliability")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func outputOptimize(cmd *cobra.Command, result *optimizer.Result, format string) error {
	out := cmd.OutOrStdout()

	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	case "text":
		if len(result.Suggestions) == 0 {
			fmt.Fprintln(out, "No suggestions")
			return nil
		}
		for _, s := range result.Suggestions {
			fmt.Fprintf(out, "[%s] %s %s: %s\n", s.Severity, s.Rule, s.Resource, s.Title)
			if s.Suggestion != "" {
				fmt.Fprintf(out, "    %s\n", s.Suggestion)
			}
		}
		fmt.Fprintf(out, "\n%d suggestions (%d security, %d cost, %d performance, %d reliability)\n",
			result.Summary.Total, result.Summary.Security, result.Summary.Cost,
			result.Summary.Performance, result.Summary.Reliability)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return nil
}
