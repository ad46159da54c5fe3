package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lex00/security-findings-exporter-go/internal/differ"
)

func newDiffCmd() *cobra.Command {
	var (
		against      string
		outputFormat string
		ignoreOrder  bool
	)

	cmd := &cobra.Command{
		Use:   "diff --against <template>",
		Short: "Compare the generated template with an existing one",
		Long: `Diff builds the template from the configuration and compares it semantically
with a deployed or previously generated template (JSON or YAML).

Changes are reported as going from the existing template to the new one.

Examples:
    security-findings-exporter diff -c exporter.yaml --against deployed.json
    security-findings-exporter diff -c exporter.yaml --against deployed.yaml --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd, against, outputFormat, ignoreOrder)
		},
	}

	cmd.Flags().StringVar(&against, "against", "", "Existing template to compare with")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&ignoreOrder, "ignore-order", false, "Ignore array element order")
	_ = cmd.MarkFlagRequired("against")

	return cmd
}

func runDiff(cmd *cobra.Command, against, format string, ignoreOrder bool) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	s, err := p.synth()
	if err != nil {
		return err
	}

	existing, err := differ.LoadTemplate(against)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", against, err)
	}

	result, err := differ.Compare(existing, s.template, differ.Options{IgnoreOrder: ignoreOrder})
	if err != nil {
		return err
	}

	return outputDiff(cmd.OutOrStdout(), result, format)
}

func outputDiff(w io.Writer, result *differ.Result, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(struct {
			Diff    any      `json:"diff"`
			Summary any      `json:"summary"`
			Outputs []string `json:"outputs,omitempty"`
		}{result.Diff, result.Summary, result.Outputs}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if result.Summary.Total == 0 && len(result.Outputs) == 0 {
			fmt.Fprintln(w, "No differences")
			return nil
		}
		for _, e := range result.Diff.Added {
			fmt.Fprintf(w, "+ %s (%s)\n", e.Resource, e.Type)
		}
		for _, e := range result.Diff.Removed {
			fmt.Fprintf(w, "- %s (%s)\n", e.Resource, e.Type)
		}
		for _, e := range result.Diff.Modified {
			fmt.Fprintf(w, "~ %s (%s)\n", e.Resource, e.Type)
			for _, c := range e.Changes {
				fmt.Fprintf(w, "    %s\n", c)
			}
		}
		for _, o := range result.Outputs {
			fmt.Fprintf(w, "~ output %s\n", o)
		}
		fmt.Fprintf(w, "\n%d added, %d removed, %d modified\n",
			result.Summary.Added, result.Summary.Removed, result.Summary.Modified)

	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return nil
}
