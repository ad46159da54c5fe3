package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	exporter "github.com/lex00/security-findings-exporter-go"
	"github.com/lex00/security-findings-exporter-go/internal/template"
)

func newBuildCmd() *cobra.Command {
	var (
		outputFormat string
		outputFile   string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Generate the CloudFormation template",
		Long: `Build loads the exporter configuration and writes the CloudFormation template.

Examples:
    security-findings-exporter build -c exporter.yaml
    security-findings-exporter build -c exporter.yaml -o template.json
    security-findings-exporter build -c exporter.yaml --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, outputFormat, outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Output format: json or yaml")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runBuild(cmd *cobra.Command, format, outputFile string) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}

	s, err := p.synth()
	if err != nil {
		return outputResult(cmd, exporter.BuildResult{
			Success: false,
			Errors:  []string{err.Error()},
		}, format, outputFile)
	}

	return outputResult(cmd, exporter.BuildResult{
		Success:   true,
		Template:  *s.template,
		Resources: s.stack.ResourceNames(),
	}, format, outputFile)
}

func outputResult(cmd *cobra.Command, result exporter.BuildResult, format, outputFile string) error {
	if !result.Success {
		for _, e := range result.Errors {
			fmt.Fprintln(cmd.ErrOrStderr(), e)
		}
		return fmt.Errorf("build failed")
	}

	data, err := renderTemplate(&result.Template, format)
	if err != nil {
		return err
	}

	if outputFile == "" {
		return writeLine(cmd.OutOrStdout(), data)
	}
	return os.WriteFile(outputFile, data, 0o644)
}

func renderTemplate(tmpl *exporter.Template, format string) ([]byte, error) {
	switch format {
	case "json":
		return template.ToJSON(tmpl)
	case "yaml":
		return template.ToYAML(tmpl)
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}

func writeLine(w io.Writer, data []byte) error {
	_, err := fmt.Fprintln(w, string(data))
	return err
}
