package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lex00/security-findings-exporter-go/internal/graph"
)

func newGraphCmd() *cobra.Command {
	var (
		outputFormat      string
		includeParameters bool
		clusterByType     bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Generate DOT graph of resource dependencies",
		Long: `Generate a DOT or Mermaid format graph showing resource dependencies.

The output can be rendered with Graphviz:
    security-findings-exporter graph -c exporter.yaml | dot -Tpng -o deps.png

Or used in GitHub markdown (Mermaid format):
    security-findings-exporter graph -c exporter.yaml -f mermaid

Examples:
    security-findings-exporter graph -c exporter.yaml -p    # include parameters
    security-findings-exporter graph -c exporter.yaml -C    # cluster by service`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format := graph.Format(outputFormat)
			if format != graph.FormatDOT && format != graph.FormatMermaid {
				return fmt.Errorf("unknown format: %s", outputFormat)
			}

			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			s, err := p.synth()
			if err != nil {
				return err
			}

			gen := &graph.Generator{
				Format:            format,
				IncludeParameters: includeParameters,
				ClusterByType:     clusterByType,
			}
			return gen.Generate(s.template, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "dot", "Output format: dot or mermaid")
	cmd.Flags().BoolVarP(&includeParameters, "include-parameters", "p", false, "Include parameter nodes in the graph")
	cmd.Flags().BoolVarP(&clusterByType, "cluster", "C", false, "Cluster resources by AWS service")

	return cmd
}
