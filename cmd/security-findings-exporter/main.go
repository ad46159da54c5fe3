// Command security-findings-exporter synthesizes the CloudFormation template
// of the Security Hub to Jira findings exporter.
//
// Usage:
//
//	security-findings-exporter build -c exporter.yaml      Generate CloudFormation template
//	security-findings-exporter validate -c exporter.yaml   Check configuration and template
//	security-findings-exporter publish --bucket templates  Upload template to S3
//	security-findings-exporter version                     Show version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lex00/security-findings-exporter-go/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "security-findings-exporter",
		Short: "Provision the Security Hub to Jira findings exporter",
		Long: `security-findings-exporter turns an exporter configuration into a
CloudFormation template declaring the exporter function, its log group and
its Security Hub permissions.

Describe the exporter in a YAML or JSON file:

    securityFindingsRegions: us-east-1,eu-west-1
    securityFindingsAccounts: "111111111111"
    jiraBasicAuthEmail: bot@example.com
    jiraBasicAuthApiToken: ""
    jiraServerUrl: https://example.atlassian.net
    jiraProjectKey: SEC

Then generate the template:

    security-findings-exporter build -c exporter.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	log.RegisterFlags(rootCmd)
	registerProjectFlags(rootCmd)

	rootCmd.AddCommand(
		newBuildCmd(),
		newValidateCmd(),
		newGraphCmd(),
		newDiffCmd(),
		newWatchCmd(),
		newOptimizeCmd(),
		newPublishCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "security-findings-exporter %s\n", getVersion())
		},
	}
}
