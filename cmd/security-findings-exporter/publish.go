package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lex00/security-findings-exporter-go/internal/publish"
)

// newS3Client is replaced in tests.
var newS3Client = publish.NewS3Client

func newPublishCmd() *cobra.Command {
	var (
		bucket       string
		key          string
		region       string
		endpoint     string
		outputFormat string
		jsonOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "publish --bucket <bucket>",
		Short: "Upload the generated template to S3",
		Long: `Publish builds the template and uploads it to S3, then prints the template
URL to pass to CloudFormation.

Credentials and region come from the standard AWS configuration chain.

Examples:
    security-findings-exporter publish -c exporter.yaml --bucket templates
    security-findings-exporter publish -c exporter.yaml --bucket templates --key exporter/prod.json
    security-findings-exporter publish -c exporter.yaml --bucket templates --region eu-west-1 --format yaml`,
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

			client, err := newS3Client(cmd.Context(), region, endpoint)
			if err != nil {
				return err
			}

			result, err := publish.Publish(cmd.Context(), client, s.stack.Name(), s.template, publish.Options{
				Bucket:   bucket,
				Key:      key,
				Region:   region,
				Endpoint: endpoint,
				Format:   publish.Format(outputFormat),
			})
			if err != nil {
				return err
			}
			p.logger.Info("published template", "bucket", result.Bucket, "key", result.Key)

			if jsonOutput {
				data, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.URL)
			return nil
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "Destination S3 bucket")
	cmd.Flags().StringVar(&key, "key", "", "Object key (default: <stack name>.template.<format>)")
	cmd.Flags().StringVar(&region, "region", "", "AWS region of the bucket")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Custom S3 endpoint, e.g. for an S3-compatible store")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Template format: json or yaml")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	_ = cmd.MarkFlagRequired("bucket")

	return cmd
}
