// Package publish uploads synthesized templates to S3 so CloudFormation can
// deploy them by URL.
package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	exporter "github.com/lex00/security-findings-exporter-go"
	"github.com/lex00/security-findings-exporter-go/internal/template"
)

// Format is the serialization of the uploaded template.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrBucketRequired is returned when no bucket is given.
var ErrBucketRequired = errors.New("bucket is required")

// S3API is the part of S3 used to publish templates.
type S3API interface {
	PutObject(ctx context.Context, bucket, key string, body []byte, contentType string) error
}

// Options configures a publish.
type Options struct {
	Bucket string
	// Key defaults to "<stack name>.template.<format>".
	Key    string
	Region string
	// Endpoint is the S3-compatible endpoint the template was uploaded to, if any.
	Endpoint string
	Format   Format
}

// Result describes an uploaded template.
type Result struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	URL    string `json:"url"`
}

// Publish serializes tmpl and uploads it.
func Publish(ctx context.Context, client S3API, stackName string, tmpl *exporter.Template, opts Options) (*Result, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, ErrBucketRequired
	}

	format := opts.Format
	if format == "" {
		format = FormatJSON
	}

	var (
		body        []byte
		contentType string
		err         error
	)
	switch format {
	case FormatJSON:
		body, err = template.ToJSON(tmpl)
		contentType = "application/json"
	case FormatYAML:
		body, err = template.ToYAML(tmpl)
		contentType = "application/yaml"
	default:
		return nil, fmt.Errorf("unsupported template format: %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("serializing template: %w", err)
	}

	key := opts.Key
	if key == "" {
		key = DefaultKey(stackName, format)
	}

	if err := client.PutObject(ctx, opts.Bucket, key, body, contentType); err != nil {
		return nil, fmt.Errorf("uploading s3://%s/%s: %w", opts.Bucket, key, err)
	}

	return &Result{
		Bucket: opts.Bucket,
		Key:    key,
		URL:    TemplateURL(opts.Bucket, key, opts.Region, opts.Endpoint),
	}, nil
}

// DefaultKey returns the object key used when none is given.
func DefaultKey(stackName string, format Format) string {
	return stackName + ".template." + string(format)
}

// TemplateURL returns the URL of the uploaded object. With an endpoint the
// URL is path-style under that endpoint, matching how the client addresses
// it. Otherwise it is the virtual-hosted-style AWS URL, in the aws-cn
// partition for cn-* regions.
func TemplateURL(bucket, key, region, endpoint string) string {
	if endpoint != "" {
		base, err := url.Parse(endpoint)
		if err != nil || base.Host == "" {
			return strings.TrimRight(endpoint, "/") + "/" + bucket + "/" + key
		}
		u := url.URL{
			Scheme: base.Scheme,
			Host:   base.Host,
			Path:   strings.TrimRight(base.Path, "/") + "/" + bucket + "/" + key,
		}
		return u.String()
	}

	suffix := "amazonaws.com"
	if strings.HasPrefix(region, "cn-") {
		suffix = "amazonaws.com.cn"
	}
	host := bucket + ".s3." + suffix
	if region != "" {
		host = bucket + ".s3." + region + "." + suffix
	}
	u := url.URL{Scheme: "https", Host: host, Path: "/" + key}
	return u.String()
}

// NewS3Client returns an S3API backed by the AWS SDK default credential
// chain. Empty region keeps the SDK's own resolution; endpoint overrides the
// service endpoint, e.g. for an S3-compatible store.
func NewS3Client(ctx context.Context, region, endpoint string) (S3API, error) {
	var loadOpts []func(*config.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(options *s3.Options) {
		if endpoint != "" {
			options.BaseEndpoint = aws.String(endpoint)
			options.UsePathStyle = true
		}
	})
	return awsS3Client{client: client}, nil
}

type awsS3Client struct {
	client *s3.Client
}

func (c awsS3Client) PutObject(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	if c.client == nil {
		return fmt.Errorf("s3 client is nil")
	}
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	return err
}
