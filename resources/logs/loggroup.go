// Package logs contains CloudFormation resource types for Amazon CloudWatch Logs.
package logs

import (
	"github.com/lex00/security-findings-exporter-go/intrinsics"
)

// LogGroup represents an AWS::Logs::LogGroup resource.
type LogGroup struct {
	// LogGroupName is the physical name of the log group.
	LogGroupName any `json:"LogGroupName,omitempty"`

	// RetentionInDays is the number of days to retain log events.
	RetentionInDays int `json:"RetentionInDays,omitempty"`

	// KmsKeyId is the ARN of the KMS key used to encrypt log data.
	KmsKeyId any `json:"KmsKeyId,omitempty"`

	// Tags are key-value pairs to categorize the log group.
	Tags []Tag `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation type for LogGroup.
func (r LogGroup) ResourceType() string {
	return "AWS::Logs::LogGroup"
}

// Tag is a CloudFormation resource tag.
type Tag struct {
	Key   string `json:"Key"`
	Value string `json:"Value"`
}

// Ref returns a Ref to the log group; it resolves to the log group name.
func Ref(logicalID string) intrinsics.Ref {
	return intrinsics.Ref{LogicalName: logicalID}
}
