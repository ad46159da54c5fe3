// Package lambda contains CloudFormation resource types for AWS Lambda.
package lambda

import (
	exporter "github.com/lex00/security-findings-exporter-go"
)

// Function represents an AWS::Lambda::Function resource.
type Function struct {
	// FunctionName is the physical name of the function. Omit to let CloudFormation generate one.
	FunctionName any `json:"FunctionName,omitempty"`

	// Description is a description of the function.
	Description string `json:"Description,omitempty"`

	// Code is the deployment package location.
	Code Function_Code `json:"Code"`

	// Handler is the entry point within the deployment package.
	Handler string `json:"Handler,omitempty"`

	// Runtime is the runtime identifier, e.g. "python3.12".
	Runtime string `json:"Runtime,omitempty"`

	// Architectures is the instruction set architecture, "x86_64" or "arm64".
	Architectures []string `json:"Architectures,omitempty"`

	// Role is the ARN of the execution role.
	Role any `json:"Role"`

	// Timeout is the execution time limit in seconds.
	Timeout int `json:"Timeout,omitempty"`

	// MemorySize is the memory available to the function in MB.
	MemorySize int `json:"MemorySize,omitempty"`

	// Environment holds the environment variables.
	Environment *Function_Environment `json:"Environment,omitempty"`

	// LoggingConfig configures the CloudWatch log destination.
	LoggingConfig *Function_LoggingConfig `json:"LoggingConfig,omitempty"`

	// Tags are key-value pairs to categorize the function.
	Tags []Tag `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation type for Function.
func (r Function) ResourceType() string {
	return "AWS::Lambda::Function"
}

// Function_Code is the deployment package of a function.
type Function_Code struct {
	// S3Bucket is the bucket holding the deployment package.
	S3Bucket any `json:"S3Bucket,omitempty"`

	// S3Key is the key of the deployment package.
	S3Key any `json:"S3Key,omitempty"`
}

// Function_Environment holds the environment variables of a function.
type Function_Environment struct {
	Variables map[string]string `json:"Variables,omitempty"`
}

// Function_LoggingConfig binds a function to a log group.
type Function_LoggingConfig struct {
	// LogGroup is the name of the log group the function writes to.
	LogGroup any `json:"LogGroup,omitempty"`

	// LogFormat is "Text" or "JSON".
	LogFormat string `json:"LogFormat,omitempty"`

	// ApplicationLogLevel filters application logs when LogFormat is "JSON".
	ApplicationLogLevel string `json:"ApplicationLogLevel,omitempty"`
}

// Tag is a CloudFormation resource tag.
type Tag struct {
	Key   string `json:"Key"`
	Value string `json:"Value"`
}

// ArchitectureArm64 is the instruction set the function is built for.
const ArchitectureArm64 = "arm64"

// Runtime constants.
const (
	RuntimePython312 = "python3.12"
)

// FunctionArn returns the GetAtt reference to the Arn of the function declared as logicalID.
func FunctionArn(logicalID string) exporter.AttrRef {
	return exporter.AttrRef{Resource: logicalID, Attribute: "Arn"}
}
