// Package iam contains CloudFormation resource types for AWS Identity and Access Management.
package iam

import (
	exporter "github.com/lex00/security-findings-exporter-go"
)

// Role represents an AWS::IAM::Role resource.
type Role struct {
	// RoleName is the physical name of the role. Omit to let CloudFormation generate one.
	RoleName any `json:"RoleName,omitempty"`

	// Description is a description of the role.
	Description string `json:"Description,omitempty"`

	// AssumeRolePolicyDocument is the trust policy.
	AssumeRolePolicyDocument any `json:"AssumeRolePolicyDocument"`

	// ManagedPolicyArns are the ARNs of managed policies attached to the role.
	ManagedPolicyArns []any `json:"ManagedPolicyArns,omitempty"`

	// Path is the path to the role.
	Path string `json:"Path,omitempty"`

	// PermissionsBoundary is the ARN of the policy used as the permissions boundary.
	PermissionsBoundary any `json:"PermissionsBoundary,omitempty"`

	// Tags are key-value pairs to categorize the role.
	Tags []Tag `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation type for Role.
func (r Role) ResourceType() string {
	return "AWS::IAM::Role"
}

// Tag is a CloudFormation resource tag.
type Tag struct {
	Key   string `json:"Key"`
	Value string `json:"Value"`
}

// RoleArn returns the GetAtt reference to the Arn of the role declared as logicalID.
func RoleArn(logicalID string) exporter.AttrRef {
	return exporter.AttrRef{Resource: logicalID, Attribute: "Arn"}
}
