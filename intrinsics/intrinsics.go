// Package intrinsics provides CloudFormation intrinsic functions.
//
// This package re-exports the core intrinsic types from cloudformation-schema-go
// and adds IAM policy-specific types.
//
//	Ref{LogicalName: "ExporterLogGroup"} → {"Ref": "ExporterLogGroup"}
//	Sub{String: "${AWS::StackName}-FunctionArn"} → {"Fn::Sub": "${AWS::StackName}-FunctionArn"}
package intrinsics

import (
	"github.com/lex00/cloudformation-schema-go/intrinsics"
)

type (
	// Ref represents a CloudFormation Ref intrinsic function.
	Ref = intrinsics.Ref

	// Sub represents a CloudFormation Fn::Sub intrinsic function.
	Sub = intrinsics.Sub
)

// Any creates a []any slice from the given items.
//
//	Action: Any("securityhub:GetFindings", "securityhub:BatchUpdateFindings")
func Any(items ...any) []any {
	return items
}
