package iam

// Policy represents an AWS::IAM::Policy resource, an inline policy attached
// to one or more roles.
type Policy struct {
	// PolicyName is the name of the inline policy.
	PolicyName any `json:"PolicyName"`

	// PolicyDocument is the policy document.
	PolicyDocument any `json:"PolicyDocument"`

	// Roles are the names of the roles the policy is attached to.
	Roles []any `json:"Roles,omitempty"`
}

// ResourceType returns the CloudFormation type for Policy.
func (r Policy) ResourceType() string {
	return "AWS::IAM::Policy"
}
