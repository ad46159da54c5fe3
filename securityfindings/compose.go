package securityfindings

import (
	"fmt"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	exporter "github.com/lex00/security-findings-exporter-go"
	"github.com/lex00/security-findings-exporter-go/intrinsics"
	"github.com/lex00/security-findings-exporter-go/resources/iam"
	"github.com/lex00/security-findings-exporter-go/resources/lambda"
	"github.com/lex00/security-findings-exporter-go/resources/logs"
	"github.com/lex00/security-findings-exporter-go/stack"
)

const (
	// DefaultInstanceID is the instance id whose log group keeps the
	// historical unsuffixed name.
	DefaultInstanceID = "SecurityFindingsExporter"

	// FunctionHandler is the entry point inside the packaged function.
	FunctionHandler = "index.lambda_handler"

	// FunctionEntry is the function source directory, relative to the module root.
	FunctionEntry = "functions/security-findings-exporter"

	// LogGroupBaseName is the log group name of the default instance.
	LogGroupBaseName = "/aws/lambda/SecurityFindingsNotifier"

	// DefaultLogRetentionDays matches the retention CloudWatch Logs applies
	// to log groups created by the engine's constructs.
	DefaultLogRetentionDays = 731

	lambdaServicePrincipal = "lambda.amazonaws.com"
	basicExecutionPolicy   = "service-role/AWSLambdaBasicExecutionRole"
)

// FindingsActions are the only actions the function is granted.
var FindingsActions = []string{
	"securityhub:GetFindings",
	"securityhub:BatchUpdateFindings",
}

// RegionPattern matches an AWS region name such as "us-east-1" or "us-gov-west-1".
var RegionPattern = regexp.MustCompile(`^[a-z]{2}(-[a-z]+)+-\d+$`)

// Unit is one composed exporter instance: the logical IDs it declared and
// the resource values that were added to the stack.
type Unit struct {
	ID string

	LogGroupID     string
	RoleID         string
	FunctionID     string
	PolicyID       string
	AssetBucketID  string
	AssetKeyID     string
	LogGroupName   string
	AssetPath      string
	PolicyResource any

	LogGroup logs.LogGroup
	Role     iam.Role
	Function lambda.Function
	Policy   iam.Policy
}

func (u *Unit) logicalIDs() []string {
	return []string{u.AssetBucketID, u.AssetKeyID, u.LogGroupID, u.RoleID, u.FunctionID, u.PolicyID}
}

// FunctionArnRef returns the Fn::GetAtt reference to the function ARN.
func (u *Unit) FunctionArnRef() exporter.AttrRef {
	return lambda.FunctionArn(u.FunctionID)
}

// LogGroupName returns the log group name for instance id. The default
// instance keeps LogGroupBaseName; any other instance gets it suffixed with
// its id so several instances can share a stack.
func LogGroupName(id string) string {
	if id == DefaultInstanceID {
		return LogGroupBaseName
	}
	return LogGroupBaseName + "-" + id
}

// AssetPath returns the absolute path of the function source directory.
func AssetPath() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return FunctionEntry
	}
	return filepath.Join(filepath.Dir(file), "..", filepath.FromSlash(FunctionEntry))
}

// FindingsResources returns the resource scope of the findings statement
// for the comma-separated regions list when the statement is narrowed with
// WithRegionScope. Without any listed region the scope is the wildcard.
// Otherwise it is the Security Hub hub of the deploying region followed by
// the hub of every listed region. A list holding anything that is not a
// region name also falls back to the wildcard.
func FindingsResources(regions string) any {
	listed := splitList(regions)
	if len(listed) == 0 {
		return intrinsics.AllResources
	}
	scope := []any{hubArn("${AWS::Region}")}
	seen := make(map[string]bool, len(listed))
	for _, region := range listed {
		if !RegionPattern.MatchString(region) {
			return intrinsics.AllResources
		}
		if seen[region] {
			continue
		}
		seen[region] = true
		scope = append(scope, hubArn(region))
	}
	return scope
}

func hubArn(region string) intrinsics.Sub {
	return intrinsics.Sub{String: "arn:${AWS::Partition}:securityhub:" + region + ":${AWS::AccountId}:hub/default"}
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// ComposeOption adjusts how Compose declares an instance.
type ComposeOption func(*composeOptions)

type composeOptions struct {
	regionScope bool
}

// WithRegionScope narrows the findings statement from the wildcard to the
// hubs of the regions listed in REGIONS, see FindingsResources. Without it
// the statement applies to every resource.
func WithRegionScope() ComposeOption {
	return func(o *composeOptions) { o.regionScope = true }
}

// Compose declares the exporter's resources into st under instance id:
// the log group, the execution role, the function bound to both, and the
// policy granting the findings actions to the role.
//
// Compose fails when id is not a valid logical ID prefix, when any of the
// derived logical IDs already exist in st, or when the log group name is
// already claimed by another resource. Every check runs before st is
// touched, so a failed Compose leaves st as it was.
func Compose(st *stack.Stack, id string, env Environment, settings Settings, opts ...ComposeOption) (*Unit, error) {
	if id == "" {
		return nil, fmt.Errorf("compose: %w: empty instance id", stack.ErrInvalidLogicalID)
	}
	var o composeOptions
	for _, opt := range opts {
		opt(&o)
	}

	u := &Unit{
		ID:            id,
		LogGroupID:    id + "LogGroup",
		RoleID:        id + "ServiceRole",
		FunctionID:    id + "Function",
		PolicyID:      id + "ServiceRoleDefaultPolicy",
		AssetBucketID: id + "AssetBucket",
		AssetKeyID:    id + "AssetKey",
		LogGroupName:  LogGroupName(id),
		AssetPath:     AssetPath(),
	}

	for _, logicalID := range u.logicalIDs() {
		if err := st.CheckID(logicalID); err != nil {
			return nil, fmt.Errorf("compose %s: %w", id, err)
		}
	}
	if err := st.ClaimName(logs.LogGroup{}.ResourceType(), u.LogGroupName, u.LogGroupID); err != nil {
		return nil, fmt.Errorf("compose %s: %w", id, err)
	}

	params := []struct {
		name, what string
	}{
		{u.AssetBucketID, "S3 bucket"},
		{u.AssetKeyID, "S3 key"},
	}
	for _, p := range params {
		err := st.AddParameter(p.name, exporter.Parameter{
			Type:        "String",
			Description: fmt.Sprintf("%s of the packaged %s function", p.what, FunctionEntry),
		})
		if err != nil {
			return nil, fmt.Errorf("compose %s: %w", id, err)
		}
	}

	u.LogGroup = logs.LogGroup{
		LogGroupName:    u.LogGroupName,
		RetentionInDays: DefaultLogRetentionDays,
	}

	u.Role = iam.Role{
		AssumeRolePolicyDocument: intrinsics.NewPolicyDocument(intrinsics.PolicyStatement{
			Effect:    "Allow",
			Principal: intrinsics.ServicePrincipal{lambdaServicePrincipal},
			Action:    "sts:AssumeRole",
		}),
		ManagedPolicyArns: intrinsics.Any(intrinsics.ManagedPolicyArn(basicExecutionPolicy)),
	}

	u.Function = lambda.Function{
		Code: lambda.Function_Code{
			S3Bucket: intrinsics.Ref{LogicalName: u.AssetBucketID},
			S3Key:    intrinsics.Ref{LogicalName: u.AssetKeyID},
		},
		Handler:       FunctionHandler,
		Runtime:       settings.Runtime,
		Architectures: []string{settings.Architecture},
		Role:          iam.RoleArn(u.RoleID),
		Timeout:       settings.TimeoutSeconds(),
		Environment:   &lambda.Function_Environment{Variables: env.Clone()},
		LoggingConfig: &lambda.Function_LoggingConfig{
			LogGroup: logs.Ref(u.LogGroupID),
		},
	}

	u.PolicyResource = intrinsics.AllResources
	if o.regionScope {
		u.PolicyResource = FindingsResources(env[EnvRegions])
	}
	actions := make([]any, 0, len(FindingsActions))
	for _, a := range FindingsActions {
		actions = append(actions, a)
	}
	u.Policy = iam.Policy{
		PolicyName: u.PolicyID,
		PolicyDocument: intrinsics.NewPolicyDocument(intrinsics.PolicyStatement{
			Effect:   "Allow",
			Action:   actions,
			Resource: u.PolicyResource,
		}),
		Roles: intrinsics.Any(intrinsics.Ref{LogicalName: u.RoleID}),
	}

	// The function must not start before its role carries the findings policy.
	adds := []struct {
		id        string
		resource  exporter.Resource
		dependsOn []string
	}{
		{u.LogGroupID, u.LogGroup, nil},
		{u.RoleID, u.Role, nil},
		{u.FunctionID, u.Function, []string{u.PolicyID}},
		{u.PolicyID, u.Policy, nil},
	}
	for _, a := range adds {
		if err := st.Add(a.id, a.resource, a.dependsOn...); err != nil {
			return nil, fmt.Errorf("compose %s: %w", id, err)
		}
	}
	return u, nil
}
