package template

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	exporter "github.com/lex00/security-findings-exporter-go"
	"github.com/lex00/security-findings-exporter-go/intrinsics"
	"github.com/lex00/security-findings-exporter-go/resources/iam"
	"github.com/lex00/security-findings-exporter-go/resources/lambda"
	"github.com/lex00/security-findings-exporter-go/resources/logs"
)

func exporterDeclarations() []exporter.Declaration {
	return []exporter.Declaration{
		{
			Name:  "ExporterLogGroup",
			Value: logs.LogGroup{LogGroupName: "/aws/lambda/SecurityFindingsNotifier"},
		},
		{
			Name: "ExporterServiceRole",
			Value: iam.Role{
				AssumeRolePolicyDocument: intrinsics.NewPolicyDocument(intrinsics.PolicyStatement{
					Effect:    "Allow",
					Principal: intrinsics.ServicePrincipal{"lambda.amazonaws.com"},
					Action:    "sts:AssumeRole",
				}),
			},
		},
		{
			Name: "ExporterFunction",
			Value: lambda.Function{
				Handler: "index.lambda_handler",
				Runtime: lambda.RuntimePython312,
				Role:    iam.RoleArn("ExporterServiceRole"),
				LoggingConfig: &lambda.Function_LoggingConfig{
					LogGroup: logs.Ref("ExporterLogGroup"),
				},
			},
			Dependencies: []string{"ExporterServiceRoleDefaultPolicy"},
		},
		{
			Name: "ExporterServiceRoleDefaultPolicy",
			Value: iam.Policy{
				PolicyName:     "ExporterServiceRoleDefaultPolicy",
				PolicyDocument: intrinsics.NewPolicyDocument(),
				Roles:          []any{intrinsics.Ref{LogicalName: "ExporterServiceRole"}},
			},
		},
	}
}

func TestBuilder_Build_SimpleResource(t *testing.T) {
	builder := NewBuilder([]exporter.Declaration{{
		Name:  "ExporterLogGroup",
		Value: logs.LogGroup{LogGroupName: "/aws/lambda/SecurityFindingsNotifier"},
	}})

	tmpl, err := builder.Build()
	require.NoError(t, err)

	assert.Equal(t, "2010-09-09", tmpl.AWSTemplateFormatVersion)
	assert.Len(t, tmpl.Resources, 1)

	lg := tmpl.Resources["ExporterLogGroup"]
	assert.Equal(t, "AWS::Logs::LogGroup", lg.Type)
	assert.Equal(t, "/aws/lambda/SecurityFindingsNotifier", lg.Properties["LogGroupName"])
	assert.Empty(t, lg.DependsOn)
}

func TestBuilder_Build_WithDependencies(t *testing.T) {
	builder := NewBuilder(exporterDeclarations())

	tmpl, err := builder.Build()
	require.NoError(t, err)
	assert.Len(t, tmpl.Resources, 4)

	fn := tmpl.Resources["ExporterFunction"]
	assert.Equal(t, "AWS::Lambda::Function", fn.Type)
	assert.Equal(t, []string{"ExporterServiceRoleDefaultPolicy"}, fn.DependsOn)

	role := fn.Properties["Role"].(map[string]any)
	assert.Equal(t, []any{"ExporterServiceRole", "Arn"}, role["Fn::GetAtt"])
}

func TestBuilder_Dependencies(t *testing.T) {
	builder := NewBuilder(exporterDeclarations())

	deps, err := builder.Dependencies()
	require.NoError(t, err)

	assert.Equal(t, []string{"ExporterLogGroup", "ExporterServiceRole", "ExporterServiceRoleDefaultPolicy"},
		deps["ExporterFunction"])
	assert.Equal(t, []string{"ExporterServiceRole"}, deps["ExporterServiceRoleDefaultPolicy"])
	assert.Empty(t, deps["ExporterLogGroup"])
}

func TestBuilder_TopologicalSort(t *testing.T) {
	builder := NewBuilder(exporterDeclarations())

	deps, err := builder.Dependencies()
	require.NoError(t, err)
	order, err := builder.topologicalSort(deps)
	require.NoError(t, err)

	assert.Less(t, indexOf(order, "ExporterLogGroup"), indexOf(order, "ExporterFunction"))
	assert.Less(t, indexOf(order, "ExporterServiceRole"), indexOf(order, "ExporterServiceRoleDefaultPolicy"))
	assert.Less(t, indexOf(order, "ExporterServiceRoleDefaultPolicy"), indexOf(order, "ExporterFunction"))
}

func TestBuilder_DetectCycle(t *testing.T) {
	builder := NewBuilder([]exporter.Declaration{
		{Name: "A", Value: logs.LogGroup{}, Dependencies: []string{"B"}},
		{Name: "B", Value: logs.LogGroup{}, Dependencies: []string{"C"}},
		{Name: "C", Value: logs.LogGroup{}, Dependencies: []string{"A"}},
	})

	_, err := builder.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular dependency")
}

func TestBuilder_UndefinedReference(t *testing.T) {
	builder := NewBuilder([]exporter.Declaration{{
		Name:  "ExporterFunction",
		Value: lambda.Function{Role: iam.RoleArn("MissingRole")},
	}})

	_, err := builder.Build()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUndefinedReference))
	assert.Contains(t, err.Error(), "MissingRole")
}

func TestBuilder_ParametersAndPseudoParameters(t *testing.T) {
	builder := NewBuilder([]exporter.Declaration{{
		Name: "ExporterFunction",
		Value: lambda.Function{
			Role: intrinsics.Sub{String: "arn:${AWS::Partition}:iam::${AWS::AccountId}:role/x"},
			Code: lambda.Function_Code{
				S3Bucket: intrinsics.Ref{LogicalName: "AssetBucket"},
				S3Key:    "exporter.zip",
			},
		},
	}})
	builder.SetParameter("AssetBucket", exporter.Parameter{Type: "String"})

	tmpl, err := builder.Build()
	require.NoError(t, err)
	assert.Equal(t, "String", tmpl.Parameters["AssetBucket"].Type)
}

func TestBuilder_Outputs(t *testing.T) {
	builder := NewBuilder(exporterDeclarations())
	builder.SetDescription("security findings exporter")
	builder.SetOutput("FunctionArn", exporter.Output{
		Value:  lambda.FunctionArn("ExporterFunction"),
		Export: &exporter.OutputExport{Name: intrinsics.Sub{String: "${AWS::StackName}-FunctionArn"}},
	})

	tmpl, err := builder.Build()
	require.NoError(t, err)

	assert.Equal(t, "security findings exporter", tmpl.Description)
	out := tmpl.Outputs["FunctionArn"]
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"ExporterFunction", "Arn"}}, out.Value)
	assert.Equal(t, map[string]any{"Fn::Sub": "${AWS::StackName}-FunctionArn"}, out.Export.Name)
}

func TestBuilder_OutputUndefinedReference(t *testing.T) {
	builder := NewBuilder(nil)
	builder.SetOutput("FunctionArn", exporter.Output{Value: lambda.FunctionArn("Nope")})

	_, err := builder.Build()
	require.ErrorIs(t, err, ErrUndefinedReference)
}

func TestReferences(t *testing.T) {
	value := map[string]any{
		"A": map[string]any{"Ref": "One"},
		"B": []any{map[string]any{"Fn::GetAtt": []any{"Two", "Arn"}}},
		"C": map[string]any{"Fn::Sub": "${Three.Arn}-${AWS::Region}-${!Literal}"},
	}
	assert.Equal(t, []string{"AWS::Region", "One", "Three", "Two"}, References(value))
	assert.Equal(t, []string{"Three", "Two"}, AttributeReferences(value))
}

func TestToJSON(t *testing.T) {
	tmpl, err := NewBuilder(exporterDeclarations()).Build()
	require.NoError(t, err)

	data, err := ToJSON(tmpl)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))

	assert.Equal(t, "2010-09-09", parsed["AWSTemplateFormatVersion"])
	resources := parsed["Resources"].(map[string]any)
	lg := resources["ExporterLogGroup"].(map[string]any)
	assert.Equal(t, "AWS::Logs::LogGroup", lg["Type"])
}

func TestToYAML(t *testing.T) {
	tmpl, err := NewBuilder(exporterDeclarations()).Build()
	require.NoError(t, err)

	data, err := ToYAML(tmpl)
	require.NoError(t, err)

	assert.Contains(t, string(data), "AWSTemplateFormatVersion")
	assert.Contains(t, string(data), "AWS::Lambda::Function")
	assert.Contains(t, string(data), "Fn::GetAtt")
}

func indexOf(slice []string, item string) int {
	for i, v := range slice {
		if v == item {
			return i
		}
	}
	return -1
}
