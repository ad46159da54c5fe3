package lambda

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	exporter "github.com/lex00/security-findings-exporter-go"
)

func TestFunction_ResourceType(t *testing.T) {
	var r exporter.Resource = Function{}
	assert.Equal(t, "AWS::Lambda::Function", r.ResourceType())
}

// TestFunctionSerialization tests that Function serializes to valid JSON.
func TestFunctionSerialization(t *testing.T) {
	fn := Function{
		Handler:       "index.lambda_handler",
		Runtime:       RuntimePython312,
		Architectures: []string{ArchitectureArm64},
		Timeout:       60,
		Role:          exporter.AttrRef{Resource: "ExporterServiceRole", Attribute: "Arn"},
		Code:          Function_Code{S3Bucket: "assets", S3Key: "exporter.zip"},
		Environment: &Function_Environment{
			Variables: map[string]string{"LOG_LEVEL": "INFO", "REGIONS": ""},
		},
		LoggingConfig: &Function_LoggingConfig{LogGroup: "/aws/lambda/SecurityFindingsNotifier"},
	}

	data, err := json.Marshal(fn)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))

	assert.Equal(t, "index.lambda_handler", parsed["Handler"])
	assert.Equal(t, "python3.12", parsed["Runtime"])
	assert.Equal(t, []any{"arm64"}, parsed["Architectures"])
	assert.Equal(t, float64(60), parsed["Timeout"])
	assert.NotContains(t, parsed, "MemorySize")

	role := parsed["Role"].(map[string]any)
	assert.Equal(t, []any{"ExporterServiceRole", "Arn"}, role["Fn::GetAtt"])

	env := parsed["Environment"].(map[string]any)["Variables"].(map[string]any)
	assert.Equal(t, "", env["REGIONS"])
}

func TestFunctionArn(t *testing.T) {
	ref := FunctionArn("ExporterFunction")
	assert.Equal(t, "ExporterFunction", ref.Resource)
	assert.Equal(t, "Arn", ref.Attribute)
}
