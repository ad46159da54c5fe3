package serialize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	exporter "github.com/lex00/security-findings-exporter-go"
	"github.com/lex00/security-findings-exporter-go/resources/lambda"
)

type testFunction struct {
	Handler     string            `json:"Handler,omitempty"`
	Timeout     int               `json:"Timeout,omitempty"`
	Role        any               `json:"Role"`
	Tags        []testTag         `json:"Tags,omitempty"`
	Environment map[string]string `json:"Environment,omitempty"`
	Logging     *testLogging      `json:"LoggingConfig,omitempty"`
	internal    string
}

type testTag struct {
	Key   string `json:"Key"`
	Value string `json:"Value"`
}

type testLogging struct {
	LogGroup string `json:"LogGroup"`
}

func TestResource_SimpleStruct(t *testing.T) {
	props, err := Resource(testFunction{Handler: "index.lambda_handler", internal: "x"})
	require.NoError(t, err)

	assert.Equal(t, "index.lambda_handler", props["Handler"])
	assert.NotContains(t, props, "Tags")
	assert.NotContains(t, props, "LoggingConfig")
	assert.NotContains(t, props, "internal")
}

func TestResource_WithNestedStruct(t *testing.T) {
	props, err := Resource(testFunction{Logging: &testLogging{LogGroup: "/aws/lambda/x"}})
	require.NoError(t, err)

	logging := props["LoggingConfig"].(map[string]any)
	assert.Equal(t, "/aws/lambda/x", logging["LogGroup"])
}

func TestResource_WithSlice(t *testing.T) {
	props, err := Resource(testFunction{Tags: []testTag{{Key: "Team", Value: "security"}}})
	require.NoError(t, err)

	tags := props["Tags"].([]any)
	require.Len(t, tags, 1)
	assert.Equal(t, "security", tags[0].(map[string]any)["Value"])
}

func TestResource_KeepsEmptyMapValues(t *testing.T) {
	props, err := Resource(testFunction{Environment: map[string]string{
		"LOG_LEVEL": "INFO",
		"REGIONS":   "",
	}})
	require.NoError(t, err)

	env := props["Environment"].(map[string]any)
	assert.Equal(t, "INFO", env["LOG_LEVEL"])
	assert.Contains(t, env, "REGIONS")
	assert.Equal(t, "", env["REGIONS"])
}

func TestResource_ExpandsMarshalers(t *testing.T) {
	props, err := Resource(testFunction{Role: exporter.AttrRef{Resource: "Role", Attribute: "Arn"}})
	require.NoError(t, err)

	role := props["Role"].(map[string]any)
	assert.Equal(t, []any{"Role", "Arn"}, role["Fn::GetAtt"])
}

func TestResource_OmitsZeroValues(t *testing.T) {
	props, err := Resource(testFunction{})
	require.NoError(t, err)
	assert.Empty(t, props)
}

func TestResource_WithPointer(t *testing.T) {
	props, err := Resource(&lambda.Function{Handler: "index.lambda_handler", Timeout: 60})
	require.NoError(t, err)

	assert.Equal(t, "index.lambda_handler", props["Handler"])
	assert.Equal(t, int64(60), props["Timeout"])
	assert.Contains(t, props, "Code")
}

func TestResource_RejectsNonStruct(t *testing.T) {
	_, err := Resource("not a struct")
	require.Error(t, err)
}

func TestValue(t *testing.T) {
	v, err := Value(exporter.AttrRef{Resource: "Fn", Attribute: "Arn"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"Fn", "Arn"}}, v)

	v, err = Value(nil)
	require.NoError(t, err)
	assert.Nil(t, v)
}
