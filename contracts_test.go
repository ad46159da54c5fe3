package exporter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttrRef_MarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		ref      AttrRef
		expected string
	}{
		{
			name:     "role arn",
			ref:      AttrRef{Resource: "ExporterServiceRole", Attribute: "Arn"},
			expected: `{"Fn::GetAtt":["ExporterServiceRole","Arn"]}`,
		},
		{
			name:     "function arn",
			ref:      AttrRef{Resource: "ExporterFunction", Attribute: "Arn"},
			expected: `{"Fn::GetAtt":["ExporterFunction","Arn"]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.ref)
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(data))
		})
	}
}

func TestAttrRef_IsZero(t *testing.T) {
	tests := []struct {
		name     string
		ref      AttrRef
		expected bool
	}{
		{name: "empty", ref: AttrRef{}, expected: true},
		{name: "with resource", ref: AttrRef{Resource: "MyRole"}, expected: false},
		{name: "with attribute", ref: AttrRef{Attribute: "Arn"}, expected: false},
		{name: "fully populated", ref: AttrRef{Resource: "MyRole", Attribute: "Arn"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.ref.IsZero())
		})
	}
}

func TestAttrRef_SubString(t *testing.T) {
	ref := AttrRef{Resource: "ExporterFunction", Attribute: "Arn"}
	assert.Equal(t, "${ExporterFunction.Arn}", ref.SubString())
}

func TestTemplate_JSONShape(t *testing.T) {
	tmpl := Template{
		AWSTemplateFormatVersion: "2010-09-09",
		Resources: map[string]ResourceDef{
			"ExporterLogGroup": {
				Type:       "AWS::Logs::LogGroup",
				Properties: map[string]any{"LogGroupName": "/aws/lambda/SecurityFindingsNotifier"},
			},
		},
		Outputs: map[string]Output{
			"FunctionArn": {
				Value:  map[string]any{"Fn::GetAtt": []any{"ExporterFunction", "Arn"}},
				Export: &OutputExport{Name: "stack-FunctionArn"},
			},
		},
	}

	data, err := json.Marshal(tmpl)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))

	assert.Equal(t, "2010-09-09", parsed["AWSTemplateFormatVersion"])
	assert.NotContains(t, parsed, "Parameters")
	outputs := parsed["Outputs"].(map[string]any)
	export := outputs["FunctionArn"].(map[string]any)["Export"].(map[string]any)
	assert.Equal(t, "stack-FunctionArn", export["Name"])
}
