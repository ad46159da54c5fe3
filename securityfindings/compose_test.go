package securityfindings

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	exporter "github.com/lex00/security-findings-exporter-go"
	"github.com/lex00/security-findings-exporter-go/internal/template"
	"github.com/lex00/security-findings-exporter-go/intrinsics"
	"github.com/lex00/security-findings-exporter-go/resources/logs"
	"github.com/lex00/security-findings-exporter-go/stack"
)

// synthJSON composes req under id into a fresh stack and returns the
// template as generic JSON.
func synthJSON(t *testing.T, id string, req Request) map[string]any {
	t.Helper()
	st := stack.New("TestStack")
	_, err := New(st, id, req)
	require.NoError(t, err)
	return toJSON(t, st)
}

func toJSON(t *testing.T, st *stack.Stack) map[string]any {
	t.Helper()
	tmpl, err := st.Synth()
	require.NoError(t, err)
	data, err := template.ToJSON(tmpl)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func resourceProps(t *testing.T, tmpl map[string]any, logicalID string) map[string]any {
	t.Helper()
	resources := tmpl["Resources"].(map[string]any)
	require.Contains(t, resources, logicalID)
	return resources[logicalID].(map[string]any)["Properties"].(map[string]any)
}

func findingsStatements(t *testing.T, tmpl map[string]any, id string) []any {
	t.Helper()
	props := resourceProps(t, tmpl, id+"ServiceRoleDefaultPolicy")
	return props["PolicyDocument"].(map[string]any)["Statement"].([]any)
}

func TestCompose_MinimalRequest(t *testing.T) {
	tmpl := synthJSON(t, DefaultInstanceID, Request{})

	resources := tmpl["Resources"].(map[string]any)
	types := map[string]string{}
	for name, r := range resources {
		types[name] = r.(map[string]any)["Type"].(string)
	}
	assert.Equal(t, map[string]string{
		"SecurityFindingsExporterLogGroup":                 "AWS::Logs::LogGroup",
		"SecurityFindingsExporterServiceRole":              "AWS::IAM::Role",
		"SecurityFindingsExporterFunction":                 "AWS::Lambda::Function",
		"SecurityFindingsExporterServiceRoleDefaultPolicy": "AWS::IAM::Policy",
	}, types)

	fn := resourceProps(t, tmpl, "SecurityFindingsExporterFunction")
	assert.Equal(t, "python3.12", fn["Runtime"])
	assert.Equal(t, "index.lambda_handler", fn["Handler"])
	assert.Equal(t, []any{"arm64"}, fn["Architectures"])
	assert.Equal(t, float64(60), fn["Timeout"])

	vars := fn["Environment"].(map[string]any)["Variables"].(map[string]any)
	assert.Equal(t, map[string]any{
		"LOG_LEVEL":               "INFO",
		"REGIONS":                 "",
		"ACCOUNTS":                "",
		"Jira_basicAuth_email":    "",
		"Jira_basicAuth_apiToken": "",
		"Jira_serverUrl":          "",
		"Jira_projectKey":         "",
	}, vars)
}

func TestCompose_FunctionBoundToLogGroup(t *testing.T) {
	tmpl := synthJSON(t, DefaultInstanceID, Request{})

	logGroup := resourceProps(t, tmpl, "SecurityFindingsExporterLogGroup")
	assert.Equal(t, "/aws/lambda/SecurityFindingsNotifier", logGroup["LogGroupName"])
	assert.Equal(t, float64(DefaultLogRetentionDays), logGroup["RetentionInDays"])

	fn := resourceProps(t, tmpl, "SecurityFindingsExporterFunction")
	loggingConfig := fn["LoggingConfig"].(map[string]any)
	assert.Equal(t, map[string]any{"Ref": "SecurityFindingsExporterLogGroup"}, loggingConfig["LogGroup"])
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"SecurityFindingsExporterServiceRole", "Arn"}}, fn["Role"])
}

func TestCompose_RoleTrustsLambda(t *testing.T) {
	tmpl := synthJSON(t, DefaultInstanceID, Request{})

	role := resourceProps(t, tmpl, "SecurityFindingsExporterServiceRole")
	statements := role["AssumeRolePolicyDocument"].(map[string]any)["Statement"].([]any)
	require.Len(t, statements, 1)
	assert.Equal(t, map[string]any{
		"Effect":    "Allow",
		"Principal": map[string]any{"Service": "lambda.amazonaws.com"},
		"Action":    "sts:AssumeRole",
	}, statements[0])
	assert.Equal(t, []any{
		map[string]any{"Fn::Sub": "arn:${AWS::Partition}:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole"},
	}, role["ManagedPolicyArns"])
}

func TestCompose_SingleFindingsStatement(t *testing.T) {
	requests := map[string]Request{
		"empty":      {},
		"regions":    {SecurityFindingsRegions: "us-east-1,eu-west-1"},
		"paginator":  {PaginatorMaxItems: IntPtr(500)},
		"everything": {SecurityFindingsRegions: "us-east-1", SecurityFindingsAccounts: "111111111111", JiraProjectKey: "SEC"},
	}

	for name, req := range requests {
		t.Run(name, func(t *testing.T) {
			tmpl := synthJSON(t, DefaultInstanceID, req)
			statements := findingsStatements(t, tmpl, DefaultInstanceID)
			require.Len(t, statements, 1)

			stmt := statements[0].(map[string]any)
			assert.Equal(t, "Allow", stmt["Effect"])
			assert.ElementsMatch(t, []any{"securityhub:GetFindings", "securityhub:BatchUpdateFindings"}, stmt["Action"])

			policy := resourceProps(t, tmpl, "SecurityFindingsExporterServiceRoleDefaultPolicy")
			assert.Equal(t, []any{map[string]any{"Ref": "SecurityFindingsExporterServiceRole"}}, policy["Roles"])
		})
	}
}

func TestCompose_PolicyResourceScope(t *testing.T) {
	hub := func(region string) map[string]any {
		return map[string]any{"Fn::Sub": "arn:${AWS::Partition}:securityhub:" + region + ":${AWS::AccountId}:hub/default"}
	}

	tests := []struct {
		name     string
		regions  string
		expected any
	}{
		{name: "no regions", regions: "", expected: "*"},
		{name: "only separators", regions: " , ,", expected: "*"},
		{name: "one region", regions: "us-east-1", expected: []any{hub("${AWS::Region}"), hub("us-east-1")}},
		{
			name:     "several regions with duplicates",
			regions:  "us-east-1, eu-west-1,,us-east-1",
			expected: []any{hub("${AWS::Region}"), hub("us-east-1"), hub("eu-west-1")},
		},
		{name: "unrecognised entry", regions: "us-east-1,${AWS::Region}", expected: "*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := synthJSON(t, DefaultInstanceID, Request{SecurityFindingsRegions: tt.regions})
			stmt := findingsStatements(t, tmpl, DefaultInstanceID)[0].(map[string]any)
			assert.Equal(t, "*", stmt["Resource"])

			tmpl = synthJSON(t, DefaultInstanceID, Request{SecurityFindingsRegions: tt.regions, ScopeToRegions: true})
			stmt = findingsStatements(t, tmpl, DefaultInstanceID)[0].(map[string]any)
			assert.Equal(t, tt.expected, stmt["Resource"])
		})
	}
}

func TestCompose_WithRegionScope(t *testing.T) {
	env, settings := Resolve(Request{SecurityFindingsRegions: "eu-west-1"})

	u, err := Compose(stack.New("A"), DefaultInstanceID, env, settings)
	require.NoError(t, err)
	assert.Equal(t, intrinsics.AllResources, u.PolicyResource)

	u, err = Compose(stack.New("B"), DefaultInstanceID, env, settings, WithRegionScope())
	require.NoError(t, err)
	assert.Equal(t, FindingsResources("eu-west-1"), u.PolicyResource)
}

func TestNew_FailureLeavesStackUntouched(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, st *stack.Stack)
		err     error
	}{
		{
			name: "function id taken",
			prepare: func(t *testing.T, st *stack.Stack) {
				require.NoError(t, st.Add("SecurityFindingsExporterFunction", logs.LogGroup{}))
			},
			err: stack.ErrDuplicateLogicalID,
		},
		{
			name: "policy id taken",
			prepare: func(t *testing.T, st *stack.Stack) {
				require.NoError(t, st.Add("SecurityFindingsExporterServiceRoleDefaultPolicy", logs.LogGroup{}))
			},
			err: stack.ErrDuplicateLogicalID,
		},
		{
			name: "output taken",
			prepare: func(t *testing.T, st *stack.Stack) {
				require.NoError(t, st.AddOutput("SecurityFindingsExporterLogGroupName", exporter.Output{Value: "x"}))
			},
			err: stack.ErrDuplicateLogicalID,
		},
		{
			name: "log group name taken",
			prepare: func(t *testing.T, st *stack.Stack) {
				require.NoError(t, st.ClaimName(logs.LogGroup{}.ResourceType(), LogGroupBaseName, "Other"))
			},
			err: stack.ErrNameConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := stack.New("TestStack")
			tt.prepare(t, st)
			before := st.ResourceNames()

			_, err := New(st, DefaultInstanceID, Request{})
			require.ErrorIs(t, err, tt.err)

			assert.Equal(t, before, st.ResourceNames())
			assert.NoError(t, st.CheckID("SecurityFindingsExporterAssetBucket"))
			assert.NoError(t, st.CheckID("SecurityFindingsExporterAssetKey"))
			assert.NoError(t, st.CheckOutput("SecurityFindingsExporterFunctionArn"))

			tmpl, err := st.Synth()
			require.NoError(t, err)
			assert.Empty(t, tmpl.Parameters)
		})
	}
}

func TestCompose_FunctionWaitsForPolicy(t *testing.T) {
	st := stack.New("TestStack")
	_, err := New(st, DefaultInstanceID, Request{})
	require.NoError(t, err)

	tmpl, err := st.Synth()
	require.NoError(t, err)
	assert.Equal(t, []string{"SecurityFindingsExporterServiceRoleDefaultPolicy"},
		tmpl.Resources["SecurityFindingsExporterFunction"].DependsOn)

	deps, err := st.Dependencies()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"SecurityFindingsExporterLogGroup",
		"SecurityFindingsExporterServiceRole",
		"SecurityFindingsExporterServiceRoleDefaultPolicy",
	}, deps["SecurityFindingsExporterFunction"])
}

func TestCompose_AssetParameters(t *testing.T) {
	tmpl := synthJSON(t, DefaultInstanceID, Request{})

	params := tmpl["Parameters"].(map[string]any)
	assert.Contains(t, params, "SecurityFindingsExporterAssetBucket")
	assert.Contains(t, params, "SecurityFindingsExporterAssetKey")

	code := resourceProps(t, tmpl, "SecurityFindingsExporterFunction")["Code"].(map[string]any)
	assert.Equal(t, map[string]any{"Ref": "SecurityFindingsExporterAssetBucket"}, code["S3Bucket"])
	assert.Equal(t, map[string]any{"Ref": "SecurityFindingsExporterAssetKey"}, code["S3Key"])
}

func TestCompose_Deterministic(t *testing.T) {
	req := Request{
		SecurityFindingsRegions: "us-east-1,eu-west-1",
		JiraProjectKey:          "SEC",
		PaginatorMaxItems:       IntPtr(500),
	}

	render := func() string {
		st := stack.New("TestStack")
		_, err := New(st, DefaultInstanceID, req)
		require.NoError(t, err)
		tmpl, err := st.Synth()
		require.NoError(t, err)
		data, err := template.ToJSON(tmpl)
		require.NoError(t, err)
		return string(data)
	}

	assert.Equal(t, render(), render())
}

func TestCompose_PaginatorReachesFunction(t *testing.T) {
	tmpl := synthJSON(t, DefaultInstanceID, Request{PaginatorMaxItems: IntPtr(500)})

	fn := resourceProps(t, tmpl, "SecurityFindingsExporterFunction")
	vars := fn["Environment"].(map[string]any)["Variables"].(map[string]any)
	assert.Equal(t, "500", vars["PaginatorMaxItems"])
}

func TestLogGroupName(t *testing.T) {
	assert.Equal(t, "/aws/lambda/SecurityFindingsNotifier", LogGroupName("SecurityFindingsExporter"))
	assert.Equal(t, "/aws/lambda/SecurityFindingsNotifier-Prod", LogGroupName("Prod"))
}

func TestCompose_TwoInstances(t *testing.T) {
	st := stack.New("TestStack")
	_, err := New(st, DefaultInstanceID, Request{})
	require.NoError(t, err)
	second, err := New(st, "Audit", Request{})
	require.NoError(t, err)

	tmpl := toJSON(t, st)
	assert.Len(t, tmpl["Resources"].(map[string]any), 8)
	assert.Equal(t, "/aws/lambda/SecurityFindingsNotifier-Audit", second.Unit().LogGroupName)
}

func TestCompose_DuplicateInstance(t *testing.T) {
	st := stack.New("TestStack")
	_, err := New(st, DefaultInstanceID, Request{})
	require.NoError(t, err)

	_, err = New(st, DefaultInstanceID, Request{})
	assert.ErrorIs(t, err, stack.ErrDuplicateLogicalID)
}

func TestCompose_LogGroupNameTaken(t *testing.T) {
	st := stack.New("TestStack")
	require.NoError(t, st.ClaimName("AWS::Logs::LogGroup", LogGroupBaseName, "ExistingLogGroup"))

	_, err := New(st, DefaultInstanceID, Request{})
	assert.ErrorIs(t, err, stack.ErrNameConflict)
}

func TestCompose_InvalidInstanceID(t *testing.T) {
	for _, id := range []string{"", "Security-Findings"} {
		_, err := New(stack.New("TestStack"), id, Request{})
		assert.ErrorIs(t, err, stack.ErrInvalidLogicalID, "id %q", id)
	}
}

func TestAssetPath(t *testing.T) {
	assert.Contains(t, AssetPath(), "functions")
	assert.Contains(t, AssetPath(), "security-findings-exporter")
}
