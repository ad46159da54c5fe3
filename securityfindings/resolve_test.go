package securityfindings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolve_EmptyRequest(t *testing.T) {
	env, settings := Resolve(Request{})

	assert.Equal(t, Environment{
		"LOG_LEVEL":               "INFO",
		"REGIONS":                 "",
		"ACCOUNTS":                "",
		"Jira_basicAuth_email":    "",
		"Jira_basicAuth_apiToken": "",
		"Jira_serverUrl":          "",
		"Jira_projectKey":         "",
	}, env)
	assert.NotContains(t, env, EnvPaginatorMaxItems)
	assert.Equal(t, DefaultSettings(), settings)
}

func TestResolve_CopiesRequestFields(t *testing.T) {
	env, _ := Resolve(Request{
		SecurityFindingsRegions:  "us-east-1,eu-west-1",
		SecurityFindingsAccounts: "111111111111,222222222222",
		JiraBasicAuthEmail:       "bot@example.com",
		JiraBasicAuthApiToken:    "tok",
		JiraServerUrl:            "https://example.atlassian.net",
		JiraProjectKey:           "SEC",
	})

	assert.Equal(t, "INFO", env[EnvLogLevel])
	assert.Equal(t, "us-east-1,eu-west-1", env[EnvRegions])
	assert.Equal(t, "111111111111,222222222222", env[EnvAccounts])
	assert.Equal(t, "bot@example.com", env[EnvJiraEmail])
	assert.Equal(t, "tok", env[EnvJiraApiToken])
	assert.Equal(t, "https://example.atlassian.net", env[EnvJiraServerUrl])
	assert.Equal(t, "SEC", env[EnvJiraProjectKey])
	assert.Len(t, env, 7)
}

func TestResolve_PaginatorMaxItems(t *testing.T) {
	tests := []struct {
		name     string
		items    *int
		expected string
		present  bool
	}{
		{name: "absent", items: nil, present: false},
		{name: "500", items: IntPtr(500), expected: "500", present: true},
		{name: "1", items: IntPtr(1), expected: "1", present: true},
		{name: "zero is still supplied", items: IntPtr(0), expected: "0", present: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, _ := Resolve(Request{PaginatorMaxItems: tt.items})
			value, ok := env[EnvPaginatorMaxItems]
			assert.Equal(t, tt.present, ok)
			assert.Equal(t, tt.expected, value)
		})
	}
}

func TestResolve_SettingsArePinned(t *testing.T) {
	_, a := Resolve(Request{})
	_, b := Resolve(Request{
		SecurityFindingsRegions: "us-east-1",
		PaginatorMaxItems:       IntPtr(1000),
	})

	assert.Equal(t, a, b)
	assert.Equal(t, "python3.12", a.Runtime)
	assert.Equal(t, "arm64", a.Architecture)
	assert.Equal(t, 60*time.Second, a.Timeout)
	assert.Equal(t, 60, a.TimeoutSeconds())
	assert.NotEqual(t, LegacyFunctionTimeout, a.Timeout)
}

func TestEnvironment_Clone(t *testing.T) {
	env, _ := Resolve(Request{JiraProjectKey: "SEC"})
	clone := env.Clone()
	clone[EnvJiraProjectKey] = "OPS"

	assert.Equal(t, "SEC", env[EnvJiraProjectKey])
}
