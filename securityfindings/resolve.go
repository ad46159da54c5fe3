package securityfindings

import (
	"strconv"
	"time"

	"github.com/lex00/security-findings-exporter-go/resources/lambda"
)

// Environment variable names read by the exporter function.
const (
	EnvLogLevel          = "LOG_LEVEL"
	EnvRegions           = "REGIONS"
	EnvAccounts          = "ACCOUNTS"
	EnvJiraEmail         = "Jira_basicAuth_email"
	EnvJiraApiToken      = "Jira_basicAuth_apiToken"
	EnvJiraServerUrl     = "Jira_serverUrl"
	EnvJiraProjectKey    = "Jira_projectKey"
	EnvPaginatorMaxItems = "PaginatorMaxItems"
)

// DefaultLogLevel is the function's fixed log verbosity.
const DefaultLogLevel = "INFO"

// FunctionTimeout is the pinned execution timeout of the current release.
// Callers cannot override it.
const FunctionTimeout = 60 * time.Second

// LegacyFunctionTimeout is the timeout pinned by the previous release. It is
// not used for new templates; diff against older deployments expects it.
const LegacyFunctionTimeout = 200 * time.Second

// Environment is the execution environment injected into the function.
type Environment map[string]string

// Clone returns a copy of the environment.
func (e Environment) Clone() Environment {
	out := make(Environment, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Settings are the compute settings of the function. They are constants of
// the unit and never derived from a Request.
type Settings struct {
	Runtime      string
	Architecture string
	Timeout      time.Duration
}

// TimeoutSeconds returns the timeout in whole seconds, as CloudFormation expects.
func (s Settings) TimeoutSeconds() int {
	return int(s.Timeout / time.Second)
}

// DefaultSettings returns the pinned settings: Python 3.12 on arm64 with FunctionTimeout.
func DefaultSettings() Settings {
	return Settings{
		Runtime:      lambda.RuntimePython312,
		Architecture: lambda.ArchitectureArm64,
		Timeout:      FunctionTimeout,
	}
}

// Resolve builds the execution environment and settings for req.
//
// The environment always holds LOG_LEVEL plus one entry per required request
// field; PaginatorMaxItems is added only when the request sets it.
func Resolve(req Request) (Environment, Settings) {
	env := Environment{
		EnvLogLevel:       DefaultLogLevel,
		EnvRegions:        req.SecurityFindingsRegions,
		EnvAccounts:       req.SecurityFindingsAccounts,
		EnvJiraEmail:      req.JiraBasicAuthEmail,
		EnvJiraApiToken:   req.JiraBasicAuthApiToken,
		EnvJiraServerUrl:  req.JiraServerUrl,
		EnvJiraProjectKey: req.JiraProjectKey,
	}
	if req.PaginatorMaxItems != nil {
		env[EnvPaginatorMaxItems] = strconv.Itoa(*req.PaginatorMaxItems)
	}
	return env, DefaultSettings()
}
