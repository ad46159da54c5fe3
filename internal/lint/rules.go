package lint

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/lex00/security-findings-exporter-go/securityfindings"
)

// PlaintextSecret reports credentials stored as literal environment values.
// The function reads its Jira token from the environment, so the token ends
// up in the template and in the function configuration in clear text.
//
// A variable is flagged when its name looks sensitive (token, password,
// secret, ...) and it holds a non-placeholder value, or when any value
// matches a well-known credential format.
type PlaintextSecret struct{}

func (r PlaintextSecret) ID() string { return "SFE001" }
func (r PlaintextSecret) Description() string {
	return "Detect credentials stored as plaintext environment values"
}

type secretPatternDef struct {
	name    string
	pattern *regexp.Regexp
}

var secretPatterns = []secretPatternDef{
	{"AWS access key", regexp.MustCompile(`^(A3T[A-Z0-9]|AKIA|ABIA|ACCA|ASIA)[A-Z0-9]{16}$`)},
	{"private key", regexp.MustCompile(`-----BEGIN\s+(RSA\s+|EC\s+|DSA\s+|OPENSSH\s+)?PRIVATE\s+KEY-----`)},
	{"GitHub token", regexp.MustCompile(`^gh[pousr]_[A-Za-z0-9_]{36,}$`)},
	{"GitHub token", regexp.MustCompile(`^github_pat_[A-Za-z0-9_]{22,}$`)},
	{"Slack token", regexp.MustCompile(`^xox[baprs]-[0-9]{10,}-[0-9]{10,}-[a-zA-Z0-9]{24,}$`)},
	{"Atlassian API token", regexp.MustCompile(`^ATATT[A-Za-z0-9_\-=]{20,}$`)},
}

// sensitiveNameParts mark a variable as holding a secret when its lowercased,
// underscore-free name contains one of them.
var sensitiveNameParts = []string{
	"password",
	"passwd",
	"secret",
	"apikey",
	"apitoken",
	"token",
	"accesskey",
	"privatekey",
	"credentials",
}

func (r PlaintextSecret) Check(env securityfindings.Environment) []Issue {
	var issues []Issue
	for _, name := range sortedNames(env) {
		value := env[name]
		if value == "" || isPlaceholder(value) {
			continue
		}

		if isSensitiveName(name) {
			issues = append(issues, Issue{
				Rule:       r.ID(),
				Variable:   name,
				Message:    fmt.Sprintf("Plaintext value in sensitive variable '%s'", name),
				Suggestion: "Inject the value at deploy time and restrict who can read the function configuration",
				Severity:   SeverityWarning,
			})
			continue
		}

		for _, p := range secretPatterns {
			if p.pattern.MatchString(value) {
				issues = append(issues, Issue{
					Rule:     r.ID(),
					Variable: name,
					Message:  fmt.Sprintf("Value of '%s' looks like a %s", name, p.name),
					Severity: SeverityWarning,
				})
				break
			}
		}
	}
	return issues
}

func isSensitiveName(name string) bool {
	normalized := strings.ToLower(strings.ReplaceAll(name, "_", ""))
	for _, part := range sensitiveNameParts {
		if strings.Contains(normalized, part) {
			return true
		}
	}
	return false
}

// isPlaceholder checks if a string looks like a placeholder
func isPlaceholder(s string) bool {
	s = strings.ToLower(s)
	placeholders := []string{
		"changeme",
		"placeholder",
		"example",
		"your-",
		"todo",
		"<",
		">",
		"xxx",
		"dummy",
	}

	for _, p := range placeholders {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// EmptyRequiredValue reports required variables left empty. Empty values are
// accepted, but the function cannot reach Jira without them.
type EmptyRequiredValue struct{}

func (r EmptyRequiredValue) ID() string { return "SFE002" }
func (r EmptyRequiredValue) Description() string {
	return "Report required variables that are empty"
}

var requiredVariables = []string{
	securityfindings.EnvRegions,
	securityfindings.EnvAccounts,
	securityfindings.EnvJiraEmail,
	securityfindings.EnvJiraApiToken,
	securityfindings.EnvJiraServerUrl,
	securityfindings.EnvJiraProjectKey,
}

func (r EmptyRequiredValue) Check(env securityfindings.Environment) []Issue {
	var issues []Issue
	for _, name := range requiredVariables {
		value, ok := env[name]
		if ok && strings.TrimSpace(value) != "" {
			continue
		}
		issues = append(issues, Issue{
			Rule:     r.ID(),
			Variable: name,
			Message:  fmt.Sprintf("'%s' is empty", name),
			Severity: SeverityInfo,
		})
	}
	return issues
}

// MalformedList reports REGIONS and ACCOUNTS entries the function cannot use.
// The function splits both lists on commas without trimming, so an entry
// with surrounding whitespace never matches a finding.
type MalformedList struct{}

func (r MalformedList) ID() string { return "SFE003" }
func (r MalformedList) Description() string {
	return "Detect malformed region and account list entries"
}

var accountEntry = regexp.MustCompile(`^\d{12}$`)

func (r MalformedList) Check(env securityfindings.Environment) []Issue {
	var issues []Issue
	lists := []struct {
		name    string
		pattern *regexp.Regexp
		what    string
	}{
		{securityfindings.EnvAccounts, accountEntry, "12-digit account ID"},
		{securityfindings.EnvRegions, securityfindings.RegionPattern, "region name"},
	}
	for _, l := range lists {
		for _, entry := range strings.Split(env[l.name], ",") {
			if entry == "" {
				continue
			}
			if strings.TrimSpace(entry) != entry {
				issues = append(issues, Issue{
					Rule:       r.ID(),
					Variable:   l.name,
					Message:    fmt.Sprintf("'%s' entry %q has surrounding whitespace", l.name, entry),
					Suggestion: "Separate entries with a bare comma",
					Severity:   SeverityError,
				})
				continue
			}
			if l.pattern.MatchString(entry) {
				continue
			}
			issues = append(issues, Issue{
				Rule:     r.ID(),
				Variable: l.name,
				Message:  fmt.Sprintf("'%s' entry %q is not a %s", l.name, entry, l.what),
				Severity: SeverityError,
			})
		}
	}
	return issues
}

// InsecureServerUrl reports a Jira server URL that is not an absolute https URL.
// Basic auth credentials would otherwise travel unencrypted.
type InsecureServerUrl struct{}

func (r InsecureServerUrl) ID() string { return "SFE004" }
func (r InsecureServerUrl) Description() string {
	return "Require an absolute https Jira server URL"
}

func (r InsecureServerUrl) Check(env securityfindings.Environment) []Issue {
	raw := env[securityfindings.EnvJiraServerUrl]
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err == nil && u.Scheme == "https" && u.Host != "" {
		return nil
	}
	return []Issue{{
		Rule:       r.ID(),
		Variable:   securityfindings.EnvJiraServerUrl,
		Message:    fmt.Sprintf("Jira server URL %q is not an absolute https URL", raw),
		Suggestion: "Use https://<site>.atlassian.net",
		Severity:   SeverityWarning,
	}}
}

func sortedNames(env securityfindings.Environment) []string {
	names := make([]string, 0, len(env))
	for name := range env {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllRules returns all available lint rules.
func AllRules() []Rule {
	return []Rule{
		PlaintextSecret{},
		EmptyRequiredValue{},
		MalformedList{},
		InsecureServerUrl{},
	}
}
