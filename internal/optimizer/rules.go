package optimizer

import (
	"sort"
	"strings"

	exporter "github.com/lex00/security-findings-exporter-go"
)

// lambdaFunctionRules contains optimization rules for Lambda functions.
var lambdaFunctionRules = []Rule{
	{
		ID:          "OPT-LAMBDA-001",
		Category:    "cost",
		Title:       "Lambda function should run on arm64",
		Description: "Graviton functions cost less per GB-second",
		Check: func(props map[string]any) *exporter.OptimizeSuggestion {
			archs, _ := props["Architectures"].([]any)
			for _, a := range archs {
				if a == "arm64" {
					return nil
				}
			}
			return &exporter.OptimizeSuggestion{
				Severity:    "low",
				Description: "The function runs on x86_64. arm64 is cheaper for the same work.",
				Suggestion:  "Set Architectures to [arm64].",
				Path:        "Architectures",
			}
		},
	},
	{
		ID:          "OPT-LAMBDA-002",
		Category:    "reliability",
		Title:       "Lambda function should log to a managed log group",
		Description: "An implicit log group never expires and is not removed with the stack",
		Check: func(props map[string]any) *exporter.OptimizeSuggestion {
			cfg, _ := props["LoggingConfig"].(map[string]any)
			if _, ok := cfg["LogGroup"]; ok {
				return nil
			}
			return &exporter.OptimizeSuggestion{
				Severity:    "medium",
				Description: "Without LoggingConfig.LogGroup Lambda creates a log group outside the stack.",
				Suggestion:  "Declare an AWS::Logs::LogGroup and reference it from LoggingConfig.LogGroup.",
				Path:        "LoggingConfig.LogGroup",
			}
		},
	},
	{
		ID:          "OPT-LAMBDA-003",
		Category:    "security",
		Title:       "Credentials should not be stored in environment variables",
		Description: "Environment variables are readable by anyone with lambda:GetFunctionConfiguration",
		Check: func(props map[string]any) *exporter.OptimizeSuggestion {
			env, _ := props["Environment"].(map[string]any)
			vars, _ := env["Variables"].(map[string]any)
			var names []string
			for name, value := range vars {
				s, ok := value.(string)
				if ok && s != "" && isCredentialName(name) {
					names = append(names, name)
				}
			}
			if len(names) == 0 {
				return nil
			}
			sort.Strings(names)
			return &exporter.OptimizeSuggestion{
				Severity:    "high",
				Description: "Plaintext credentials in " + strings.Join(names, ", ") + ".",
				Suggestion:  "Store the credentials in Secrets Manager and resolve them at runtime.",
				Path:        "Environment.Variables." + names[0],
			}
		},
	},
}

// logGroupRules contains optimization rules for CloudWatch log groups.
var logGroupRules = []Rule{
	{
		ID:          "OPT-LOGS-001",
		Category:    "cost",
		Title:       "Log group should have a retention period",
		Description: "Logs without retention are kept and billed forever",
		Check: func(props map[string]any) *exporter.OptimizeSuggestion {
			if _, ok := props["RetentionInDays"]; ok {
				return nil
			}
			return &exporter.OptimizeSuggestion{
				Severity:   "medium",
				Suggestion: "Set RetentionInDays.",
				Path:       "RetentionInDays",
			}
		},
	},
	{
		ID:          "OPT-LOGS-002",
		Category:    "security",
		Title:       "Log group should be encrypted with a customer managed key",
		Description: "Function logs may contain finding details",
		Check: func(props map[string]any) *exporter.OptimizeSuggestion {
			if _, ok := props["KmsKeyId"]; ok {
				return nil
			}
			return &exporter.OptimizeSuggestion{
				Severity:   "low",
				Suggestion: "Set KmsKeyId to a KMS key that allows the CloudWatch Logs service principal.",
				Path:       "KmsKeyId",
			}
		},
	},
}

// iamPolicyRules contains optimization rules for IAM policies.
var iamPolicyRules = []Rule{
	{
		ID:          "OPT-IAM-001",
		Category:    "security",
		Title:       "Policy statements should be scoped to specific resources",
		Description: "A wildcard resource grants the actions on every hub in every region",
		Check: func(props map[string]any) *exporter.OptimizeSuggestion {
			for _, stmt := range statements(props["PolicyDocument"]) {
				if stmt["Resource"] == "*" {
					return &exporter.OptimizeSuggestion{
						Severity:    "medium",
						Description: "A statement allows its actions on Resource \"*\".",
						Suggestion:  "Set scopeToRegions and list the Security Hub regions to scope the statement to their hub ARNs.",
						Path:        "PolicyDocument.Statement",
					}
				}
			}
			return nil
		},
	},
	{
		ID:          "OPT-IAM-002",
		Category:    "security",
		Title:       "Policy statements should not use wildcard actions",
		Description: "Wildcard actions grant more than the function needs",
		Check: func(props map[string]any) *exporter.OptimizeSuggestion {
			for _, stmt := range statements(props["PolicyDocument"]) {
				for _, action := range actions(stmt["Action"]) {
					if strings.Contains(action, "*") {
						return &exporter.OptimizeSuggestion{
							Severity:    "high",
							Description: "Action " + action + " is a wildcard.",
							Suggestion:  "List the individual actions.",
							Path:        "PolicyDocument.Statement",
						}
					}
				}
			}
			return nil
		},
	},
}

// iamRoleRules contains optimization rules for IAM roles.
var iamRoleRules = []Rule{
	{
		ID:          "OPT-IAM-003",
		Category:    "security",
		Title:       "Role should have a permissions boundary",
		Description: "A boundary caps what policies attached later can grant",
		Check: func(props map[string]any) *exporter.OptimizeSuggestion {
			if _, ok := props["PermissionsBoundary"]; ok {
				return nil
			}
			return &exporter.OptimizeSuggestion{
				Severity:   "low",
				Suggestion: "Set PermissionsBoundary if the account uses boundaries for workload roles.",
				Path:       "PermissionsBoundary",
			}
		},
	},
}

func statements(doc any) []map[string]any {
	d, _ := doc.(map[string]any)
	var out []map[string]any
	switch s := d["Statement"].(type) {
	case []any:
		for _, stmt := range s {
			if m, ok := stmt.(map[string]any); ok {
				out = append(out, m)
			}
		}
	case map[string]any:
		out = append(out, s)
	}
	return out
}

func actions(v any) []string {
	switch a := v.(type) {
	case string:
		return []string{a}
	case []any:
		out := make([]string, 0, len(a))
		for _, item := range a {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

var credentialNameParts = []string{"token", "password", "secret", "apikey"}

func isCredentialName(name string) bool {
	normalized := strings.ToLower(strings.ReplaceAll(name, "_", ""))
	for _, part := range credentialNameParts {
		if strings.Contains(normalized, part) {
			return true
		}
	}
	return false
}
