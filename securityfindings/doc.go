// Package securityfindings provisions the security findings exporter: a Lambda
// function that periodically exports AWS Security Hub findings to Jira.
//
// The unit resolves a Request into the function's execution environment and
// pinned settings, declares a log group, an execution role with a single
// Security Hub policy statement and the function itself into a stack, and
// exposes the function ARN as its public contract:
//
//	st := stack.New("FindingsStack")
//	exp, err := securityfindings.New(st, "SecurityFindingsExporter", securityfindings.Request{
//	    SecurityFindingsRegions:  "us-east-1,eu-west-1",
//	    SecurityFindingsAccounts: "111111111111",
//	    JiraBasicAuthEmail:       "bot@example.com",
//	    JiraBasicAuthApiToken:    token,
//	    JiraServerUrl:            "https://example.atlassian.net",
//	    JiraProjectKey:           "SEC",
//	})
//	arn := exp.FunctionArn() // "${SecurityFindingsExporterFunction.Arn}"
package securityfindings
