package securityfindings

// Request is the caller-supplied configuration of one exporter instance.
//
// All string fields are required but may be empty; the unit passes them to
// the function verbatim. Regions and accounts are comma-separated lists
// interpreted by the function, not by the unit.
type Request struct {
	SecurityFindingsRegions  string `json:"securityFindingsRegions" yaml:"securityFindingsRegions"`
	SecurityFindingsAccounts string `json:"securityFindingsAccounts" yaml:"securityFindingsAccounts"`
	JiraBasicAuthEmail       string `json:"jiraBasicAuthEmail" yaml:"jiraBasicAuthEmail"`
	JiraBasicAuthApiToken    string `json:"jiraBasicAuthApiToken" yaml:"jiraBasicAuthApiToken"`
	JiraServerUrl            string `json:"jiraServerUrl" yaml:"jiraServerUrl"`
	JiraProjectKey           string `json:"jiraProjectKey" yaml:"jiraProjectKey"`

	// PaginatorMaxItems overrides how many findings the function fetches per
	// page. Nil leaves the function's own default in place.
	PaginatorMaxItems *int `json:"paginatorMaxItems,omitempty" yaml:"paginatorMaxItems,omitempty"`

	// ScopeToRegions narrows the findings permission from every resource to
	// the Security Hub hubs of the listed regions. Off by default.
	ScopeToRegions bool `json:"scopeToRegions,omitempty" yaml:"scopeToRegions,omitempty"`
}

// IntPtr returns a pointer to i, for PaginatorMaxItems.
func IntPtr(i int) *int {
	return &i
}
