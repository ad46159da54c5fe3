package schema

// ResourceSchema defines the schema for a resource type.
type ResourceSchema struct {
	Type       string
	Required   []string
	Properties map[string]PropertySchema
}

// PropertySchema defines the schema for a property.
type PropertySchema struct {
	Type          string
	AllowedValues []string
}

// resourceSchemas covers the resource types the exporter declares.
var resourceSchemas = map[string]ResourceSchema{
	"AWS::Logs::LogGroup": {
		Type: "AWS::Logs::LogGroup",
		Properties: map[string]PropertySchema{
			"LogGroupName":    {Type: "String"},
			"RetentionInDays": {Type: "Integer"},
			"KmsKeyId":        {Type: "String"},
			"Tags":            {Type: "List"},
		},
	},
	"AWS::IAM::Role": {
		Type:     "AWS::IAM::Role",
		Required: []string{"AssumeRolePolicyDocument"},
		Properties: map[string]PropertySchema{
			"AssumeRolePolicyDocument": {Type: "Json"},
			"Description":              {Type: "String"},
			"ManagedPolicyArns":        {Type: "List"},
			"Path":                     {Type: "String"},
			"PermissionsBoundary":      {Type: "String"},
			"Policies":                 {Type: "List"},
			"RoleName":                 {Type: "String"},
			"Tags":                     {Type: "List"},
		},
	},
	"AWS::IAM::Policy": {
		Type:     "AWS::IAM::Policy",
		Required: []string{"PolicyDocument", "PolicyName"},
		Properties: map[string]PropertySchema{
			"PolicyDocument": {Type: "Json"},
			"PolicyName":     {Type: "String"},
			"Roles":          {Type: "List"},
			"Groups":         {Type: "List"},
			"Users":          {Type: "List"},
		},
	},
	"AWS::Lambda::Function": {
		Type:     "AWS::Lambda::Function",
		Required: []string{"Code", "Role"},
		Properties: map[string]PropertySchema{
			"Architectures": {Type: "List"},
			"Code":          {Type: "Map"},
			"Description":   {Type: "String"},
			"Environment":   {Type: "Map"},
			"FunctionName":  {Type: "String"},
			"Handler":       {Type: "String"},
			"LoggingConfig": {Type: "Map"},
			"MemorySize":    {Type: "Integer"},
			"Role":          {Type: "String"},
			"Runtime": {Type: "String", AllowedValues: []string{
				"python3.9", "python3.10", "python3.11", "python3.12", "python3.13",
				"nodejs18.x", "nodejs20.x", "nodejs22.x",
				"java17", "java21", "provided.al2", "provided.al2023",
			}},
			"Tags":    {Type: "List"},
			"Timeout": {Type: "Integer"},
		},
	},
}
