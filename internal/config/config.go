// Package config loads the exporter configuration file.
//
// A configuration file is YAML or JSON. It is validated against the embedded
// JSON schema, decoded, migrated to the current schema version and finally
// overridden by SFE_* environment variables.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
	k8syaml "sigs.k8s.io/yaml"

	"github.com/lex00/security-findings-exporter-go/securityfindings"
)

// Schema versions.
const (
	// SchemaV1 is the original shape, keyed like the function's construct props.
	SchemaV1 = 1
	// SchemaV2 is the current shape.
	SchemaV2 = 2

	CurrentSchemaVersion = SchemaV2
)

// DefaultStackName is used when the file does not name a stack.
const DefaultStackName = "SecurityFindingsExporterStack"

// Environment overrides.
const (
	EnvRegions           = "SFE_REGIONS"
	EnvAccounts          = "SFE_ACCOUNTS"
	EnvJiraEmail         = "SFE_JIRA_EMAIL"
	EnvJiraApiToken      = "SFE_JIRA_API_TOKEN"
	EnvJiraServerUrl     = "SFE_JIRA_SERVER_URL"
	EnvJiraProjectKey    = "SFE_JIRA_PROJECT_KEY"
	EnvPaginatorMaxItems = "SFE_PAGINATOR_MAX_ITEMS"
)

var (
	// ErrUnsupportedSchemaVersion is returned for a schemaVersion this build does not know.
	ErrUnsupportedSchemaVersion = errors.New("unsupported schema version")

	// ErrInvalid is returned when a file does not match the schema or an
	// override holds an invalid value.
	ErrInvalid = errors.New("invalid configuration")
)

//go:embed schema/config.schema.json
var schemaJSON []byte

const schemaURL = "config.schema.json"

var (
	schemaOnce     sync.Once
	schemaErr      error
	compiledSchema *jsonschema.Schema
)

// Config is a loaded configuration, always in the current schema version.
type Config struct {
	SchemaVersion int
	StackName     string
	InstanceID    string
	Description   string
	Request       securityfindings.Request

	// MigratedFrom is the version the file was written in when it was older
	// than CurrentSchemaVersion, zero otherwise.
	MigratedFrom int
}

type fileV1 struct {
	SchemaVersion            int    `yaml:"schemaVersion"`
	SecurityFindingsRegions  string `yaml:"SecurityFindingsRegions"`
	SecurityFindingsAccounts string `yaml:"SecurityFindingsAccounts"`
	JiraBasicAuthEmail       string `yaml:"Jira_basicAuth_email"`
	JiraBasicAuthApiToken    string `yaml:"Jira_basicAuth_apiToken"`
	JiraServerUrl            string `yaml:"Jira_serverUrl"`
	JiraProjectKey           string `yaml:"Jira_projectKey"`
}

type fileV2 struct {
	SchemaVersion int    `yaml:"schemaVersion"`
	StackName     string `yaml:"stackName"`
	InstanceID    string `yaml:"instanceId"`
	Description   string `yaml:"description"`

	securityfindings.Request `yaml:",inline"`
}

// Load reads path and applies environment overrides from the process environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse validates and decodes a configuration document.
func Parse(data []byte) (*Config, error) {
	jsonData, err := k8syaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("convert yaml to json: %w", err)
	}

	var document any
	if err := json.Unmarshal(jsonData, &document); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	root, ok := document.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: top level must be a mapping", ErrInvalid)
	}

	version, err := schemaVersion(root)
	if err != nil {
		return nil, err
	}

	sch, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("loading config schema: %w", err)
	}
	if err := sch.Validate(document); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	switch version {
	case SchemaV1:
		var f fileV1
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decoding config: %w", err)
		}
		return migrateV1(f), nil
	default:
		var f fileV2
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decoding config: %w", err)
		}
		return fromV2(f), nil
	}
}

func schemaVersion(root map[string]any) (int, error) {
	raw, ok := root["schemaVersion"]
	if !ok {
		return CurrentSchemaVersion, nil
	}
	n, ok := raw.(float64)
	if !ok || n != float64(int(n)) {
		return 0, fmt.Errorf("schemaVersion %v: %w", raw, ErrUnsupportedSchemaVersion)
	}
	switch v := int(n); v {
	case SchemaV1, SchemaV2:
		return v, nil
	default:
		return 0, fmt.Errorf("schemaVersion %d: %w", v, ErrUnsupportedSchemaVersion)
	}
}

// migrateV1 maps the original keys onto the current request. Fields that v1
// did not have keep their defaults.
func migrateV1(f fileV1) *Config {
	cfg := defaults()
	cfg.MigratedFrom = SchemaV1
	cfg.Request = securityfindings.Request{
		SecurityFindingsRegions:  f.SecurityFindingsRegions,
		SecurityFindingsAccounts: f.SecurityFindingsAccounts,
		JiraBasicAuthEmail:       f.JiraBasicAuthEmail,
		JiraBasicAuthApiToken:    f.JiraBasicAuthApiToken,
		JiraServerUrl:            f.JiraServerUrl,
		JiraProjectKey:           f.JiraProjectKey,
	}
	return cfg
}

func fromV2(f fileV2) *Config {
	cfg := defaults()
	if f.StackName != "" {
		cfg.StackName = f.StackName
	}
	if f.InstanceID != "" {
		cfg.InstanceID = f.InstanceID
	}
	cfg.Description = f.Description
	cfg.Request = f.Request
	return cfg
}

func defaults() *Config {
	return &Config{
		SchemaVersion: CurrentSchemaVersion,
		StackName:     DefaultStackName,
		InstanceID:    securityfindings.DefaultInstanceID,
	}
}

// ApplyEnv overrides request fields from the environment. lookup is usually
// os.LookupEnv. A variable that is set but empty clears the field.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	fields := []struct {
		name string
		dst  *string
	}{
		{EnvRegions, &c.Request.SecurityFindingsRegions},
		{EnvAccounts, &c.Request.SecurityFindingsAccounts},
		{EnvJiraEmail, &c.Request.JiraBasicAuthEmail},
		{EnvJiraApiToken, &c.Request.JiraBasicAuthApiToken},
		{EnvJiraServerUrl, &c.Request.JiraServerUrl},
		{EnvJiraProjectKey, &c.Request.JiraProjectKey},
	}
	for _, f := range fields {
		if v, ok := lookup(f.name); ok {
			*f.dst = v
		}
	}

	if v, ok := lookup(EnvPaginatorMaxItems); ok {
		if v == "" {
			c.Request.PaginatorMaxItems = nil
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("%w: %s=%q must be a positive integer", ErrInvalid, EnvPaginatorMaxItems, v)
		}
		c.Request.PaginatorMaxItems = &n
	}
	return nil
}

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}
